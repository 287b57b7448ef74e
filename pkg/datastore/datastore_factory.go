package datastore

import (
	"fmt"
)

type DatastoreFactory struct{}

func (f *DatastoreFactory) NewTable(dbType DatastoreType, dbName, tableName string) Datastore {
	switch dbType {
	case SQLite:
		cfg := NewSQLiteConfig(dbName, tableName)
		return NewSQLiteDatastore(cfg)
	default:
		panic(fmt.Sprintf("not support db type=%s", dbType))
	}
}

func NewSQLiteConfig(dbName, tableName string) *Config {
	config := &Config{
		Type:      SQLite,
		DBName:    dbName,
		TableName: tableName,
	}
	switch tableName {
	case KTaskTableName:
		config.ColumnConfig = map[string]string{
			KTaskIdColumnName: "TEXT PRIMARY KEY NOT NULL",
			KTaskRunId:        "TEXT",
			KTaskIndex:        "INT",
			KTaskStatus:       "TEXT",
			KTaskDetail:       "TEXT",
			KTaskPredictionId: "TEXT",
			KTaskImage:        "TEXT",
			KTaskParams:       "TEXT",
			KTaskCreateTime:   "TEXT",
			KTaskModifyTime:   "TEXT",
		}
		config.PrimaryKeyColumnName = KTaskIdColumnName
	case KGalleryTableName:
		config.ColumnConfig = map[string]string{
			KGalleryIdColumn:   "TEXT PRIMARY KEY NOT NULL",
			KGalleryTaskId:     "TEXT",
			KGalleryFilePath:   "TEXT",
			KGalleryUrl:        "TEXT",
			KGalleryPrompt:     "TEXT",
			KGalleryModel:      "TEXT",
			KGalleryParams:     "TEXT",
			KGalleryCreateTime: "INT",
		}
		config.PrimaryKeyColumnName = KGalleryIdColumn
	default:
		panic(fmt.Sprintf("unknown table=%s", tableName))
	}
	return config
}
