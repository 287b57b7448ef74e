package datastore

// task table: one row per fan-out unit of a generation run
const (
	KTaskTableName    = "task"
	KTaskIdColumnName = "TASK_ID"
	KTaskRunId        = "TASK_RUN_ID"
	KTaskIndex        = "TASK_INDEX"
	KTaskStatus       = "TASK_STATUS"
	KTaskDetail       = "TASK_DETAIL"
	KTaskPredictionId = "TASK_PREDICTION_ID"
	KTaskImage        = "TASK_IMAGE"
	KTaskParams       = "TASK_PARAMS"
	KTaskCreateTime   = "TASK_CREATE_TIME"
	KTaskModifyTime   = "TASK_MODIFY_TIME"
)

// gallery table: persisted history of completed generations
const (
	KGalleryTableName  = "gallery"
	KGalleryIdColumn   = "GALLERY_ID"
	KGalleryTaskId     = "GALLERY_TASK_ID"
	KGalleryFilePath   = "GALLERY_FILE_PATH"
	KGalleryUrl        = "GALLERY_URL"
	KGalleryPrompt     = "GALLERY_PROMPT"
	KGalleryModel      = "GALLERY_MODEL"
	KGalleryParams     = "GALLERY_PARAMS"
	KGalleryCreateTime = "GALLERY_CREATE_TIME"
)
