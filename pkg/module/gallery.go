package module

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/rtuszik/flux-gallery/pkg/datastore"
	"github.com/rtuszik/flux-gallery/pkg/models"
	"github.com/rtuszik/flux-gallery/pkg/utils"
	"github.com/sirupsen/logrus"
)

// GalleryEntry is one materialized result. Immutable after append.
type GalleryEntry struct {
	Id         string                   `json:"id"`
	TaskId     string                   `json:"taskId"`
	FilePath   string                   `json:"filePath,omitempty"`
	Url        string                   `json:"url"`
	Prompt     string                   `json:"prompt"`
	Model      string                   `json:"model"`
	Params     models.GenerationRequest `json:"params"`
	CreateTime int64                    `json:"createTime"`
}

// Gallery is the ordered collection of completed generations. Appends come
// from concurrently completing orchestrator units, order is arrival order.
// A datastore, when present, keeps history across restarts.
type Gallery struct {
	mu      sync.Mutex
	entries []*GalleryEntry
	store   datastore.Datastore
}

func NewGallery(store datastore.Datastore) *Gallery {
	return &Gallery{
		entries: make([]*GalleryEntry, 0),
		store:   store,
	}
}

// Append add one entry, preserving arrival order. Persisting to the history
// table is best effort, an unavailable table never loses the in-memory entry.
func (g *Gallery) Append(entry *GalleryEntry) {
	g.mu.Lock()
	g.entries = append(g.entries, entry)
	g.mu.Unlock()

	if g.store == nil {
		return
	}
	params, _ := json.Marshal(entry.Params)
	if err := g.store.Put(entry.Id, map[string]interface{}{
		datastore.KGalleryTaskId:     entry.TaskId,
		datastore.KGalleryFilePath:   entry.FilePath,
		datastore.KGalleryUrl:        entry.Url,
		datastore.KGalleryPrompt:     entry.Prompt,
		datastore.KGalleryModel:      entry.Model,
		datastore.KGalleryParams:     string(params),
		datastore.KGalleryCreateTime: entry.CreateTime,
	}); err != nil {
		logrus.WithFields(logrus.Fields{"galleryId": entry.Id}).
			Errorf("persist gallery entry err=%s", err.Error())
	}
}

// Snapshot point-in-time copy in append order.
func (g *Gallery) Snapshot() []*GalleryEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*GalleryEntry, len(g.entries))
	copy(out, g.entries)
	return out
}

// Len current entry count.
func (g *Gallery) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Clear drop the in-memory entries and the persisted history.
func (g *Gallery) Clear() {
	g.mu.Lock()
	dropped := g.entries
	g.entries = make([]*GalleryEntry, 0)
	g.mu.Unlock()

	if g.store == nil {
		return
	}
	for _, entry := range dropped {
		if err := g.store.Delete(entry.Id); err != nil {
			logrus.WithFields(logrus.Fields{"galleryId": entry.Id}).
				Errorf("delete gallery entry err=%s", err.Error())
		}
	}
}

// LoadHistory restore prior sessions' entries from the history table,
// ordered by create time. Meant for startup, before any run is active.
func (g *Gallery) LoadHistory() error {
	if g.store == nil {
		return nil
	}
	rows, err := g.store.ListAll(nil)
	if err != nil {
		return err
	}
	restored := make([]*GalleryEntry, 0, len(rows))
	for id, row := range rows {
		entry := &GalleryEntry{Id: id}
		entry.TaskId, _ = row[datastore.KGalleryTaskId].(string)
		entry.FilePath, _ = row[datastore.KGalleryFilePath].(string)
		entry.Url, _ = row[datastore.KGalleryUrl].(string)
		entry.Prompt, _ = row[datastore.KGalleryPrompt].(string)
		entry.Model, _ = row[datastore.KGalleryModel].(string)
		entry.CreateTime, _ = row[datastore.KGalleryCreateTime].(int64)
		if params, ok := row[datastore.KGalleryParams].(string); ok && params != "" {
			json.Unmarshal([]byte(params), &entry.Params)
		}
		restored = append(restored, entry)
	}
	sort.Slice(restored, func(i, j int) bool {
		return restored[i].CreateTime < restored[j].CreateTime
	})

	g.mu.Lock()
	g.entries = append(restored, g.entries...)
	g.mu.Unlock()
	return nil
}

// NewGalleryEntry build an entry for one fetched asset.
func NewGalleryEntry(task *Task, req *models.GenerationRequest, url, filePath string) *GalleryEntry {
	return &GalleryEntry{
		Id:         utils.RandStr(12),
		TaskId:     task.Id,
		FilePath:   filePath,
		Url:        url,
		Prompt:     req.Prompt,
		Model:      req.Model,
		Params:     *req,
		CreateTime: utils.TimestampMS(),
	}
}
