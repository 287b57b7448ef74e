package module

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rtuszik/flux-gallery/pkg/datastore"
	"github.com/rtuszik/flux-gallery/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestGalleryConcurrentAppend(t *testing.T) {
	g := NewGallery(nil)
	const k = 50

	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g.Append(&GalleryEntry{Id: fmt.Sprintf("e%d", i), Prompt: "p"})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, k, g.Len())
	// no duplicates or losses
	seen := make(map[string]struct{})
	for _, entry := range g.Snapshot() {
		seen[entry.Id] = struct{}{}
	}
	assert.Equal(t, k, len(seen))
}

func TestGallerySnapshotIsCopy(t *testing.T) {
	g := NewGallery(nil)
	g.Append(&GalleryEntry{Id: "a"})
	snap := g.Snapshot()
	g.Append(&GalleryEntry{Id: "b"})
	assert.Equal(t, 1, len(snap))
	assert.Equal(t, 2, g.Len())
}

func TestGalleryClear(t *testing.T) {
	g := NewGallery(nil)
	g.Append(&GalleryEntry{Id: "a"})
	g.Append(&GalleryEntry{Id: "b"})
	g.Clear()
	assert.Equal(t, 0, g.Len())
	g.Append(&GalleryEntry{Id: "c"})
	assert.Equal(t, 1, g.Len())
}

func TestGalleryHistoryPersistence(t *testing.T) {
	dbName := filepath.Join(t.TempDir(), "sqlite3")
	factory := datastore.DatastoreFactory{}
	store := factory.NewTable(datastore.SQLite, dbName, datastore.KGalleryTableName)
	defer store.Close()

	g := NewGallery(store)
	req := models.DefaultGenerationRequest()
	req.Prompt = "a red fox in snow"
	for i := 0; i < 3; i++ {
		task := &Task{Id: fmt.Sprintf("t%d", i)}
		g.Append(NewGalleryEntry(task, &req, "http://example/img.png", fmt.Sprintf("/tmp/%d.png", i)))
	}

	// a fresh gallery over the same table sees the history, oldest first
	restored := NewGallery(store)
	assert.Nil(t, restored.LoadHistory())
	entries := restored.Snapshot()
	assert.Equal(t, 3, len(entries))
	for i := 1; i < len(entries); i++ {
		assert.LessOrEqual(t, entries[i-1].CreateTime, entries[i].CreateTime)
	}
	assert.Equal(t, "a red fox in snow", entries[0].Prompt)

	// clear drops the persisted rows too
	restored.Clear()
	again := NewGallery(store)
	assert.Nil(t, again.LoadHistory())
	assert.Equal(t, 0, again.Len())
}
