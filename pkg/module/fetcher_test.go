package module

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchToDirectory(t *testing.T) {
	api := newFakeAPI()
	defer api.Close()
	dir := t.TempDir()
	f := newTestFetcher(dir)

	asset, err := f.Fetch(context.Background(), api.URL()+"/assets/out.png", "task1", 0)
	assert.Nil(t, err)
	assert.NotEmpty(t, asset.Path)
	assert.Equal(t, dir, filepath.Dir(asset.Path))
	assert.True(t, strings.HasSuffix(asset.Path, ".png"))
	assert.Contains(t, asset.Path, "task1_0")

	data, err := os.ReadFile(asset.Path)
	assert.Nil(t, err)
	assert.Equal(t, asset.Size, int64(len(data)))
}

func TestFetchBuffered(t *testing.T) {
	api := newFakeAPI()
	defer api.Close()
	f := newTestFetcher("")

	asset, err := f.Fetch(context.Background(), api.URL()+"/assets/out.png", "task1", 0)
	assert.Nil(t, err)
	assert.Empty(t, asset.Path)
	assert.NotEmpty(t, asset.Body)
}

func TestFetchNotFound(t *testing.T) {
	api := newFakeAPI()
	defer api.Close()
	dir := t.TempDir()
	f := newTestFetcher(dir)

	_, err := f.Fetch(context.Background(), api.URL()+"/assets/missing.png", "task1", 0)
	assert.NotNil(t, err)
	var downloadErr *DownloadError
	assert.ErrorAs(t, err, &downloadErr)
	assert.Equal(t, 404, downloadErr.StatusCode)

	// nothing left behind
	entries, _ := os.ReadDir(dir)
	assert.Equal(t, 0, len(entries))
}

func TestFetchSiblingIndependence(t *testing.T) {
	api := newFakeAPI()
	defer api.Close()
	f := newTestFetcher(t.TempDir())

	_, err := f.Fetch(context.Background(), api.URL()+"/assets/missing.png", "task1", 0)
	assert.NotNil(t, err)
	asset, err := f.Fetch(context.Background(), api.URL()+"/assets/ok.png", "task1", 1)
	assert.Nil(t, err)
	assert.NotEmpty(t, asset.Path)
}

func TestExtFromUrl(t *testing.T) {
	assert.Equal(t, ".webp", extFromUrl("https://x/y/out.webp"))
	assert.Equal(t, ".jpg", extFromUrl("https://x/y/out.jpg?token=abc"))
	assert.Equal(t, ".png", extFromUrl("https://x/y/no-extension"))
}
