package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rtuszik/flux-gallery/pkg/config"
	"github.com/rtuszik/flux-gallery/pkg/module"
	"github.com/rtuszik/flux-gallery/pkg/sse"
	"github.com/stretchr/testify/assert"
)

func newTestRouter(t *testing.T) (*gin.Engine, *module.SettingsManager, *module.Gallery) {
	gin.SetMode(gin.TestMode)
	cfg := config.DefaultConfig()
	cfg.ImageOutputDir = t.TempDir()

	settings := module.NewSettingsManager(filepath.Join(t.TempDir(), "settings.yaml"))
	gallery := module.NewGallery(nil)
	client := module.NewReplicateClient(cfg, settings.ApiKey)
	fetcher := module.NewFetcher(cfg)
	orchestrator := module.NewOrchestrator(cfg, client, fetcher, gallery, settings, nil)
	hub := sse.NewHub()

	router := gin.New()
	RegisterHandlers(router, NewApiHandler(orchestrator, gallery, settings, hub))
	return router, settings, gallery
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGenerateRejectsInvalidRequest(t *testing.T) {
	router, _, _ := newTestRouter(t)
	w := doJSON(router, "POST", "/v1/generate", map[string]interface{}{
		"prompt":      "",
		"model":       "owner/model",
		"num_outputs": 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestModelEndpoints(t *testing.T) {
	router, settings, _ := newTestRouter(t)

	w := doJSON(router, "POST", "/v1/models", map[string]string{"model": "owner/model-a"})
	assert.Equal(t, http.StatusOK, w.Code)
	// duplicate add keeps one entry
	doJSON(router, "POST", "/v1/models", map[string]string{"model": "owner/model-a"})
	assert.Equal(t, []string{"owner/model-a"}, settings.Models())

	w = doJSON(router, "DELETE", "/v1/models/owner/model-a", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{}, settings.Models())
}

func TestGalleryEndpoints(t *testing.T) {
	router, _, gallery := newTestRouter(t)
	gallery.Append(&module.GalleryEntry{Id: "e1", Prompt: "fox"})

	w := doJSON(router, "GET", "/v1/gallery", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Entries []module.GalleryEntry `json:"entries"`
	}
	assert.Nil(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, len(resp.Entries))

	w = doJSON(router, "DELETE", "/v1/gallery", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, gallery.Len())
}

func TestSettingsEndpointsMaskApiKey(t *testing.T) {
	router, settings, _ := newTestRouter(t)
	record := settings.Get()
	record.ApiKey = "r8_secret"
	assert.Nil(t, settings.Set(record))

	w := doJSON(router, "GET", "/v1/settings", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "r8_secret")

	// writing back the masked key keeps the stored secret
	var got module.SettingsRecord
	assert.Nil(t, json.Unmarshal(w.Body.Bytes(), &got))
	got.OutputDir = "/data/out"
	w = doJSON(router, "PUT", "/v1/settings", got)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "r8_secret", settings.ApiKey())
	assert.Equal(t, "/data/out", settings.Get().OutputDir)
}

func TestRunStatusNotFound(t *testing.T) {
	router, _, _ := newTestRouter(t)
	w := doJSON(router, "GET", "/v1/runs/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(router, "POST", "/v1/runs/unknown/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
