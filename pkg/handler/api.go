package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rtuszik/flux-gallery/pkg/config"
	"github.com/rtuszik/flux-gallery/pkg/models"
	"github.com/rtuszik/flux-gallery/pkg/module"
	"github.com/rtuszik/flux-gallery/pkg/sse"
	"github.com/sirupsen/logrus"
)

// ApiHandler is the REST surface the browser UI talks to.
type ApiHandler struct {
	orchestrator *module.Orchestrator
	gallery      *module.Gallery
	settings     *module.SettingsManager
	hub          *sse.Hub
}

func NewApiHandler(orchestrator *module.Orchestrator, gallery *module.Gallery,
	settings *module.SettingsManager, hub *sse.Hub) *ApiHandler {
	return &ApiHandler{
		orchestrator: orchestrator,
		gallery:      gallery,
		settings:     settings,
		hub:          hub,
	}
}

// RegisterHandlers mount all routes on the router.
func RegisterHandlers(router *gin.Engine, h *ApiHandler) {
	v1 := router.Group("/v1")
	{
		v1.POST("/generate", h.Generate)
		v1.GET("/runs/:id", h.RunStatus)
		v1.POST("/runs/:id/cancel", h.CancelRun)
		v1.GET("/gallery", h.ListGallery)
		v1.DELETE("/gallery", h.ClearGallery)
		v1.GET("/settings", h.GetSettings)
		v1.PUT("/settings", h.PutSettings)
		v1.GET("/models", h.ListModels)
		v1.POST("/models", h.AddModel)
		v1.DELETE("/models/*id", h.RemoveModel)
		v1.GET("/events", sse.ServeSSE(h.hub))
	}
}

// Generate start a generation run. The response carries the run id; results
// arrive on the event stream as units complete.
// (POST /v1/generate)
func (h *ApiHandler) Generate(c *gin.Context) {
	request := new(models.GenerationRequest)
	if err := getBindResult(c, request); err != nil {
		logrus.Errorf("bind generate request err=%s", err.Error())
		handleError(c, http.StatusBadRequest, config.BADREQUEST)
		return
	}
	// the run outlives this request, cancellation comes through CancelRun
	run, results, err := h.orchestrator.Generate(context.Background(), request)
	if err != nil {
		var validationErr *module.ValidationError
		if errors.As(err, &validationErr) {
			handleError(c, http.StatusBadRequest, err.Error())
			return
		}
		logrus.Errorf("generate err=%s", err.Error())
		handleError(c, http.StatusInternalServerError, config.INTERNALERROR)
		return
	}

	// drain results onto the event stream, independent of this request
	go func() {
		for result := range results {
			body, err := json.Marshal(result)
			if err != nil {
				logrus.WithFields(logrus.Fields{"runId": run.Id}).
					Errorf("marshal result err=%s", err.Error())
				continue
			}
			h.hub.Publish(run.Id, body)
		}
	}()

	c.JSON(http.StatusOK, gin.H{
		"runId":      run.Id,
		"numOutputs": run.Request.NumOutputs,
	})
}

// RunStatus terminal outcome counts for an in-flight run.
// (GET /v1/runs/:id)
func (h *ApiHandler) RunStatus(c *gin.Context) {
	run, ok := h.orchestrator.Registry().Get(c.Param("id"))
	if !ok {
		handleError(c, http.StatusNotFound, config.NOTFOUND)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"runId":  run.Id,
		"counts": run.Counts(),
	})
}

// CancelRun propagate cancellation to all pending units of a run.
// (POST /v1/runs/:id/cancel)
func (h *ApiHandler) CancelRun(c *gin.Context) {
	runId := c.Param("id")
	run, ok := h.orchestrator.Registry().Get(runId)
	if !ok {
		handleError(c, http.StatusNotFound, config.NOTFOUND)
		return
	}
	run.Cancel()
	logrus.WithFields(logrus.Fields{"runId": runId}).Info("run cancelled")
	c.JSON(http.StatusOK, gin.H{"message": "cancel requested"})
}

// ListGallery point-in-time gallery snapshot in completion order.
// (GET /v1/gallery)
func (h *ApiHandler) ListGallery(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"entries": h.gallery.Snapshot()})
}

// ClearGallery drop all gallery entries, including persisted history.
// (DELETE /v1/gallery)
func (h *ApiHandler) ClearGallery(c *gin.Context) {
	h.gallery.Clear()
	c.JSON(http.StatusOK, gin.H{"message": "gallery cleared"})
}

// GetSettings current settings record. The api key is masked.
// (GET /v1/settings)
func (h *ApiHandler) GetSettings(c *gin.Context) {
	record := h.settings.Get()
	masked := *record
	if masked.ApiKey != "" {
		masked.ApiKey = "********"
	}
	c.JSON(http.StatusOK, masked)
}

// PutSettings replace the whole settings record.
// (PUT /v1/settings)
func (h *ApiHandler) PutSettings(c *gin.Context) {
	record := new(module.SettingsRecord)
	if err := getBindResult(c, record); err != nil {
		handleError(c, http.StatusBadRequest, config.BADREQUEST)
		return
	}
	// a masked key in the payload means keep the stored one
	if record.ApiKey == "" || record.ApiKey == "********" {
		record.ApiKey = h.settings.ApiKey()
	}
	if err := h.settings.Set(record); err != nil {
		logrus.Errorf("save settings err=%s", err.Error())
		handleError(c, http.StatusInternalServerError, config.INTERNALERROR)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "settings saved"})
}

// ListModels saved model identifiers in display order.
// (GET /v1/models)
func (h *ApiHandler) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": h.settings.Models()})
}

// AddModel save a model identifier, duplicates are a no-op.
// (POST /v1/models)
func (h *ApiHandler) AddModel(c *gin.Context) {
	body := new(struct {
		Model string `json:"model"`
	})
	if err := getBindResult(c, body); err != nil {
		handleError(c, http.StatusBadRequest, config.BADREQUEST)
		return
	}
	if err := h.settings.AddModel(body.Model); err != nil {
		handleError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": h.settings.Models()})
}

// RemoveModel drop a saved model identifier.
// (DELETE /v1/models/*id)
func (h *ApiHandler) RemoveModel(c *gin.Context) {
	// wildcard params keep a leading slash, model ids contain slashes
	id := c.Param("id")
	if len(id) > 0 && id[0] == '/' {
		id = id[1:]
	}
	if err := h.settings.RemoveModel(id); err != nil {
		logrus.Errorf("remove model err=%s", err.Error())
		handleError(c, http.StatusInternalServerError, config.INTERNALERROR)
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": h.settings.Models()})
}
