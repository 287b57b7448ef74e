package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rtuszik/flux-gallery/pkg/config"
	"github.com/rtuszik/flux-gallery/pkg/datastore"
	"github.com/rtuszik/flux-gallery/pkg/handler"
	"github.com/rtuszik/flux-gallery/pkg/module"
	"github.com/rtuszik/flux-gallery/pkg/sse"
	"github.com/sirupsen/logrus"
)

type Server struct {
	srv          *http.Server
	taskStore    datastore.Datastore
	galleryStore datastore.Datastore
	settings     *module.SettingsManager
}

func NewServer(cfg *config.Config) (*Server, error) {
	// settings first, the client token falls back to them
	settings := module.NewSettingsManager(cfg.SettingsFile)
	if _, err := settings.Load(); err != nil {
		logrus.Warnf("settings load: %v, using defaults", err)
	}

	tableFactory := datastore.DatastoreFactory{}
	taskStore := tableFactory.NewTable(datastore.SQLite, cfg.DbSqlite, datastore.KTaskTableName)
	galleryStore := tableFactory.NewTable(datastore.SQLite, cfg.DbSqlite, datastore.KGalleryTableName)

	gallery := module.NewGallery(galleryStore)
	if err := gallery.LoadHistory(); err != nil {
		logrus.Errorf("gallery history load err=%s", err.Error())
	}

	token := func() string {
		if cfg.ApiToken != "" {
			return cfg.ApiToken
		}
		return settings.ApiKey()
	}
	client := module.NewReplicateClient(cfg, token)
	fetcher := module.NewFetcher(cfg)
	orchestrator := module.NewOrchestrator(cfg, client, fetcher, gallery, settings, taskStore)
	hub := sse.NewHub()

	apiHandler := handler.NewApiHandler(orchestrator, gallery, settings, hub)

	if cfg.GinMode == gin.DebugMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(CORSMiddleware())
	router.Use(gin.Logger(), gin.Recovery())
	handler.RegisterHandlers(router, apiHandler)

	return &Server{
		srv: &http.Server{
			Addr:    net.JoinHostPort("0.0.0.0", cfg.ListenPort),
			Handler: router,
		},
		taskStore:    taskStore,
		galleryStore: galleryStore,
		settings:     settings,
	}, nil
}

// Start serve until shutdown.
func (s *Server) Start() error {
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logrus.Fatalf("listen: %s\n", err)
		return err
	}
	return nil
}

// Close shutdown the server, timeout=shutdownTimeout
func (s *Server) Close(shutdownTimeout time.Duration) error {
	if s.taskStore != nil {
		s.taskStore.Close()
	}
	if s.galleryStore != nil {
		s.galleryStore.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		logrus.Fatal("Server forced to shutdown: ", err)
		return err
	}
	return nil
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "false")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
