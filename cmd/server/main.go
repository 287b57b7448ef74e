package main

import (
	"flag"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rtuszik/flux-gallery/pkg/config"
	"github.com/rtuszik/flux-gallery/pkg/log"
	"github.com/rtuszik/flux-gallery/pkg/server"
	"github.com/sirupsen/logrus"
)

const (
	shutdownTimeout   = 5 * time.Second
	defaultConfigPath = "config.yaml"
)

func handleSignal() {
	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stdlog.Println("Shutting down server...")
}

func main() {
	port := flag.String("port", "", "server listen port, overrides config")
	configFile := flag.String("config", defaultConfigPath, "config file path")
	dbFile := flag.String("db", "", "sqlite database path, overrides config")
	flag.Parse()

	cfg, err := config.InitConfig(*configFile)
	if err != nil {
		logrus.Warnf("config: %v, using defaults", err)
	}
	if *port != "" {
		cfg.ListenPort = *port
	}
	if *dbFile != "" {
		cfg.DbSqlite = *dbFile
	}
	log.Init(cfg.LogLevel, cfg.LogFormat)

	srv, err := server.NewServer(cfg)
	if err != nil {
		stdlog.Fatal("server init fail")
	}
	go srv.Start()
	logrus.Infof("listening on :%s", cfg.ListenPort)

	// wait shutdown signal
	handleSignal()

	if err := srv.Close(shutdownTimeout); err != nil {
		stdlog.Fatal("Shutdown server fail")
	}

	stdlog.Println("Server exiting")
}
