package main

import (
	"fmt"
	"os"

	"github.com/thereayou/workspace-chat/internal/config"
	"github.com/thereayou/workspace-chat/internal/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.IsProduction(), cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	srv, err := NewServer(cfg, log)
	if err != nil {
		log.Fatal("server init failed", zap.Error(err))
	}

	if err := srv.Run(); err != nil {
		log.Fatal("server stopped with error", zap.Error(err))
	}
	log.Info("server stopped")
}
