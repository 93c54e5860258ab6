package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/lthuynh/NeuralNGenAI/internal/bootstrap"
	"github.com/lthuynh/NeuralNGenAI/internal/config"
	"github.com/lthuynh/NeuralNGenAI/internal/observability"
)

func main() {
	configPath := flag.String("config", os.Getenv("NGEN_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		log.Fatalf("setup logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.InitTracingFromEnv(cfg.AppName)
	if err != nil {
		logger.Fatal("init tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	d, err := bootstrap.NewDispatcher(cfg, logger)
	if err != nil {
		logger.Fatal("bootstrap dispatcher", zap.Error(err))
	}
	server, err := bootstrap.NewServer(cfg, d, logger)
	if err != nil {
		logger.Fatal("bootstrap gateway", zap.Error(err))
	}

	logger.Info("api-gateway listening", zap.String("addr", cfg.Listen))
	if err := http.ListenAndServe(cfg.Listen, server.Handler()); err != nil {
		logger.Fatal("api-gateway failed", zap.Error(err))
	}
}
