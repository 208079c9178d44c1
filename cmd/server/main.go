package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cartelera/signage-backend/internal/conf"
	"github.com/cartelera/signage-backend/internal/content/biz"
	"github.com/cartelera/signage-backend/internal/content/data"
	"github.com/cartelera/signage-backend/internal/content/service"
	"github.com/cartelera/signage-backend/internal/content/types"
	"github.com/cartelera/signage-backend/internal/pkg/logger"
	pkgminio "github.com/cartelera/signage-backend/internal/pkg/minio"
	"github.com/cartelera/signage-backend/internal/pkg/sse"
	"github.com/cartelera/signage-backend/internal/pkg/workerpool"
	"github.com/cartelera/signage-backend/internal/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := conf.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := &logger.Config{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		Output:           cfg.Log.Output,
		EnableCaller:     cfg.Log.EnableCaller,
		EnableStacktrace: cfg.Log.EnableStacktrace,
		File: logger.FileConfig{
			Filename:   cfg.Log.File.Filename,
			MaxSize:    cfg.Log.File.MaxSize,
			MaxAge:     cfg.Log.File.MaxAge,
			MaxBackups: cfg.Log.File.MaxBackups,
			Compress:   cfg.Log.File.Compress,
		},
	}
	if err := logger.InitGlobal(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	lgr := logger.L()
	defer lgr.Sync()

	minioClient, err := pkgminio.NewClient(&pkgminio.Config{
		Endpoint:        cfg.MinIO.Endpoint,
		AccessKeyID:     cfg.MinIO.AccessKey,
		SecretAccessKey: cfg.MinIO.SecretKey,
		UseSSL:          cfg.MinIO.UseSSL,
	}, lgr.Logger)
	if err != nil {
		lgr.Fatal("failed to create minio client", zap.Error(err))
	}
	defer minioClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store := data.NewMinIOBlobStore(minioClient, cfg.Content.Bucket, lgr)
	if err := store.EnsureBucket(ctx); err != nil {
		lgr.Fatal("failed to ensure bucket", zap.Error(err))
	}

	registry := biz.NewStageRegistry(store, cfg.Content.PublicBaseURL, lgr)
	for _, stage := range types.Stages {
		if err := registry.Load(ctx, stage); err != nil {
			lgr.Fatal("failed to load stage collection",
				zap.String("stage", string(stage)),
				zap.Error(err),
			)
		}
	}

	pool, err := workerpool.New(&workerpool.Config{Workers: cfg.Content.DeleteWorkers}, lgr.Logger)
	if err != nil {
		lgr.Fatal("failed to create worker pool", zap.Error(err))
	}
	defer pool.Shutdown()

	hub := sse.NewHub()
	publisher := service.NewHubPublisher(hub)
	ledger := biz.NewUploadLedger()

	uc := biz.NewContentUseCase(registry, ledger, store, publisher, pool, lgr)
	svc := service.NewContentService(uc, store, hub, cfg.Content, lgr)

	srv := server.NewHTTPServer(cfg.Server, svc, lgr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			lgr.Fatal("http server failed", zap.Error(err))
		}
	case sig := <-quit:
		lgr.Info("shutting down", zap.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			lgr.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}
