package main

import (
	"audit-worker/internal/config"
	"audit-worker/internal/core"
	"audit-worker/internal/core/utils"
	"audit-worker/internal/database"
	"audit-worker/internal/inference"
	"audit-worker/internal/media"
	"audit-worker/internal/reportstore"
	"audit-worker/internal/storage"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-env file] <report-id>\n", os.Args[0])
	flag.PrintDefaults()
}

func newReportStore(cfg config.ReportStoreConfig) reportstore.Store {
	switch cfg.Backend {
	case config.ReportStoreDatabase:
		db, err := database.OpenDatabase(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		return reportstore.NewDBStore(db)
	default:
		return reportstore.NewHTTPStore(cfg.APIBaseURL, cfg.ServiceToken, cfg.Timeout)
	}
}

func newObjectStore(ctx context.Context, cfg config.StorageConfig) storage.ObjectStore {
	switch cfg.Backend {
	case config.StorageLocal:
		store, err := storage.NewLocalObjectStore(cfg.LocalDir, cfg.ArtifactBucket)
		if err != nil {
			log.Fatalf("failed to create local object store: %v", err)
		}
		return store
	default:
		store, err := storage.NewS3ObjectStore(storage.S3ClientConfig{
			Endpoint:        cfg.S3EndpointURL,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		}, cfg.ArtifactBucket)
		if err != nil {
			log.Fatalf("failed to create s3 object store: %v", err)
		}
		if err := store.CreateBucket(ctx); err != nil {
			slog.Warn("unable to ensure artifact bucket exists", "bucket", cfg.ArtifactBucket, "error", err)
		}
		return store
	}
}

func main() {
	flag.Usage = usage
	config.LoadEnvFile()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	reportId := flag.Arg(0)

	cfg, err := config.LoadWorkerConfig()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}
	config.SetupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	retry := utils.RetryPolicy{MaxAttempts: cfg.Retry.MaxAttempts, BaseDelay: cfg.Retry.BaseDelay}

	store := newReportStore(cfg.ReportStore)
	objects := newObjectStore(ctx, cfg.Storage)

	client, err := inference.NewClientFromConfig(cfg.Inference, retry)
	if err != nil {
		log.Fatalf("error creating inference client: %v", err)
	}

	extractor := media.NewFFmpegExtractor(cfg.FFmpegPath, cfg.MaxFramesPerRun)

	deepfake := core.NewDeepfakePipeline(extractor, client, objects, retry, core.DeepfakeConfig{
		FramesPerSecond: cfg.FramesPerSecond,
		MaxFrames:       cfg.MaxFramesPerRun,
	})
	audit := core.NewAuditPipeline(client, objects, retry)

	processor := core.NewReportProcessor(store, deepfake, audit, retry, cfg.WorkDir)

	if err := processor.ProcessReport(ctx, reportId); err != nil {
		slog.Error("report processing failed", "report_id", reportId, "error", err)
		stop()
		os.Exit(1)
	}

	slog.Info("report processed", "report_id", reportId)
}
