package main

import (
	"audit-worker/internal/config"
	"audit-worker/internal/database"
	"audit-worker/internal/messaging"
	"audit-worker/internal/reportstore"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"
)

var (
	createType = flag.String("create", "", "create a pending report of this type (audit|deepfake) before enqueueing it; database mode only")
	fileURL    = flag.String("file", "", "fileUrl of the report created with -create")
	metadata   = flag.String("metadata", "", "JSON metadata of the report created with -create")
	pending    = flag.Bool("pending", false, "enqueue every pending report in the database")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-env file] [-create type -file url -metadata json] [-pending] [report-id...]\n", os.Args[0])
	flag.PrintDefaults()
}

func openStore(cfg config.ReportStoreConfig) *reportstore.DBStore {
	if cfg.Backend != config.ReportStoreDatabase {
		log.Fatalf("-create and -pending require REPORT_STORE=%s", config.ReportStoreDatabase)
	}
	db, err := database.OpenDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return reportstore.NewDBStore(db)
}

func main() {
	flag.Usage = usage
	config.LoadEnvFile()

	cfg, err := config.LoadQueueConfig()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}
	config.SetupLogging(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ids := flag.Args()

	if *createType != "" || *pending {
		store := openStore(cfg.ReportStore)

		if *createType != "" {
			report := reportstore.Report{Type: *createType, FileURL: *fileURL}
			if *metadata != "" {
				if err := json.Unmarshal([]byte(*metadata), &report.Metadata); err != nil {
					log.Fatalf("invalid -metadata: %v", err)
				}
			}
			created, err := store.Create(ctx, report)
			if err != nil {
				log.Fatalf("error creating report: %v", err)
			}
			log.Printf("created %s report %s", created.Type, created.Id)
			ids = append(ids, created.Id)
		}

		if *pending {
			pendingIds, err := store.Pending(ctx)
			if err != nil {
				log.Fatalf("error listing pending reports: %v", err)
			}
			ids = append(ids, pendingIds...)
		}
	}

	if len(ids) == 0 {
		usage()
		os.Exit(2)
	}

	publisher, err := messaging.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.ReportQueue)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer publisher.Close()

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		if err := publisher.PublishReportTask(ctx, messaging.ReportTaskPayload{ReportId: id}); err != nil {
			log.Fatalf("error publishing report %s: %v", id, err)
		}
		fmt.Println(id)
	}
}
