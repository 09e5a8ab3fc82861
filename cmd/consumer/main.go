package main

import (
	"audit-worker/internal/config"
	"audit-worker/internal/messaging"
	"context"
	"errors"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
)

func main() {
	log.Println("starting report consumer...")

	config.LoadEnvFile()

	cfg, err := config.LoadQueueConfig()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}
	config.SetupLogging(cfg.LogLevel)

	receiver, err := messaging.NewRabbitMQReceiver(cfg.RabbitMQURL, cfg.ReportQueue)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer receiver.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	launcher := messaging.NewLauncher(receiver, messaging.NewProcessRunner(cfg.WorkerBinary))

	slog.Info("consuming report tasks", "queue", cfg.ReportQueue, "worker", cfg.WorkerBinary)
	if err := launcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("launcher stopped: %v", err)
	}

	log.Println("consumer stopped.")
}
