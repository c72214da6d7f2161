package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/docharbor/docharbor/internal/app"
	"github.com/docharbor/docharbor/internal/config"
	"github.com/docharbor/docharbor/internal/core/chunker"
	"github.com/docharbor/docharbor/internal/core/embedstore"
	"github.com/docharbor/docharbor/internal/core/extract"
	"github.com/docharbor/docharbor/internal/worker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM for graceful shutdown
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		<-c
		cancel()
	}()

	cfg := config.LoadConfig()
	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer application.Close()

	if application.QueueClient == nil {
		log.Fatal("SQS_QUEUE_URL must be configured for the worker")
	}

	enc, err := chunker.EncodingForModel(cfg.EmbedModel)
	if err != nil {
		log.Fatalf("load token encoding: %v", err)
	}

	consumer := worker.NewConsumer(
		application.DBClient,
		application.ObjectClient,
		application.QueueClient,
		extract.New(),
		application.Embedder,
		embedstore.NewWriter(application.DBClient, cfg.WriteBatchSize),
		enc,
		worker.ConsumerConfig{
			ChunkSize:      cfg.ChunkSize,
			ChunkOverlap:   cfg.ChunkOverlap,
			DeleteMessages: cfg.DeleteMessages,
		},
	)

	if err := consumer.Run(ctx); err != nil {
		log.Fatalf("worker error: %v", err)
	}
}
