package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/docharbor/docharbor/internal/config"
	"github.com/docharbor/docharbor/internal/core"
	db "github.com/docharbor/docharbor/internal/core/database"
	"github.com/docharbor/docharbor/internal/core/llm"
	objectclient "github.com/docharbor/docharbor/internal/core/object-client"
	"github.com/docharbor/docharbor/internal/core/queue"
	"github.com/docharbor/docharbor/internal/services"
)

// App holds the shared infrastructure both binaries build on. The generation
// backend is api-only, so the worker never pays for (or fails on) it.
type App struct {
	Cfg          *config.Config
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	QueueClient  core.QueueClient // nil when SQS_QUEUE_URL is not configured
	Embedder     core.EmbeddingProvider

	Documents *services.DocumentService
	Users     *services.UserService
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	objClient, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Object client initialized and ready.")

	// A missing queue URL is tolerated at startup: saves still work, every
	// enqueue attempt records the configuration error on the document.
	var queueClient core.QueueClient
	sqsClient, err := queue.NewSQSClient(appCtx, cfg)
	switch {
	case err == nil:
		queueClient = sqsClient
	case errors.Is(err, core.ErrQueueURLNotSet):
		log.Printf("WARN: %v; embedding jobs cannot be enqueued", err)
	default:
		return nil, err
	}

	embedder, err := llm.NewEmbedderFromConfig(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize embedder: %w", err)
	}

	return &App{
		Cfg:          cfg,
		DBClient:     dbClient,
		ObjectClient: objClient,
		QueueClient:  queueClient,
		Embedder:     embedder,
		Documents:    services.NewDocumentService(dbClient, objClient, queueClient),
		Users:        services.NewUserService(dbClient),
	}, nil
}

// NewInquiryService builds the query path on top of the shared
// infrastructure.
func (a *App) NewInquiryService(ctx context.Context) (*services.InquiryService, error) {
	llmProvider, err := llm.NewLLMFromConfig(ctx, a.Cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize llm: %w", err)
	}
	return services.NewInquiryService(a.DBClient, a.Embedder, llmProvider, a.Cfg.DocumentTypes), nil
}

func (a *App) Close() {
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
