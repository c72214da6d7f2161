package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docharbor/docharbor/internal/core"
	"github.com/docharbor/docharbor/internal/core/chunker"
	"github.com/docharbor/docharbor/internal/core/embedstore"
	"github.com/docharbor/docharbor/internal/models"
)

// receiveBackoff paces retries after a failed queue receive so a broken
// queue connection does not spin the loop.
const receiveBackoff = 5 * time.Second

// Consumer is the queue-driven ingestion worker. One message is processed
// fully before the next; several worker processes may poll the same queue,
// relying on the queue's visibility timeout for job exclusivity. Duplicate
// delivery is safe because embedding replacement is idempotent.
type Consumer struct {
	db        core.DbClient
	storage   core.ObjectClient
	queue     core.QueueClient
	extractor core.TextExtractor
	embedder  core.EmbeddingProvider
	writer    *embedstore.Writer
	enc       core.Encoding

	chunkSize      int
	chunkOverlap   int
	deleteMessages bool
}

type ConsumerConfig struct {
	ChunkSize      int
	ChunkOverlap   int
	DeleteMessages bool
}

func NewConsumer(
	db core.DbClient,
	storage core.ObjectClient,
	queue core.QueueClient,
	extractor core.TextExtractor,
	embedder core.EmbeddingProvider,
	writer *embedstore.Writer,
	enc core.Encoding,
	cfg ConsumerConfig,
) *Consumer {
	return &Consumer{
		db:             db,
		storage:        storage,
		queue:          queue,
		extractor:      extractor,
		embedder:       embedder,
		writer:         writer,
		enc:            enc,
		chunkSize:      cfg.ChunkSize,
		chunkOverlap:   cfg.ChunkOverlap,
		deleteMessages: cfg.DeleteMessages,
	}
}

// Run polls the queue until ctx is cancelled. Cancellation is checked between
// jobs: a job either completes or is left failed for redelivery.
func (c *Consumer) Run(ctx context.Context) error {
	log.Println("ingestion worker started")
	for {
		select {
		case <-ctx.Done():
			log.Println("ingestion worker stopping")
			return nil
		default:
		}

		msgs, err := c.queue.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("ingestion worker stopping")
				return nil
			}
			log.Printf("queue receive failed: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(receiveBackoff):
			}
			continue
		}

		for _, msg := range msgs {
			c.handleMessage(ctx, msg)
		}
	}
}

// handleMessage isolates a single message: any failure is recorded on the
// document and never stops the loop.
func (c *Consumer) handleMessage(ctx context.Context, msg core.QueueMessage) {
	payload, err := ParsePayload(msg.Body)
	if err != nil {
		log.Printf("skipping undecodable message: %v", err)
		c.ack(ctx, msg)
		return
	}
	if !payload.Resolvable() {
		log.Printf("skipping message without document_id or storage key")
		c.ack(ctx, msg)
		return
	}

	doc, err := c.resolveDocument(ctx, payload)
	if err != nil {
		// Transient lookup failure: leave the message for redelivery.
		log.Printf("resolve document: %v", err)
		return
	}
	if doc == nil {
		log.Printf("message references missing document %q, skipping", payload.DocumentID)
		c.ack(ctx, msg)
		return
	}

	if err := c.runPipeline(ctx, doc, payload.Metadata); err != nil {
		log.Printf("document %s embedding failed: %v", doc.ID, err)
		if dbErr := c.db.SetEmbeddingStatus(ctx, doc.ID, models.EmbeddingStatusFailed, err.Error()); dbErr != nil {
			log.Printf("document %s: record failure: %v", doc.ID, dbErr)
		}
		// Not acknowledged: the queue's redelivery policy owns the retry.
		return
	}

	c.ack(ctx, msg)
}

func (c *Consumer) ack(ctx context.Context, msg core.QueueMessage) {
	if !c.deleteMessages {
		return
	}
	if err := c.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		log.Printf("delete message: %v", err)
	}
}

// resolveDocument finds the referenced document, creating one from the
// storage location when the payload carries only a bucket/key. (nil, nil)
// means the reference points at nothing and the message should be skipped.
func (c *Consumer) resolveDocument(ctx context.Context, p *Payload) (*models.Document, error) {
	if p.DocumentID != "" {
		return c.db.GetDocumentByID(ctx, p.DocumentID)
	}

	// One Document per storage key, however many events the bucket emits.
	doc, err := c.db.GetDocumentByStorageKey(ctx, p.Key)
	if err != nil || doc != nil {
		return doc, err
	}

	name, err := c.availableName(ctx, p.DisplayName())
	if err != nil {
		return nil, err
	}

	filename := p.OriginalFilename
	if filename == "" {
		filename = p.DisplayName()
	}

	doc = &models.Document{
		ID:               uuid.NewString(),
		Name:             name,
		Description:      p.Description,
		DocumentType:     p.DocumentType,
		OriginalFilename: filename,
		StorageKey:       p.Key,
		StorageProvider:  "s3",
		EmbeddingStatus:  models.EmbeddingStatusPending,
	}
	if err := c.db.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document for %s: %w", p.Key, err)
	}
	log.Printf("created document %s (%s) from storage event", doc.ID, doc.Name)
	return doc, nil
}

// availableName disambiguates a requested display name against existing
// documents by appending an incrementing numeric suffix.
func (c *Consumer) availableName(ctx context.Context, name string) (string, error) {
	candidate := name
	for i := 2; ; i++ {
		existing, err := c.db.GetDocumentByName(ctx, candidate)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", name, i)
	}
}

// runPipeline converts a panic from any pipeline stage (extraction library on
// a malformed file, provider SDK edge case) into an ordinary per-document
// failure, so it lands on the document instead of killing the consumer loop.
func (c *Consumer) runPipeline(ctx context.Context, doc *models.Document, metadata map[string]string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()
	return c.process(ctx, doc, metadata)
}

// process drives one document through extract -> chunk -> embed -> replace.
func (c *Consumer) process(ctx context.Context, doc *models.Document, metadata map[string]string) error {
	if err := c.db.SetEmbeddingStatus(ctx, doc.ID, models.EmbeddingStatusProcessing, ""); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	data, err := c.storage.Read(ctx, doc.StorageKey)
	if err != nil {
		return fmt.Errorf("download %s: %w", doc.StorageKey, err)
	}

	text := c.extractor.Extract(doc.ContentType, doc.OriginalFilename, data)
	if strings.TrimSpace(text) == "" {
		return errors.New("no text content extracted")
	}

	chunks, err := chunker.Chunk(c.enc, text, c.chunkSize, c.chunkOverlap)
	if err != nil {
		return fmt.Errorf("chunk: %w", err)
	}

	written, err := c.writer.Replace(ctx, doc, chunks, c.embedder.EmbedText, metadata)
	if err != nil {
		return err
	}
	log.Printf("document %s: wrote %d embedding rows", doc.ID, written)

	return c.db.SetEmbeddingStatus(ctx, doc.ID, models.EmbeddingStatusEmbedded, "")
}
