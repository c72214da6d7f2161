package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/docharbor/docharbor/internal/core"
)

// FakeStorage is an in-memory core.ObjectClient.
type FakeStorage struct {
	mu      sync.Mutex
	Objects map[string][]byte
	ReadErr error
}

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{Objects: make(map[string][]byte)}
}

var _ core.ObjectClient = (*FakeStorage)(nil)

func (s *FakeStorage) Save(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *FakeStorage) Read(_ context.Context, key string) ([]byte, error) {
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.Objects[key]
	if !ok {
		return nil, fmt.Errorf("no such object: %s", key)
	}
	return append([]byte(nil), data...), nil
}

func (s *FakeStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Objects, key)
	return nil
}

func (s *FakeStorage) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://storage.example/" + key, nil
}

// FakeQueue is an in-memory core.QueueClient. Each Receive call returns the
// next pending batch; when drained it returns nothing.
type FakeQueue struct {
	mu      sync.Mutex
	Pending []core.QueueMessage
	Sent    []string
	Deleted []string
	SendErr error

	// OnDrained, if set, runs the first time Receive finds no messages
	// (used by tests to cancel the consumer loop).
	OnDrained func()
	drained   bool
}

var _ core.QueueClient = (*FakeQueue)(nil)

func (q *FakeQueue) Send(_ context.Context, body string) error {
	if q.SendErr != nil {
		return q.SendErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Sent = append(q.Sent, body)
	return nil
}

func (q *FakeQueue) Receive(ctx context.Context) ([]core.QueueMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.Pending) == 0 {
		if q.OnDrained != nil && !q.drained {
			q.drained = true
			q.OnDrained()
		}
		return nil, nil
	}
	batch := q.Pending
	q.Pending = nil
	return batch, nil
}

func (q *FakeQueue) Delete(_ context.Context, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Deleted = append(q.Deleted, receiptHandle)
	return nil
}

// FakeEmbedder is a deterministic core.EmbeddingProvider: the vector encodes
// the text length so distinct chunks stay distinguishable.
type FakeEmbedder struct {
	Err   error
	Calls []string
}

var _ core.EmbeddingProvider = (*FakeEmbedder)(nil)

func (e *FakeEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	e.Calls = append(e.Calls, text)
	return []float32{float32(len(text)), 1, 0}, nil
}

// FakeLLM is a scripted core.StreamingLLM emitting a fixed delta sequence.
type FakeLLM struct {
	Deltas  []string
	Err     error
	Prompts []string
}

var _ core.StreamingLLM = (*FakeLLM)(nil)

func (l *FakeLLM) StreamCompletion(_ context.Context, systemPrompt, userPrompt string, onDelta func(string) error) error {
	if l.Err != nil {
		return l.Err
	}
	l.Prompts = append(l.Prompts, systemPrompt, userPrompt)
	for _, d := range l.Deltas {
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return nil
}

// WordEncoding is a deterministic word-level core.Encoding for tests.
type WordEncoding struct {
	mu    sync.Mutex
	ids   map[string]int
	words []string
}

func NewWordEncoding() *WordEncoding {
	return &WordEncoding{ids: make(map[string]int)}
}

var _ core.Encoding = (*WordEncoding)(nil)

func (e *WordEncoding) Encode(text string) []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	var tokens []int
	for _, w := range strings.Fields(text) {
		id, ok := e.ids[w]
		if !ok {
			id = len(e.words)
			e.ids[w] = id
			e.words = append(e.words, w)
		}
		tokens = append(tokens, id)
	}
	return tokens
}

func (e *WordEncoding) Decode(tokens []int) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = e.words[t]
	}
	return strings.Join(words, " ")
}
