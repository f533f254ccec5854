package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/fitscore/internal/domain/model"
	"github.com/okian/fitscore/pkg/logger"
	"github.com/okian/fitscore/pkg/metrics"
)

// MemoryStore keeps collections in process memory. Records are lost on restart.
type MemoryStore struct {
	settings

	mu          sync.RWMutex
	collections map[string][]model.Candidate
	closed      bool

	// pubMu orders "read snapshot, publish" pairs so a newer listing is never
	// overtaken by an older one.
	pubMu sync.Mutex
	hub   *hub
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		settings:    applyOptions(opts),
		collections: make(map[string][]model.Candidate),
		hub:         newHub(),
	}
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, path string, record model.Candidate) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: %w", ErrWrite, ErrInvalidPath)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrWrite, err)
	}
	start := time.Now()

	record.ID = s.newID()
	record.CreatedAt = s.now()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %w", ErrWrite, ErrClosed)
	}
	s.collections[path] = append(s.collections[path], record)
	total := len(s.collections[path])
	s.mu.Unlock()

	metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	s.log.Debug(ctx, "record created",
		logger.String("path", path),
		logger.String("id", record.ID),
		logger.Int("records", total))

	s.refresh(path)
	return record.ID, nil
}

// refresh publishes the current listing of path.
func (s *MemoryStore) refresh(path string) {
	if !s.hub.watching(path) {
		return
	}
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.hub.publish(path, s.read(path))
}

func (s *MemoryStore) read(path string) []model.Candidate {
	start := time.Now()
	s.mu.RLock()
	out := append([]model.Candidate(nil), s.collections[path]...)
	s.mu.RUnlock()
	metrics.RecordStoreSnapshot(float64(time.Since(start).Milliseconds()), len(out))
	return out
}

// Subscribe implements Store.
func (s *MemoryStore) Subscribe(ctx context.Context, path string, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}
	sub := newSubscription(onSnapshot, onError)

	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if !s.hub.add(path, sub) {
		sub.Unsubscribe()
		return nil, ErrClosed
	}
	sub.offer(s.read(path))
	s.log.Debug(ctx, "subscribed", logger.String("path", path))
	return sub, nil
}

// Snapshot implements Store.
func (s *MemoryStore) Snapshot(ctx context.Context, path string) ([]model.Candidate, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("%w: %w", ErrRead, ErrClosed)
	}
	return s.read(path), nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.hub.close(ErrClosed)
	return nil
}
