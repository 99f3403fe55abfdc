// Package queue holds transactions taken while the till has no connection
// to the central store. A queued sale already settled locally; the queue
// only carries the record until the next flush.
package queue

import (
	"context"
	"sync"

	"dhukaan/backend/internal/domain"
)

type OfflineQueue interface {
	Enqueue(ctx context.Context, tx domain.Transaction) error
	// List returns queued transactions oldest first without removing them.
	List(ctx context.Context) ([]domain.Transaction, error)
	// Clear drops everything; callers clear only after a successful flush.
	Clear(ctx context.Context) error
	Len(ctx context.Context) (int, error)
}

type MemoryQueue struct {
	mu      sync.Mutex
	pending []domain.Transaction
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{pending: make([]domain.Transaction, 0, 16)}
}

func (q *MemoryQueue) Enqueue(_ context.Context, tx domain.Transaction) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, tx)
	return nil
}

func (q *MemoryQueue) List(_ context.Context) ([]domain.Transaction, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.Transaction, len(q.pending))
	copy(out, q.pending)
	return out, nil
}

func (q *MemoryQueue) Clear(_ context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = q.pending[:0]
	return nil
}

func (q *MemoryQueue) Len(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending), nil
}
