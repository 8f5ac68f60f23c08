// Package task persists agent-to-agent task records so callers can poll
// task state after message/send returns.
package task

import (
	"context"
	"sync"

	"github.com/kailas-cloud/nfagent/internal/domain"
	domtask "github.com/kailas-cloud/nfagent/internal/domain/task"
)

// Store is the task persistence contract.
type Store interface {
	Save(ctx context.Context, t domtask.Task) error
	Get(ctx context.Context, id string) (domtask.Task, error)
}

// MemoryStore keeps tasks in process memory. Records live until the process
// exits; suitable for a single-instance deployment.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]domtask.Task
}

// NewMemoryStore creates an in-memory task store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]domtask.Task)}
}

var _ Store = (*MemoryStore)(nil)

// Save stores or overwrites a task record.
func (s *MemoryStore) Save(_ context.Context, t domtask.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
	return nil
}

// Get returns a task by id or domain.ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, id string) (domtask.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return domtask.Task{}, domain.ErrNotFound
	}
	return t, nil
}
