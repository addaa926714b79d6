package approval

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-process Store, used by tests and by a single-replica
// deployment that doesn't need cross-pod durability.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]Request
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: map[string]Request{}}
}

func (s *MemoryStore) Insert(_ context.Context, req Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[req.ID]; exists {
		return fmt.Errorf("approval request %s already exists", req.ID)
	}
	s.rows[req.ID] = req
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.rows[id]
	if !ok {
		return Request{}, fmt.Errorf("approval request %s not found", id)
	}
	return req, nil
}

// FindPendingByTask returns the pending request for taskID, if any. Used by
// the API layer to resolve a WebSocket approve/decline message, which names
// the task (not the request) per spec §6's `{type:"approve"|"decline",
// taskId}` contract — at most one request is pending per task at a time.
func (s *MemoryStore) FindPendingByTask(_ context.Context, taskID string) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, req := range s.rows {
		if req.TaskID == taskID && req.Status == StatusPending {
			return req, nil
		}
	}
	return Request{}, fmt.Errorf("no pending approval request for task %s", taskID)
}

func (s *MemoryStore) ResolveIfPending(_ context.Context, id string, status Status, resolvedBy, reason, correction string, autoResolved bool) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.rows[id]
	if !ok {
		return Request{}, fmt.Errorf("approval request %s not found", id)
	}
	if req.Status != StatusPending {
		return req, ErrNotPending
	}

	req.Status = status
	req.ResolvedBy = resolvedBy
	req.ResolvedAt = time.Now()
	req.ResolutionReason = reason
	req.CorrectionContent = correction
	req.AutoResolved = autoResolved
	s.rows[id] = req
	return req, nil
}
