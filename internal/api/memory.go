package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// MemoryRecord is one row of the `core_memory` table (spec §6 storage
// surface): a durable note an agent can recall across tasks, separate from
// the capped ActiveContextSnapshot carried on every TaskEnvelope.
type MemoryRecord struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	AgentID   string    `json:"agentId"`
	CreatedAt time.Time `json:"createdAt"`
}

// MemoryStore is the `core_memory` persistence boundary for the API layer.
// The production implementation will be ent-backed; MemoryMemoryStore here
// is the in-process test double, mirroring the Store/MemoryStore split used
// throughout (internal/approval, internal/reinforce).
type MemoryStore interface {
	List(q, recordType string, limit int) ([]MemoryRecord, error)
	Get(id string) (MemoryRecord, bool)
	Delete(id string) bool
}

// MemoryMemoryStore is an in-process MemoryStore.
type MemoryMemoryStore struct {
	mu      sync.RWMutex
	records map[string]MemoryRecord
}

// NewMemoryMemoryStore constructs an empty in-process store.
func NewMemoryMemoryStore() *MemoryMemoryStore {
	return &MemoryMemoryStore{records: map[string]MemoryRecord{}}
}

// Put inserts or replaces a record; used by tests and by whatever component
// eventually persists agent-authored memories.
func (s *MemoryMemoryStore) Put(r MemoryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.ID] = r
}

func (s *MemoryMemoryStore) List(q, recordType string, limit int) ([]MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []MemoryRecord
	for _, r := range s.records {
		if recordType != "" && r.Type != recordType {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(r.Content), strings.ToLower(q)) {
			continue
		}
		out = append(out, r)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryMemoryStore) Get(id string) (MemoryRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	return r, ok
}

func (s *MemoryMemoryStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return false
	}
	delete(s.records, id)
	return true
}

func (s *Server) handleMemoryList(c *gin.Context) {
	q := c.Query("q")
	recordType := c.Query("type")
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid limit: %v", err)})
			return
		}
		limit = n
	}

	records, err := s.memory.List(q, recordType, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) handleMemoryGet(c *gin.Context) {
	r, ok := s.memory.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "memory record not found"})
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) handleMemoryDelete(c *gin.Context) {
	if !s.memory.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "memory record not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
