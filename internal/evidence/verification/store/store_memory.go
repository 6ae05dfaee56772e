package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"idproxy/internal/evidence/verification/models"
	"idproxy/pkg/platform/sentinel"
)

// InMemoryStore keeps request log records in memory. Used by tests and when
// no database is configured.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]models.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[uuid.UUID]models.Record)}
}

func (s *InMemoryStore) Save(_ context.Context, record *models.Record) error {
	if record == nil {
		return fmt.Errorf("record is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *record
	stored.Sources = append([]string(nil), record.Sources...)
	s.records[record.ID] = stored
	return nil
}

// FindByID returns sentinel.ErrNotFound for unknown ids.
func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	record.Sources = append([]string(nil), record.Sources...)
	return &record, nil
}

// Len reports how many records are stored.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// All returns copies of every stored record in no particular order.
func (s *InMemoryStore) All() []*models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Record, 0, len(s.records))
	for _, r := range s.records {
		record := r
		record.Sources = append([]string(nil), r.Sources...)
		out = append(out, &record)
	}
	return out
}
