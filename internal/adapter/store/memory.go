package store

import (
	"sync"

	"docchat/internal/domain"
)

// MemoryIndexStore keeps index records in memory. Used by tests and by
// ephemeral runs that should not touch disk.
type MemoryIndexStore struct {
	mu      sync.RWMutex
	records map[string]*domain.IndexRecord
}

func NewMemoryIndexStore() *MemoryIndexStore {
	return &MemoryIndexStore{records: make(map[string]*domain.IndexRecord)}
}

func (s *MemoryIndexStore) Save(key string, record *domain.IndexRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := &domain.IndexRecord{
		DocumentPath: record.DocumentPath,
		Chunks:       append([]string(nil), record.Chunks...),
		Embeddings:   make([][]float32, len(record.Embeddings)),
		Model:        record.Model,
	}
	for i, vec := range record.Embeddings {
		stored.Embeddings[i] = append([]float32(nil), vec...)
	}
	s.records[key] = stored
	return nil
}

func (s *MemoryIndexStore) Load(key string) (*domain.IndexRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[key]
	if !ok {
		return nil, false, nil
	}
	return record, true, nil
}
