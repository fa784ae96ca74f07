package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"docchat/internal/domain"
)

// FileIndexStore persists one index record per document key as a JSON file
// under a single directory. The path for a key is deterministic:
// <dir>/<key>_embeddings.json.
type FileIndexStore struct {
	dir string
}

// NewFileIndexStore creates the storage directory if needed and returns the
// store. Creating an existing directory is a no-op.
func NewFileIndexStore(dir string) (*FileIndexStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create embeddings directory: %w", err)
	}
	return &FileIndexStore{dir: dir}, nil
}

// RecordPath returns the on-disk location for a document key.
func (s *FileIndexStore) RecordPath(key string) string {
	return filepath.Join(s.dir, key+"_embeddings.json")
}

// Save writes the record wholesale, replacing any prior record for the key.
// The write goes through a temp file and rename so a reader never observes a
// partially written record.
func (s *FileIndexStore) Save(key string, record *domain.IndexRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode index record: %w", err)
	}

	path := s.RecordPath(key)
	tmp, err := os.CreateTemp(s.dir, key+"_*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write index record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace index record: %w", err)
	}
	return nil
}

// Load reads the record for the key. A missing record returns ok=false and
// no error; that is the normal cache-miss path.
func (s *FileIndexStore) Load(key string) (*domain.IndexRecord, bool, error) {
	data, err := os.ReadFile(s.RecordPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read index record: %w", err)
	}

	var record domain.IndexRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, false, fmt.Errorf("failed to decode index record for %s: %w", key, err)
	}
	return &record, true, nil
}
