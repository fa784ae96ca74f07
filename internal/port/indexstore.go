package port

import "docchat/internal/domain"

// IndexStore persists one index record per document key.
type IndexStore interface {
	// Save writes the record for the key, replacing any prior record
	// wholesale. A record is never observable in a partially written state.
	Save(key string, record *domain.IndexRecord) error

	// Load returns the record for the key. A missing record is the normal
	// cache-miss path and is reported as ok=false, not an error.
	Load(key string) (*domain.IndexRecord, bool, error)
}
