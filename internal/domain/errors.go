package domain

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned when search or answer generation is requested
// before ingestion has completed, or against an empty index.
var ErrNotReady = errors.New("document not ingested: no chunks or embeddings loaded")

// ConfigError reports invalid chunking or engine parameters.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Reason
}

// ServiceError wraps a failure from an external model service (embedding or
// answer generation). The operation it aborted produced no partial state.
type ServiceError struct {
	Service string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s service error: %v", e.Service, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// LoadError reports an unreadable or missing source document.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load document %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
