package usecase

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"docchat/internal/domain"
)

// Registry owns the per-document engines. It is an explicit, bounded cache:
// engines are created on first use, evicted least-recently-used when the
// capacity is reached, and at most one ingestion runs per document key at a
// time (concurrent callers share the first ingestion's result).
type Registry struct {
	engines *lru.Cache[string, *Engine]
	group   singleflight.Group
	deps    EngineDeps

	chunkSize int
	overlap   int
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Deps       EngineDeps
	MaxEngines int
	ChunkSize  int
	Overlap    int
}

// NewRegistry validates the options and returns an empty registry.
func NewRegistry(opts RegistryOptions) (*Registry, error) {
	if opts.MaxEngines <= 0 {
		opts.MaxEngines = 32
	}
	cache, err := lru.New[string, *Engine](opts.MaxEngines)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine cache: %w", err)
	}
	return &Registry{
		engines:   cache,
		deps:      opts.Deps,
		chunkSize: opts.ChunkSize,
		overlap:   opts.Overlap,
	}, nil
}

// Engine returns a Ready engine for the document, ingesting it first when
// needed. force re-runs the full pipeline even when a persisted record or a
// live engine exists. A failed ingestion is not cached; the next call starts
// over.
func (r *Registry) Engine(ctx context.Context, path string, force bool) (*Engine, error) {
	key := domain.DocumentKey(path)

	if !force {
		if eng, ok := r.engines.Get(key); ok && eng.State() == StateReady {
			return eng, nil
		}
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		eng, ok := r.engines.Get(key)
		if ok && !force && eng.State() == StateReady {
			return eng, nil
		}
		if !ok {
			eng = NewEngine(path, r.deps)
		}

		if err := eng.Ingest(ctx, IngestOptions{
			Force:     force,
			ChunkSize: r.chunkSize,
			Overlap:   r.overlap,
		}); err != nil {
			r.engines.Remove(key)
			return nil, err
		}

		r.engines.Add(key, eng)
		return eng, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Engine), nil
}

// Len returns the number of live engines.
func (r *Registry) Len() int {
	return r.engines.Len()
}

// Answer is a convenience wrapper: ensure the document is ingested, then
// answer the query from it.
func (r *Registry) Answer(ctx context.Context, path, query string, topK int) (string, error) {
	eng, err := r.Engine(ctx, path, false)
	if err != nil {
		return "", err
	}
	return eng.Answer(ctx, query, topK)
}

// Search is a convenience wrapper returning formatted ranked snippets.
func (r *Registry) Search(ctx context.Context, path, query string, topK, previewChars int) (string, error) {
	eng, err := r.Engine(ctx, path, false)
	if err != nil {
		return "", err
	}
	return eng.SearchOnly(ctx, query, topK, previewChars)
}
