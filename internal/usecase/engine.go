package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"docchat/internal/adapter/chunker"
	"docchat/internal/domain"
	"docchat/internal/port"
)

// State tracks a document's position in the ingestion lifecycle.
type State int

const (
	StateUnprocessed State = iota
	StateIngesting
	StateReady
	StateIngestFailed
)

func (s State) String() string {
	switch s {
	case StateUnprocessed:
		return "unprocessed"
	case StateIngesting:
		return "ingesting"
	case StateReady:
		return "ready"
	case StateIngestFailed:
		return "ingest_failed"
	default:
		return "unknown"
	}
}

const answerSystemPrompt = "You are a helpful assistant that answers questions based on provided context."

const answerPromptTemplate = `Based on the following context from a PDF document, answer the question.
If the answer is not in the context, say so.

Context:
%s

Question: %s

Answer:`

// IngestOptions controls one ingestion run.
type IngestOptions struct {
	Force     bool
	ChunkSize int
	Overlap   int
}

// Engine answers questions about a single document. It owns the document's
// chunks and embeddings in memory once ingestion reaches Ready; all methods
// are safe for concurrent use.
type Engine struct {
	key       string
	path      string
	loader    port.DocumentLoader
	embedder  port.Embedder
	generator port.Generator
	index     port.IndexStore
	queries   *QueryCache
	logger    *log.Logger

	mu         sync.RWMutex
	state      State
	chunks     []string
	embeddings [][]float32
	pages      int
}

// EngineDeps are the collaborators an engine needs. All of them are
// injectable so tests can substitute deterministic stubs.
type EngineDeps struct {
	Loader         port.DocumentLoader
	Embedder       port.Embedder
	Generator      port.Generator
	Index          port.IndexStore
	QueryCacheSize int
	QueryCacheTTL  time.Duration
}

// NewEngine returns an engine for the document at path, in Unprocessed state.
func NewEngine(path string, deps EngineDeps) *Engine {
	key := domain.DocumentKey(path)
	return &Engine{
		key:       key,
		path:      path,
		loader:    deps.Loader,
		embedder:  deps.Embedder,
		generator: deps.Generator,
		index:     deps.Index,
		queries:   NewQueryCache(deps.QueryCacheSize, deps.QueryCacheTTL),
		logger:    log.With("doc", key),
	}
}

// Key returns the engine's document key.
func (e *Engine) Key() string { return e.key }

// Path returns the source document path.
func (e *Engine) Path() string { return e.path }

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// ChunkCount returns the number of indexed chunks.
func (e *Engine) ChunkCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.chunks)
}

// Ingest prepares the document for search. When a persisted index record
// exists for the key (and Force is unset), it is adopted directly and the
// embedding service is never called; that is the dominant cost-avoidance
// path. Otherwise the full pipeline runs: load, chunk, embed, persist. Any
// failure leaves the engine in IngestFailed with no partial state; the next
// attempt redoes the pipeline from scratch.
func (e *Engine) Ingest(ctx context.Context, opts IngestOptions) error {
	split, err := chunker.New(opts.ChunkSize, opts.Overlap)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = StateIngesting
	e.chunks = nil
	e.embeddings = nil
	e.queries.Invalidate()

	if !opts.Force {
		record, ok, err := e.index.Load(e.key)
		if err != nil {
			e.state = StateIngestFailed
			return err
		}
		if ok && record.Model == e.embedder.ModelName() {
			e.chunks = record.Chunks
			e.embeddings = record.Embeddings
			e.state = StateReady
			e.logger.Info("loaded cached embeddings", "chunks", len(record.Chunks))
			return nil
		}
		if ok {
			// The stored record was produced by a different embedding model;
			// its vectors are incompatible with query embeddings, so rebuild.
			e.logger.Warn("index record model mismatch, re-ingesting",
				"stored", record.Model, "configured", e.embedder.ModelName())
		}
	}

	if e.loader == nil {
		e.state = StateIngestFailed
		return &domain.LoadError{Path: e.path, Err: fmt.Errorf("no document loader configured")}
	}

	text, pages, err := e.loader.Load(ctx, e.path)
	if err != nil {
		e.state = StateIngestFailed
		return err
	}
	e.pages = pages

	chunks := split.Split(text)
	e.logger.Info("chunked document", "pages", pages, "chunks", len(chunks),
		"chunk_size", opts.ChunkSize, "overlap", opts.Overlap)

	embeddings, err := e.embedder.Embed(ctx, chunks)
	if err != nil {
		e.state = StateIngestFailed
		return err
	}
	if len(embeddings) != len(chunks) {
		e.state = StateIngestFailed
		return &domain.ServiceError{
			Service: "embedding",
			Err:     fmt.Errorf("got %d embeddings for %d chunks", len(embeddings), len(chunks)),
		}
	}

	record := &domain.IndexRecord{
		DocumentPath: e.path,
		Chunks:       chunks,
		Embeddings:   embeddings,
		Model:        e.embedder.ModelName(),
	}
	if err := e.index.Save(e.key, record); err != nil {
		e.state = StateIngestFailed
		return err
	}

	e.chunks = chunks
	e.embeddings = embeddings
	e.state = StateReady
	e.logger.Info("ingestion complete", "chunks", len(chunks))
	return nil
}

// Search returns the top-k chunks most similar to the query, highest score
// first. Ties keep original chunk order. k is clamped to the corpus size.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]domain.ScoredChunk, error) {
	e.mu.RLock()
	chunks := e.chunks
	embeddings := e.embeddings
	ready := e.state == StateReady
	e.mu.RUnlock()

	if !ready || len(chunks) == 0 || len(chunks) != len(embeddings) {
		return nil, domain.ErrNotReady
	}

	if cached, hit := e.queries.Get(query, topK); hit {
		return cached, nil
	}

	queryVecs, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(queryVecs) != 1 {
		return nil, &domain.ServiceError{
			Service: "embedding",
			Err:     fmt.Errorf("expected 1 query vector, got %d", len(queryVecs)),
		}
	}

	results := rankBySimilarity(queryVecs[0], chunks, embeddings, topK)
	e.queries.Put(query, topK, results)
	return results, nil
}

// Answer runs retrieval for the query and asks the generation model to
// answer from the retrieved context only. The model's text is returned
// verbatim. A failure here never disturbs the ingested index.
func (e *Engine) Answer(ctx context.Context, query string, topK int) (string, error) {
	results, err := e.Search(ctx, query, topK)
	if err != nil {
		return "", err
	}

	var blocks []string
	for i, r := range results {
		blocks = append(blocks, fmt.Sprintf("Context %d:\n%s", i+1, r.Text))
	}
	prompt := fmt.Sprintf(answerPromptTemplate, strings.Join(blocks, "\n\n"), query)

	return e.generator.Generate(ctx, answerSystemPrompt, prompt)
}

// SearchOnly formats the top-k hits as ranked human-readable snippets with
// truncated previews, without invoking answer generation.
func (e *Engine) SearchOnly(ctx context.Context, query string, topK, previewChars int) (string, error) {
	results, err := e.Search(ctx, query, topK)
	if err != nil {
		return "", err
	}
	if previewChars <= 0 {
		previewChars = 300
	}

	var out []string
	for i, r := range results {
		preview := r.Text
		if runes := []rune(preview); len(runes) > previewChars {
			preview = string(runes[:previewChars]) + "..."
		}
		out = append(out, fmt.Sprintf("**Result %d** (Score: %.3f)\n%s", i+1, r.Score, preview))
	}
	return strings.Join(out, "\n\n"), nil
}

// rankBySimilarity scores every embedding against the query vector and keeps
// the topK best. Stable sort preserves chunk order between equal scores.
func rankBySimilarity(query []float32, chunks []string, embeddings [][]float32, topK int) []domain.ScoredChunk {
	scored := make([]domain.ScoredChunk, len(chunks))
	for i := range chunks {
		scored[i] = domain.ScoredChunk{
			Index: i,
			Text:  chunks[i],
			Score: cosineSimilarity(query, embeddings[i]),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK > len(scored) {
		topK = len(scored)
	}
	if topK < 0 {
		topK = 0
	}
	return scored[:topK]
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
