package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"docchat/internal/adapter/store"
	"docchat/internal/domain"
	"docchat/internal/port"
)

// stubLoader serves fixed text for any path.
type stubLoader struct {
	text  string
	pages int
	err   error
	calls int
}

func (l *stubLoader) Load(ctx context.Context, path string) (string, int, error) {
	l.calls++
	if l.err != nil {
		return "", 0, l.err
	}
	return l.text, l.pages, nil
}

// stubEmbedder maps each text to a fixed vector so rankings are predictable.
// Unknown texts embed to the zero vector.
type stubEmbedder struct {
	vectors map[string][]float32
	calls   int
	err     error
}

func (e *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := e.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = make([]float32, 3)
		}
	}
	return out, nil
}

func (e *stubEmbedder) Dimension() int    { return 3 }
func (e *stubEmbedder) ModelName() string { return "stub-embed" }

// stubGenerator records the prompts it was given.
type stubGenerator struct {
	reply   string
	system  string
	prompt  string
	calls   int
	err     error
}

func (g *stubGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	g.calls++
	g.system = systemPrompt
	g.prompt = userPrompt
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *stubGenerator) GenerateChat(ctx context.Context, systemPrompt string, messages []domain.Message) (port.ChatResult, error) {
	text, err := g.Generate(ctx, systemPrompt, messages[len(messages)-1].Content)
	return port.ChatResult{Text: text}, err
}

func (g *stubGenerator) ModelName() string { return "stub-gen" }

func identityEmbedder(chunks []string) *stubEmbedder {
	vectors := make(map[string][]float32)
	for i, c := range chunks {
		v := make([]float32, len(chunks))
		v[i] = 1
		vectors[c] = v
	}
	return &stubEmbedder{vectors: vectors}
}

func readyEngine(t *testing.T, text string, chunkSize, overlap int, deps EngineDeps) *Engine {
	t.Helper()
	if deps.Loader == nil {
		deps.Loader = &stubLoader{text: text, pages: 1}
	}
	if deps.Index == nil {
		deps.Index = store.NewMemoryIndexStore()
	}
	eng := NewEngine("/docs/test.pdf", deps)
	if err := eng.Ingest(context.Background(), IngestOptions{ChunkSize: chunkSize, Overlap: overlap}); err != nil {
		t.Fatal(err)
	}
	return eng
}

func TestIngestLengthInvariant(t *testing.T) {
	text := strings.Repeat("all work and no play makes jack a dull boy. ", 50)
	embedder := &stubEmbedder{vectors: map[string][]float32{}}

	eng := readyEngine(t, text, 200, 20, EngineDeps{Embedder: embedder})

	if eng.State() != StateReady {
		t.Fatalf("expected Ready, got %s", eng.State())
	}
	eng.mu.RLock()
	defer eng.mu.RUnlock()
	if len(eng.chunks) == 0 {
		t.Fatal("expected chunks after ingestion")
	}
	if len(eng.chunks) != len(eng.embeddings) {
		t.Errorf("len(chunks)=%d != len(embeddings)=%d", len(eng.chunks), len(eng.embeddings))
	}
}

func TestIngestCacheHitSkipsEmbedder(t *testing.T) {
	text := strings.Repeat("beta gamma delta. ", 100)
	index := store.NewMemoryIndexStore()

	first := &stubEmbedder{vectors: map[string][]float32{}}
	eng := NewEngine("/docs/test.pdf", EngineDeps{
		Loader:   &stubLoader{text: text, pages: 2},
		Embedder: first,
		Index:    index,
	})
	if err := eng.Ingest(context.Background(), IngestOptions{ChunkSize: 100, Overlap: 10}); err != nil {
		t.Fatal(err)
	}
	if first.calls == 0 {
		t.Fatal("first ingestion should have embedded")
	}

	// Fresh engine, same persisted index: neither the loader nor the
	// embedder may be touched.
	second := &stubEmbedder{vectors: map[string][]float32{}}
	loader := &stubLoader{text: text, pages: 2}
	cached := NewEngine("/docs/test.pdf", EngineDeps{
		Loader:   loader,
		Embedder: second,
		Index:    index,
	})
	if err := cached.Ingest(context.Background(), IngestOptions{ChunkSize: 100, Overlap: 10}); err != nil {
		t.Fatal(err)
	}

	if second.calls != 0 {
		t.Errorf("cache hit must not call the embedder, got %d calls", second.calls)
	}
	if loader.calls != 0 {
		t.Errorf("cache hit must not reload the document, got %d calls", loader.calls)
	}
	if cached.State() != StateReady {
		t.Errorf("expected Ready after cache hit, got %s", cached.State())
	}
}

func TestIngestModelMismatchRebuilds(t *testing.T) {
	index := store.NewMemoryIndexStore()
	stale := &domain.IndexRecord{
		DocumentPath: "/docs/test.pdf",
		Chunks:       []string{"old chunk"},
		Embeddings:   [][]float32{{1}},
		Model:        "some-retired-model",
	}
	if err := index.Save("test", stale); err != nil {
		t.Fatal(err)
	}

	embedder := &stubEmbedder{vectors: map[string][]float32{}}
	eng := NewEngine("/docs/test.pdf", EngineDeps{
		Loader:   &stubLoader{text: "fresh text for the index", pages: 1},
		Embedder: embedder,
		Index:    index,
	})
	if err := eng.Ingest(context.Background(), IngestOptions{ChunkSize: 10, Overlap: 0}); err != nil {
		t.Fatal(err)
	}

	if embedder.calls == 0 {
		t.Error("model mismatch must trigger re-embedding")
	}
	record, ok, _ := index.Load("test")
	if !ok || record.Model != "stub-embed" {
		t.Errorf("record not rebuilt: ok=%v model=%q", ok, record.Model)
	}
}

func TestIngestInvalidChunkingFailsFast(t *testing.T) {
	loader := &stubLoader{text: "text"}
	eng := NewEngine("/docs/test.pdf", EngineDeps{
		Loader:   loader,
		Embedder: &stubEmbedder{},
		Index:    store.NewMemoryIndexStore(),
	})

	err := eng.Ingest(context.Background(), IngestOptions{ChunkSize: 100, Overlap: 100})
	if err == nil {
		t.Fatal("expected configuration error")
	}
	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError, got %T", err)
	}
	if loader.calls != 0 {
		t.Error("invalid configuration must fail before loading the document")
	}
}

func TestIngestEmbedFailureLeavesNoPartialState(t *testing.T) {
	index := store.NewMemoryIndexStore()
	embedder := &stubEmbedder{err: &domain.ServiceError{Service: "embedding", Err: fmt.Errorf("quota")}}
	eng := NewEngine("/docs/test.pdf", EngineDeps{
		Loader:   &stubLoader{text: strings.Repeat("words ", 100), pages: 1},
		Embedder: embedder,
		Index:    index,
	})

	err := eng.Ingest(context.Background(), IngestOptions{ChunkSize: 50, Overlap: 5})
	if err == nil {
		t.Fatal("expected embedding failure")
	}
	if eng.State() != StateIngestFailed {
		t.Errorf("expected IngestFailed, got %s", eng.State())
	}
	if _, ok, _ := index.Load("test"); ok {
		t.Error("failed ingestion must not persist a record")
	}
	if _, serr := eng.Search(context.Background(), "anything", 3); !errors.Is(serr, domain.ErrNotReady) {
		t.Errorf("search after failed ingest: got %v, want ErrNotReady", serr)
	}

	// Retry from scratch succeeds once the service recovers.
	embedder.err = nil
	if err := eng.Ingest(context.Background(), IngestOptions{ChunkSize: 50, Overlap: 5}); err != nil {
		t.Fatal(err)
	}
	if eng.State() != StateReady {
		t.Errorf("expected Ready after retry, got %s", eng.State())
	}
}

func TestSearchRanksByDescendingScore(t *testing.T) {
	chunks := []string{"alpha", "bravo", "charlie"}
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"alpha":   {1, 0, 0},
		"bravo":   {0, 1, 0},
		"charlie": {0.9, 0.1, 0},
		"query":   {1, 0, 0},
	}}
	index := store.NewMemoryIndexStore()
	if err := index.Save("test", &domain.IndexRecord{
		DocumentPath: "/docs/test.pdf",
		Chunks:       chunks,
		Embeddings:   [][]float32{{1, 0, 0}, {0, 1, 0}, {0.9, 0.1, 0}},
		Model:        "stub-embed",
	}); err != nil {
		t.Fatal(err)
	}

	eng := NewEngine("/docs/test.pdf", EngineDeps{Embedder: embedder, Index: index})
	if err := eng.Ingest(context.Background(), IngestOptions{ChunkSize: 100, Overlap: 0}); err != nil {
		t.Fatal(err)
	}

	results, err := eng.Search(context.Background(), "query", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Text != "alpha" {
		t.Errorf("best match: got %q, want %q", results[0].Text, "alpha")
	}
	if results[1].Text != "charlie" {
		t.Errorf("second match: got %q, want %q", results[1].Text, "charlie")
	}
	if results[0].Score < results[1].Score {
		t.Error("results not in descending score order")
	}
	for _, r := range results {
		if r.Score < -1.0001 || r.Score > 1.0001 {
			t.Errorf("cosine score out of range: %v", r.Score)
		}
	}
}

func TestSearchTopKClampedToCorpus(t *testing.T) {
	chunks := []string{"one", "two", "three", "four", "five"}
	embedder := identityEmbedder(append(chunks, "query"))

	index := store.NewMemoryIndexStore()
	embeddings := make([][]float32, len(chunks))
	for i := range chunks {
		embeddings[i] = embedder.vectors[chunks[i]]
	}
	if err := index.Save("test", &domain.IndexRecord{
		DocumentPath: "/docs/test.pdf",
		Chunks:       chunks,
		Embeddings:   embeddings,
		Model:        "stub-embed",
	}); err != nil {
		t.Fatal(err)
	}

	eng := NewEngine("/docs/test.pdf", EngineDeps{Embedder: embedder, Index: index})
	if err := eng.Ingest(context.Background(), IngestOptions{ChunkSize: 100, Overlap: 0}); err != nil {
		t.Fatal(err)
	}

	results, err := eng.Search(context.Background(), "query", 10)
	if err != nil {
		t.Fatalf("top_k larger than corpus must not error: %v", err)
	}
	if len(results) != 5 {
		t.Errorf("expected exactly 5 results, got %d", len(results))
	}
}

func TestSearchTieBreakKeepsChunkOrder(t *testing.T) {
	chunks := []string{"first", "second", "third"}
	same := []float32{1, 0, 0}
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"first": same, "second": same, "third": same, "query": same,
	}}

	index := store.NewMemoryIndexStore()
	if err := index.Save("test", &domain.IndexRecord{
		DocumentPath: "/docs/test.pdf",
		Chunks:       chunks,
		Embeddings:   [][]float32{same, same, same},
		Model:        "stub-embed",
	}); err != nil {
		t.Fatal(err)
	}

	eng := NewEngine("/docs/test.pdf", EngineDeps{Embedder: embedder, Index: index})
	if err := eng.Ingest(context.Background(), IngestOptions{ChunkSize: 100, Overlap: 0}); err != nil {
		t.Fatal(err)
	}

	results, err := eng.Search(context.Background(), "query", 3)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range chunks {
		if results[i].Text != want {
			t.Errorf("tie at rank %d: got %q, want %q", i, results[i].Text, want)
		}
	}
}

func TestSearchBeforeIngestNotReady(t *testing.T) {
	eng := NewEngine("/docs/test.pdf", EngineDeps{
		Embedder: &stubEmbedder{},
		Index:    store.NewMemoryIndexStore(),
	})

	_, err := eng.Search(context.Background(), "query", 3)
	if !errors.Is(err, domain.ErrNotReady) {
		t.Errorf("got %v, want ErrNotReady", err)
	}
}

func TestForceRecreateOverwritesRecord(t *testing.T) {
	text := strings.Repeat("x", 1000)
	index := store.NewMemoryIndexStore()
	embedder := &stubEmbedder{vectors: map[string][]float32{}}

	eng := NewEngine("/docs/test.pdf", EngineDeps{
		Loader:   &stubLoader{text: text, pages: 1},
		Embedder: embedder,
		Index:    index,
	})

	if err := eng.Ingest(context.Background(), IngestOptions{ChunkSize: 500, Overlap: 50}); err != nil {
		t.Fatal(err)
	}
	before, _, _ := index.Load("test")

	if err := eng.Ingest(context.Background(), IngestOptions{Force: true, ChunkSize: 200, Overlap: 0}); err != nil {
		t.Fatal(err)
	}
	after, _, _ := index.Load("test")

	if len(before.Chunks) == len(after.Chunks) {
		t.Fatal("expected different chunk counts after re-chunking")
	}
	if len(after.Chunks) != len(after.Embeddings) {
		t.Error("rewritten record violates length invariant")
	}
	if eng.ChunkCount() != len(after.Chunks) {
		t.Error("engine state does not match the rewritten record")
	}
}

func TestAnswerBuildsLabeledContext(t *testing.T) {
	chunks := []string{"refunds take 30 days", "shipping is free"}
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"refunds take 30 days": {1, 0},
		"shipping is free":     {0, 1},
		"refund policy?":       {1, 0},
	}}
	index := store.NewMemoryIndexStore()
	if err := index.Save("test", &domain.IndexRecord{
		DocumentPath: "/docs/test.pdf",
		Chunks:       chunks,
		Embeddings:   [][]float32{{1, 0}, {0, 1}},
		Model:        "stub-embed",
	}); err != nil {
		t.Fatal(err)
	}

	gen := &stubGenerator{reply: "Refunds take 30 days."}
	eng := NewEngine("/docs/test.pdf", EngineDeps{
		Embedder:  embedder,
		Generator: gen,
		Index:     index,
	})
	if err := eng.Ingest(context.Background(), IngestOptions{ChunkSize: 100, Overlap: 0}); err != nil {
		t.Fatal(err)
	}

	answer, err := eng.Answer(context.Background(), "refund policy?", 2)
	if err != nil {
		t.Fatal(err)
	}
	if answer != "Refunds take 30 days." {
		t.Errorf("answer not returned verbatim: %q", answer)
	}

	if !strings.Contains(gen.prompt, "Context 1:\nrefunds take 30 days") {
		t.Errorf("prompt missing labeled top context:\n%s", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "Context 2:\nshipping is free") {
		t.Errorf("prompt missing second context:\n%s", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "Question: refund policy?") {
		t.Errorf("prompt missing question:\n%s", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "If the answer is not in the context, say so.") {
		t.Errorf("prompt missing grounding instruction:\n%s", gen.prompt)
	}
}

func TestAnswerFailureDoesNotCorruptIndex(t *testing.T) {
	chunks := []string{"some content here"}
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"some content here": {1},
		"query":             {1},
	}}
	index := store.NewMemoryIndexStore()
	if err := index.Save("test", &domain.IndexRecord{
		DocumentPath: "/docs/test.pdf",
		Chunks:       chunks,
		Embeddings:   [][]float32{{1}},
		Model:        "stub-embed",
	}); err != nil {
		t.Fatal(err)
	}

	gen := &stubGenerator{err: &domain.ServiceError{Service: "generation", Err: fmt.Errorf("timeout")}}
	eng := NewEngine("/docs/test.pdf", EngineDeps{Embedder: embedder, Generator: gen, Index: index})
	if err := eng.Ingest(context.Background(), IngestOptions{ChunkSize: 100, Overlap: 0}); err != nil {
		t.Fatal(err)
	}

	if _, err := eng.Answer(context.Background(), "query", 1); err == nil {
		t.Fatal("expected generation failure")
	}
	if eng.State() != StateReady {
		t.Errorf("query-time failure must not disturb ingestion state, got %s", eng.State())
	}
	if _, err := eng.Search(context.Background(), "query", 1); err != nil {
		t.Errorf("search after failed answer: %v", err)
	}
}

func TestSearchOnlyFormatsRankedSnippets(t *testing.T) {
	long := strings.Repeat("z", 400)
	embedder := &stubEmbedder{vectors: map[string][]float32{
		long:    {1},
		"query": {1},
	}}
	index := store.NewMemoryIndexStore()
	if err := index.Save("test", &domain.IndexRecord{
		DocumentPath: "/docs/test.pdf",
		Chunks:       []string{long},
		Embeddings:   [][]float32{{1}},
		Model:        "stub-embed",
	}); err != nil {
		t.Fatal(err)
	}

	eng := NewEngine("/docs/test.pdf", EngineDeps{Embedder: embedder, Index: index})
	if err := eng.Ingest(context.Background(), IngestOptions{ChunkSize: 500, Overlap: 0}); err != nil {
		t.Fatal(err)
	}

	out, err := eng.SearchOnly(context.Background(), "query", 1, 300)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "**Result 1** (Score: ") {
		t.Errorf("unexpected snippet header: %q", out[:40])
	}
	if !strings.HasSuffix(out, "...") {
		t.Error("long snippet not truncated with ellipsis")
	}
	if strings.Contains(out, strings.Repeat("z", 301)) {
		t.Error("preview exceeds the configured length")
	}
}

func TestSearchResultsAreCached(t *testing.T) {
	chunks := []string{"cached content"}
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"cached content": {1},
		"query":          {1},
	}}
	index := store.NewMemoryIndexStore()
	if err := index.Save("test", &domain.IndexRecord{
		DocumentPath: "/docs/test.pdf",
		Chunks:       chunks,
		Embeddings:   [][]float32{{1}},
		Model:        "stub-embed",
	}); err != nil {
		t.Fatal(err)
	}

	eng := NewEngine("/docs/test.pdf", EngineDeps{Embedder: embedder, Index: index})
	if err := eng.Ingest(context.Background(), IngestOptions{ChunkSize: 100, Overlap: 0}); err != nil {
		t.Fatal(err)
	}

	if _, err := eng.Search(context.Background(), "query", 1); err != nil {
		t.Fatal(err)
	}
	callsAfterFirst := embedder.calls

	if _, err := eng.Search(context.Background(), "query", 1); err != nil {
		t.Fatal(err)
	}
	if embedder.calls != callsAfterFirst {
		t.Error("repeated identical query should hit the result cache, not the embedder")
	}

	// A different top-k is a different cache key.
	if _, err := eng.Search(context.Background(), "query", 5); err != nil {
		t.Fatal(err)
	}
	if embedder.calls == callsAfterFirst {
		t.Error("different top-k must not share a cache entry")
	}
}
