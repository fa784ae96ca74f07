package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"

	"docchat/internal/adapter/store"
)

func newTestRegistry(t *testing.T, maxEngines int) (*Registry, *stubEmbedder, *stubLoader) {
	t.Helper()
	embedder := &stubEmbedder{vectors: map[string][]float32{}}
	loader := &stubLoader{text: strings.Repeat("registry test content. ", 50), pages: 1}

	r, err := NewRegistry(RegistryOptions{
		Deps: EngineDeps{
			Loader:   loader,
			Embedder: embedder,
			Index:    store.NewMemoryIndexStore(),
		},
		MaxEngines: maxEngines,
		ChunkSize:  100,
		Overlap:    10,
	})
	if err != nil {
		t.Fatal(err)
	}
	return r, embedder, loader
}

func TestRegistryReusesEngine(t *testing.T) {
	r, embedder, _ := newTestRegistry(t, 8)
	ctx := context.Background()

	first, err := r.Engine(ctx, "/docs/report.pdf", false)
	if err != nil {
		t.Fatal(err)
	}
	callsAfterFirst := embedder.calls

	second, err := r.Engine(ctx, "/docs/report.pdf", false)
	if err != nil {
		t.Fatal(err)
	}

	if first != second {
		t.Error("expected the same engine instance for repeated access")
	}
	if embedder.calls != callsAfterFirst {
		t.Error("repeated access must not re-embed")
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 cached engine, got %d", r.Len())
	}
}

func TestRegistryForceReingests(t *testing.T) {
	r, embedder, loader := newTestRegistry(t, 8)
	ctx := context.Background()

	if _, err := r.Engine(ctx, "/docs/report.pdf", false); err != nil {
		t.Fatal(err)
	}
	loadsAfterFirst := loader.calls
	callsAfterFirst := embedder.calls

	if _, err := r.Engine(ctx, "/docs/report.pdf", true); err != nil {
		t.Fatal(err)
	}
	if loader.calls == loadsAfterFirst {
		t.Error("force must reload the document")
	}
	if embedder.calls == callsAfterFirst {
		t.Error("force must re-embed")
	}
}

func TestRegistryKeyCollisionByBaseName(t *testing.T) {
	// Documented limitation: same base filename means same key, regardless
	// of directory.
	r, _, _ := newTestRegistry(t, 8)
	ctx := context.Background()

	a, err := r.Engine(ctx, "/teamA/report.pdf", false)
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Engine(ctx, "/teamB/report.pdf", false)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("same base filename should map to the same engine")
	}
}

func TestRegistryEvictsLeastRecentlyUsed(t *testing.T) {
	r, _, _ := newTestRegistry(t, 2)
	ctx := context.Background()

	for _, path := range []string{"/docs/a.pdf", "/docs/b.pdf", "/docs/c.pdf"} {
		if _, err := r.Engine(ctx, path, false); err != nil {
			t.Fatal(err)
		}
	}

	if r.Len() != 2 {
		t.Errorf("expected capacity-bounded cache of 2 engines, got %d", r.Len())
	}
}

func TestRegistryFailedIngestIsNotCached(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{}}
	loader := &stubLoader{err: context.DeadlineExceeded}

	r, err := NewRegistry(RegistryOptions{
		Deps: EngineDeps{
			Loader:   loader,
			Embedder: embedder,
			Index:    store.NewMemoryIndexStore(),
		},
		MaxEngines: 4,
		ChunkSize:  100,
		Overlap:    10,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.Engine(context.Background(), "/docs/broken.pdf", false); err == nil {
		t.Fatal("expected load failure")
	}
	if r.Len() != 0 {
		t.Errorf("failed engine must not be cached, got %d", r.Len())
	}

	// Recovery: the next attempt redoes the whole pipeline.
	loader.err = nil
	loader.text = strings.Repeat("recovered content. ", 30)
	eng, err := r.Engine(context.Background(), "/docs/broken.pdf", false)
	if err != nil {
		t.Fatal(err)
	}
	if eng.State() != StateReady {
		t.Errorf("expected Ready after retry, got %s", eng.State())
	}
}

func TestRegistryConcurrentAccessSharesOneIngestion(t *testing.T) {
	r, embedder, _ := newTestRegistry(t, 8)
	ctx := context.Background()

	const goroutines = 16
	engines := make([]*Engine, goroutines)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			eng, err := r.Engine(ctx, "/docs/shared.pdf", false)
			if err != nil {
				t.Error(err)
				return
			}
			engines[i] = eng
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		if engines[i] != engines[0] {
			t.Fatal("concurrent callers must share one engine")
		}
	}
	if embedder.calls > 1 {
		t.Errorf("expected at most one ingestion embedding call, got %d", embedder.calls)
	}
}
