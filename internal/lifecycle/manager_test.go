package lifecycle

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/repoflow-ai/repoflow/internal/chunker"
	"github.com/repoflow-ai/repoflow/internal/indexer"
	"github.com/repoflow-ai/repoflow/internal/llm"
	"github.com/repoflow-ai/repoflow/internal/vectordb"
)

// gatedProvider blocks each Complete call until released, signalling when a
// call has started. With a nil gate it responds immediately.
type gatedProvider struct {
	response string
	started  chan struct{}
	gate     chan struct{}
}

func (p *gatedProvider) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if p.started != nil {
		select {
		case p.started <- struct{}{}:
		default:
		}
	}
	if p.gate != nil {
		<-p.gate
	}
	return &llm.CompletionResponse{Content: p.response}, nil
}

func (p *gatedProvider) Name() string { return "gated" }

type mockEmbedder struct {
	dims int
	err  error
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	results := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, m.dims)
		for j, ch := range text {
			vec[(int(ch)+j)%m.dims] += 1.0
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v * v)
		}
		norm = math.Sqrt(norm)
		if norm > 0 {
			for j := range vec {
				vec[j] = float32(float64(vec[j]) / norm)
			}
		}
		results[i] = vec
	}
	return results, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock" }

// memoryRecorder captures build transitions.
type memoryRecorder struct {
	mu       sync.Mutex
	started  []string
	finished []State
}

func (r *memoryRecorder) BuildStarted(workspace string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, workspace)
	return workspace
}

func (r *memoryRecorder) BuildFinished(_ string, state State, _ int, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, state)
}

func newTestManager(t *testing.T, provider llm.Provider, embedder *mockEmbedder, recorder BuildRecorder) (*Manager, string) {
	t.Helper()
	oracle := chunker.NewOracleChunker(provider, "test-model", 1, 0)
	fallback := chunker.NewFallbackChunker(64, 8)
	orch := indexer.NewOrchestrator(oracle, fallback)
	indexDir := filepath.Join(t.TempDir(), "index")
	m := NewManager(orch, embedder, indexDir, recorder)
	t.Cleanup(m.Close)
	return m, indexDir
}

func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func waitForState(t *testing.T, m *Manager, want State) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if state, _ := m.Status(); state == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	state, lastErr := m.Status()
	t.Fatalf("timed out waiting for state %q; state=%q lastErr=%v", want, state, lastErr)
}

const oracleJSON = `[{"chunk": 1, "name": "code", "code": "package main"}]`

func TestManager_BuildToReady(t *testing.T) {
	provider := &gatedProvider{response: oracleJSON}
	recorder := &memoryRecorder{}
	m, indexDir := newTestManager(t, provider, &mockEmbedder{dims: 32}, recorder)
	root := writeRepo(t, map[string]string{"main.go": "package main"})

	if m.IsReady() {
		t.Fatal("manager ready before any build")
	}
	if m.Active() != nil {
		t.Fatal("active index before any build")
	}

	valid, invalid, err := m.Submit(Selection{
		Name:      "core",
		RootDir:   root,
		FilePaths: []string{"main.go", "missing.go"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(valid) != 1 || len(invalid) != 1 {
		t.Errorf("valid=%v invalid=%v", valid, invalid)
	}

	waitForState(t, m, StateReady)

	if !m.IsReady() {
		t.Error("IsReady = false after successful build")
	}
	ix := m.Active()
	if ix == nil {
		t.Fatal("Active returned nil after successful build")
	}
	if ix.Count() != 1 {
		t.Errorf("index count = %d, want 1", ix.Count())
	}

	// Persisted artifacts must both exist.
	for _, name := range []string{vectordb.MetadataFile, vectordb.VectorFile} {
		if _, err := os.Stat(filepath.Join(indexDir, name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.started) != 1 || recorder.started[0] != "core" {
		t.Errorf("recorder started = %v", recorder.started)
	}
	if len(recorder.finished) != 1 || recorder.finished[0] != StateReady {
		t.Errorf("recorder finished = %v", recorder.finished)
	}
}

func TestManager_SubmitNoValidFiles(t *testing.T) {
	provider := &gatedProvider{response: oracleJSON}
	m, _ := newTestManager(t, provider, &mockEmbedder{dims: 32}, nil)
	root := t.TempDir()

	_, invalid, err := m.Submit(Selection{
		Name:      "ghost",
		RootDir:   root,
		FilePaths: []string{"a.go", "b/c.go"},
	})
	if !errors.Is(err, ErrNoValidFiles) {
		t.Fatalf("err = %v, want ErrNoValidFiles", err)
	}
	if len(invalid) != 2 {
		t.Errorf("invalid = %v, want both paths", invalid)
	}
	if state, _ := m.Status(); state != StateEmpty {
		t.Errorf("state = %q, want empty", state)
	}
}

func TestManager_QueueOneRejectBeyond(t *testing.T) {
	started := make(chan struct{}, 1)
	gate := make(chan struct{})
	provider := &gatedProvider{response: oracleJSON, started: started, gate: gate}
	m, _ := newTestManager(t, provider, &mockEmbedder{dims: 32}, nil)
	root := writeRepo(t, map[string]string{"main.go": "package main"})

	sel := Selection{Name: "w", RootDir: root, FilePaths: []string{"main.go"}}

	if _, _, err := m.Submit(sel); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	// Wait until the worker has dequeued the first build and is inside the
	// oracle call, so the queue slot is free again.
	<-started

	if _, _, err := m.Submit(sel); err != nil {
		t.Fatalf("second Submit (queued): %v", err)
	}
	if _, _, err := m.Submit(sel); !errors.Is(err, ErrBuildInFlight) {
		t.Fatalf("third Submit err = %v, want ErrBuildInFlight", err)
	}

	close(gate)
	waitForState(t, m, StateReady)
}

func TestManager_EmptyResultLeavesEmptyState(t *testing.T) {
	provider := &gatedProvider{response: oracleJSON}
	recorder := &memoryRecorder{}
	m, _ := newTestManager(t, provider, &mockEmbedder{dims: 32}, recorder)
	root := writeRepo(t, map[string]string{"empty.go": ""})

	// The only selected file is empty, so it is skipped and the run
	// produces zero chunks.
	if _, _, err := m.Submit(Selection{Name: "w", RootDir: root, FilePaths: []string{"empty.go"}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		recorder.mu.Lock()
		done := len(recorder.finished) > 0
		recorder.mu.Unlock()
		if done {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	state, lastErr := m.Status()
	if state != StateEmpty {
		t.Errorf("state = %q, want empty", state)
	}
	if lastErr != nil {
		t.Errorf("empty result recorded as error: %v", lastErr)
	}
	if m.Active() != nil {
		t.Error("active index present for empty result")
	}
}

func TestManager_FailedBuildResetsToEmpty(t *testing.T) {
	provider := &gatedProvider{response: oracleJSON}
	recorder := &memoryRecorder{}
	embedder := &mockEmbedder{dims: 32, err: errors.New("embedding quota exceeded")}
	m, indexDir := newTestManager(t, provider, embedder, recorder)
	root := writeRepo(t, map[string]string{"main.go": "package main"})

	if _, _, err := m.Submit(Selection{Name: "w", RootDir: root, FilePaths: []string{"main.go"}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if _, lastErr := m.Status(); lastErr != nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	state, lastErr := m.Status()
	if state != StateEmpty {
		t.Errorf("state = %q, want empty after failure", state)
	}
	if lastErr == nil {
		t.Fatal("lastErr not recorded")
	}
	if m.IsReady() || m.Active() != nil {
		t.Error("failed build left a serving index")
	}
	if _, err := os.Stat(indexDir); !os.IsNotExist(err) {
		t.Errorf("partial artifacts not removed: %v", err)
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.finished) != 1 || recorder.finished[0] != StateEmpty {
		t.Errorf("recorder finished = %v", recorder.finished)
	}
}

func TestManager_RebuildReplacesIndex(t *testing.T) {
	provider := &gatedProvider{response: oracleJSON}
	m, _ := newTestManager(t, provider, &mockEmbedder{dims: 32}, nil)
	root := writeRepo(t, map[string]string{
		"main.go":  "package main",
		"other.go": "package other",
	})

	if _, _, err := m.Submit(Selection{Name: "w1", RootDir: root, FilePaths: []string{"main.go"}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForState(t, m, StateReady)
	first := m.Active()

	if _, _, err := m.Submit(Selection{Name: "w2", RootDir: root, FilePaths: []string{"other.go"}}); err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	waitForState(t, m, StateReady)

	second := m.Active()
	if second == nil {
		t.Fatal("no active index after rebuild")
	}
	if first == second {
		t.Error("rebuild did not swap the index handle")
	}
}

func TestManager_SupersedingSubmitWithdrawsIndex(t *testing.T) {
	started := make(chan struct{}, 1)
	gate := make(chan struct{})
	provider := &gatedProvider{response: oracleJSON, started: started, gate: gate}
	m, _ := newTestManager(t, provider, &mockEmbedder{dims: 32}, nil)
	root := writeRepo(t, map[string]string{
		"main.go":  "package main",
		"other.go": "package other",
	})

	// First build runs ungated to completion.
	go func() {
		<-started
		gate <- struct{}{}
	}()
	if _, _, err := m.Submit(Selection{Name: "w1", RootDir: root, FilePaths: []string{"main.go"}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForState(t, m, StateReady)
	first := m.Active()
	if first == nil {
		t.Fatal("no active index after first build")
	}

	// A new selection must stop serving the old index the moment Submit
	// returns, not when the worker gets around to the job.
	if _, _, err := m.Submit(Selection{Name: "w2", RootDir: root, FilePaths: []string{"other.go"}}); err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if m.IsReady() {
		t.Error("IsReady = true immediately after a superseding Submit")
	}
	if m.Active() != nil {
		t.Error("old index still served immediately after a superseding Submit")
	}
	if state, _ := m.Status(); state != StateBuilding {
		t.Errorf("state = %q immediately after Submit, want building", state)
	}

	<-started
	close(gate)
	waitForState(t, m, StateReady)
	if second := m.Active(); second == nil || second == first {
		t.Error("superseding build did not install a fresh index handle")
	}
}

func TestManager_Restore(t *testing.T) {
	ctx := context.Background()
	embedder := &mockEmbedder{dims: 32}
	provider := &gatedProvider{response: oracleJSON}
	m, indexDir := newTestManager(t, provider, embedder, nil)

	// Nothing persisted yet: restore is a no-op.
	if err := m.Restore(ctx); err != nil {
		t.Fatalf("Restore on empty dir: %v", err)
	}
	if m.IsReady() {
		t.Fatal("ready after restoring nothing")
	}

	// Persist an index out of band, as a previous process run would have.
	ix, err := vectordb.New(embedder)
	if err != nil {
		t.Fatal(err)
	}
	chunks := []chunker.ChunkRecord{
		{SourceFile: "a.go", Sequence: 1, Name: "misc", Content: "package a", Origin: chunker.OriginFallback},
	}
	if err := ix.Build(ctx, chunks); err != nil {
		t.Fatal(err)
	}
	if err := ix.Persist(ctx, indexDir); err != nil {
		t.Fatal(err)
	}

	if err := m.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !m.IsReady() {
		t.Fatal("not ready after restore")
	}
	if got := m.Active().Count(); got != 1 {
		t.Errorf("restored index count = %d, want 1", got)
	}
}
