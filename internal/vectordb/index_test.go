package vectordb

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/repoflow-ai/repoflow/internal/chunker"
)

// mockEmbedder returns deterministic embeddings based on text content.
// Shared characters contribute to the same vector positions, so similar
// texts produce similar vectors.
type mockEmbedder struct {
	dims int
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = m.deterministicVector(text)
	}
	return results, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock" }

func (m *mockEmbedder) deterministicVector(text string) []float32 {
	vec := make([]float32, m.dims)
	for i, ch := range text {
		idx := (int(ch) + i) % m.dims
		vec[idx] += 1.0
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func testChunks() []chunker.ChunkRecord {
	return []chunker.ChunkRecord{
		{
			SourceFile: "internal/auth/login.go", Sequence: 1, Name: "auth",
			Description: "user login and session management",
			Content:     "func HandleLogin(w http.ResponseWriter, r *http.Request) { validateSession() }",
			Keywords:    []string{"auth", "login"}, Origin: chunker.OriginOracle,
		},
		{
			SourceFile: "internal/db/pool.go", Sequence: 1, Name: "database",
			Description: "connection pool setup",
			Content:     "func NewPool(dsn string) (*Pool, error) { return openConnections(dsn) }",
			Keywords:    []string{"database"}, Origin: chunker.OriginOracle,
		},
		{
			SourceFile: "internal/api/router.go", Sequence: 1, Name: "routing",
			Description: "HTTP route registration",
			Content:     "func SetupRouter() *chi.Mux { r := chi.NewRouter(); return r }",
			Keywords:    []string{"http"}, Origin: chunker.OriginFallback,
		},
	}
}

func buildTestIndex(t *testing.T, chunks []chunker.ChunkRecord) *Index {
	t.Helper()
	ix, err := New(&mockEmbedder{dims: 64})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ix.Build(context.Background(), chunks); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return ix
}

func TestIndex_BuildAndQuery(t *testing.T) {
	ctx := context.Background()
	ix := buildTestIndex(t, testChunks())

	if ix.Count() != 3 {
		t.Fatalf("Count = %d, want 3", ix.Count())
	}

	results, err := ix.Query(ctx, "func HandleLogin(w http.ResponseWriter, r *http.Request) { validateSession() }", 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Record.SourceFile != "internal/auth/login.go" {
		t.Errorf("top result = %s, want internal/auth/login.go", results[0].Record.SourceFile)
	}
	if results[0].Distance > results[1].Distance {
		t.Errorf("results not ascending by distance: %v vs %v", results[0].Distance, results[1].Distance)
	}
}

func TestIndex_QueryClampsTopK(t *testing.T) {
	ctx := context.Background()
	ix := buildTestIndex(t, testChunks())

	results, err := ix.Query(ctx, "anything", 50)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("got %d results, want all 3", len(results))
	}

	results, err = ix.Query(ctx, "anything", 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("topK=0 returned %d results, want default capped at 3", len(results))
	}
}

func TestIndex_QueryEmptyIndex(t *testing.T) {
	ix, err := New(&mockEmbedder{dims: 64})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	results, err := ix.Query(context.Background(), "anything", 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results from empty index, want 0", len(results))
	}
}

func TestIndex_QueryTieBreaksByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	// Identical content yields identical vectors, forcing a distance tie.
	chunks := []chunker.ChunkRecord{
		{SourceFile: "b.go", Sequence: 1, Name: "misc", Content: "same text", Origin: chunker.OriginOracle},
		{SourceFile: "a.go", Sequence: 1, Name: "misc", Content: "same text", Origin: chunker.OriginOracle},
	}
	ix := buildTestIndex(t, chunks)

	results, err := ix.Query(ctx, "same text", 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Record.SourceFile != "b.go" || results[1].Record.SourceFile != "a.go" {
		t.Errorf("tie broken by %s,%s; want insertion order b.go,a.go",
			results[0].Record.SourceFile, results[1].Record.SourceFile)
	}
}

func TestIndex_QueryTieAtCutoffPrefersEarlierChunks(t *testing.T) {
	ctx := context.Background()
	// Three identical chunks tie on distance, but topK admits only two. The
	// two earliest-inserted ones must win the cutoff.
	chunks := []chunker.ChunkRecord{
		{SourceFile: "c.go", Sequence: 1, Name: "misc", Content: "same text", Origin: chunker.OriginOracle},
		{SourceFile: "a.go", Sequence: 1, Name: "misc", Content: "same text", Origin: chunker.OriginOracle},
		{SourceFile: "b.go", Sequence: 1, Name: "misc", Content: "same text", Origin: chunker.OriginOracle},
	}
	ix := buildTestIndex(t, chunks)

	results, err := ix.Query(ctx, "same text", 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Record.SourceFile != "c.go" || results[1].Record.SourceFile != "a.go" {
		t.Errorf("cutoff admitted %s,%s; want insertion order c.go,a.go",
			results[0].Record.SourceFile, results[1].Record.SourceFile)
	}
}

func TestIndex_BuildRejectsDuplicateKeys(t *testing.T) {
	ix, err := New(&mockEmbedder{dims: 64})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	chunks := []chunker.ChunkRecord{
		{SourceFile: "a.go", Sequence: 1, Content: "one"},
		{SourceFile: "a.go", Sequence: 1, Content: "two"},
	}
	if err := ix.Build(context.Background(), chunks); err == nil {
		t.Fatal("Build accepted duplicate (file, sequence) keys")
	}
}

func TestIndex_PersistAndLoad(t *testing.T) {
	ctx := context.Background()
	embedder := &mockEmbedder{dims: 64}
	dir := filepath.Join(t.TempDir(), "index")

	ix := buildTestIndex(t, testChunks())
	if err := ix.Persist(ctx, dir); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	loaded, err := Load(ctx, dir, embedder)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Count() != ix.Count() {
		t.Fatalf("loaded count = %d, want %d", loaded.Count(), ix.Count())
	}

	question := "database connection pool"
	orig, err := ix.Query(ctx, question, 3)
	if err != nil {
		t.Fatalf("Query original: %v", err)
	}
	reloaded, err := loaded.Query(ctx, question, 3)
	if err != nil {
		t.Fatalf("Query loaded: %v", err)
	}

	if len(orig) != len(reloaded) {
		t.Fatalf("result counts differ: %d vs %d", len(orig), len(reloaded))
	}
	for i := range orig {
		if orig[i].Record.Key() != reloaded[i].Record.Key() {
			t.Errorf("result %d: %s vs %s", i, orig[i].Record.Key(), reloaded[i].Record.Key())
		}
		if math.Abs(float64(orig[i].Distance-reloaded[i].Distance)) > 1e-5 {
			t.Errorf("result %d distance: %v vs %v", i, orig[i].Distance, reloaded[i].Distance)
		}
		if reloaded[i].Record.Description == "" && orig[i].Record.Description != "" {
			t.Errorf("result %d lost metadata on reload", i)
		}
	}
}

func TestIndex_EmptyBuildRoundTrips(t *testing.T) {
	ctx := context.Background()
	embedder := &mockEmbedder{dims: 64}
	dir := filepath.Join(t.TempDir(), "index")

	ix, err := New(embedder)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ix.Build(ctx, nil); err != nil {
		t.Fatalf("Build with zero chunks: %v", err)
	}
	if err := ix.Persist(ctx, dir); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	loaded, err := Load(ctx, dir, embedder)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Count() != 0 {
		t.Errorf("loaded count = %d, want 0", loaded.Count())
	}
	results, err := loaded.Query(ctx, "anything", 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results from empty index, want 0", len(results))
	}
}

func TestLoad_MissingDirectory(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope"), &mockEmbedder{dims: 64})
	if !errors.Is(err, ErrIndexNotBuilt) {
		t.Errorf("err = %v, want ErrIndexNotBuilt", err)
	}
}

func TestLoad_MetadataWithoutVectors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, MetadataFile), []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(context.Background(), dir, &mockEmbedder{dims: 64})
	if !errors.Is(err, ErrIndexNotReady) {
		t.Errorf("err = %v, want ErrIndexNotReady", err)
	}
}

func TestFormatResults_Empty(t *testing.T) {
	if got := FormatResults(nil); got != "No matching chunks found." {
		t.Errorf("FormatResults(nil) = %q", got)
	}
}
