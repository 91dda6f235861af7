package chunker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/repoflow-ai/repoflow/internal/llm"
)

// mockProvider returns canned responses or errors, counting calls.
type mockProvider struct {
	calls    atomic.Int64
	response string
	err      error
	// failures makes the first N calls fail before succeeding.
	failures int
}

func (m *mockProvider) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	n := m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	if int(n) <= m.failures {
		return nil, fmt.Errorf("transient failure %d", n)
	}
	return &llm.CompletionResponse{Content: m.response}, nil
}

func (m *mockProvider) Name() string { return "mock" }

func newTestChunker(p llm.Provider) *OracleChunker {
	return NewOracleChunker(p, "test-model", 3, 0)
}

func TestChunkFile_ValidArray(t *testing.T) {
	provider := &mockProvider{response: `[
		{"file": "pkg/a.go", "chunk": 1, "name": "helpers", "description": "helper funcs", "code": "func a() {}", "keywords": ["helper"]},
		{"file": "pkg/a.go", "chunk": 2, "name": "types", "description": "type defs", "code": "type A struct{}", "keywords": []}
	]`}

	records, err := newTestChunker(provider).ChunkFile(context.Background(), "pkg/a.go", "func a() {}")
	if err != nil {
		t.Fatalf("ChunkFile: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Name != "helpers" || records[0].Sequence != 1 {
		t.Errorf("first record = %+v", records[0])
	}
	if records[1].Sequence != 2 {
		t.Errorf("second record sequence = %d, want 2", records[1].Sequence)
	}
	for _, r := range records {
		if r.Origin != OriginOracle {
			t.Errorf("origin = %q, want %q", r.Origin, OriginOracle)
		}
		if r.SourceFile != "pkg/a.go" {
			t.Errorf("source file = %q, want pkg/a.go", r.SourceFile)
		}
	}
}

func TestChunkFile_SingleObjectWrapped(t *testing.T) {
	provider := &mockProvider{response: `{"file": "main.go", "chunk": 1, "name": "main", "code": "func main() {}"}`}

	records, err := newTestChunker(provider).ChunkFile(context.Background(), "main.go", "func main() {}")
	if err != nil {
		t.Fatalf("ChunkFile: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Name != "main" {
		t.Errorf("name = %q, want main", records[0].Name)
	}
}

func TestChunkFile_StripsMarkdownFences(t *testing.T) {
	provider := &mockProvider{response: "```json\n[{\"chunk\": 1, \"name\": \"x\", \"code\": \"y\"}]\n```"}

	records, err := newTestChunker(provider).ChunkFile(context.Background(), "x.go", "y")
	if err != nil {
		t.Fatalf("ChunkFile: %v", err)
	}
	if len(records) != 1 || records[0].Content != "y" {
		t.Fatalf("records = %+v", records)
	}
}

func TestChunkFile_LineByLineRecovery(t *testing.T) {
	// Not a valid JSON document, but two of the three lines parse on their own.
	provider := &mockProvider{response: `{"chunk": 1, "name": "a", "code": "aa"}
this line is garbage
{"chunk": 2, "name": "b", "code": "bb"}`}

	records, err := newTestChunker(provider).ChunkFile(context.Background(), "f.go", "content")
	if err != nil {
		t.Fatalf("ChunkFile: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Content != "aa" || records[1].Content != "bb" {
		t.Errorf("records = %+v", records)
	}
}

func TestChunkFile_DefaultsMissingFields(t *testing.T) {
	provider := &mockProvider{response: `[{"code": "some code"}]`}

	records, err := newTestChunker(provider).ChunkFile(context.Background(), "f.go", "some code")
	if err != nil {
		t.Fatalf("ChunkFile: %v", err)
	}
	r := records[0]
	if r.Sequence != 1 {
		t.Errorf("sequence = %d, want 1", r.Sequence)
	}
	if r.Name != NameMisc {
		t.Errorf("name = %q, want %q", r.Name, NameMisc)
	}
	if r.Keywords == nil || len(r.Keywords) != 0 {
		t.Errorf("keywords = %#v, want empty slice", r.Keywords)
	}
}

func TestChunkFile_DropsElementsWithoutCode(t *testing.T) {
	provider := &mockProvider{response: `[
		{"chunk": 1, "name": "described but empty", "description": "no code here"},
		{"chunk": 2, "name": "real", "code": "real code"}
	]`}

	records, err := newTestChunker(provider).ChunkFile(context.Background(), "f.go", "x")
	if err != nil {
		t.Fatalf("ChunkFile: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Name != "real" {
		t.Errorf("kept record = %+v", records[0])
	}
}

func TestChunkFile_SequenceCollisions(t *testing.T) {
	// Two elements both claim chunk 2; the second gets the smallest unused
	// number instead.
	provider := &mockProvider{response: `[
		{"chunk": 2, "name": "a", "code": "aa"},
		{"chunk": 2, "name": "b", "code": "bb"},
		{"chunk": 3, "name": "c", "code": "cc"}
	]`}

	records, err := newTestChunker(provider).ChunkFile(context.Background(), "f.go", "x")
	if err != nil {
		t.Fatalf("ChunkFile: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	wantSeq := []int{2, 1, 3}
	seen := make(map[int]bool)
	for i, r := range records {
		if r.Sequence != wantSeq[i] {
			t.Errorf("record %d sequence = %d, want %d", i, r.Sequence, wantSeq[i])
		}
		if seen[r.Sequence] {
			t.Errorf("duplicate sequence %d", r.Sequence)
		}
		seen[r.Sequence] = true
	}
}

func TestChunkFile_AllCodelessIsParseError(t *testing.T) {
	provider := &mockProvider{response: `[{"chunk": 1, "name": "empty"}]`}

	_, err := newTestChunker(provider).ChunkFile(context.Background(), "f.go", "x")
	var chunkErr *ChunkError
	if !errors.As(err, &chunkErr) {
		t.Fatalf("error type = %T, want *ChunkError", err)
	}
	if chunkErr.Kind != KindParse {
		t.Errorf("kind = %q, want %q", chunkErr.Kind, KindParse)
	}
	if provider.calls.Load() != 1 {
		t.Errorf("oracle called %d times, want 1 (parse failures are not retried)", provider.calls.Load())
	}
}

func TestChunkFile_EmptyPayloadIsParseError(t *testing.T) {
	provider := &mockProvider{response: "   "}

	_, err := newTestChunker(provider).ChunkFile(context.Background(), "f.go", "x")
	var chunkErr *ChunkError
	if !errors.As(err, &chunkErr) {
		t.Fatalf("error type = %T, want *ChunkError", err)
	}
	if chunkErr.Kind != KindParse {
		t.Errorf("kind = %q, want %q", chunkErr.Kind, KindParse)
	}
}

func TestChunkFile_TransportRetriesThenSucceeds(t *testing.T) {
	provider := &mockProvider{
		response: `[{"chunk": 1, "name": "x", "code": "y"}]`,
		failures: 2,
	}

	records, err := newTestChunker(provider).ChunkFile(context.Background(), "f.go", "x")
	if err != nil {
		t.Fatalf("ChunkFile: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if provider.calls.Load() != 3 {
		t.Errorf("oracle called %d times, want 3", provider.calls.Load())
	}
}

func TestChunkFile_TransportExhaustsRetries(t *testing.T) {
	provider := &mockProvider{err: errors.New("connection refused")}

	_, err := newTestChunker(provider).ChunkFile(context.Background(), "f.go", "x")
	var chunkErr *ChunkError
	if !errors.As(err, &chunkErr) {
		t.Fatalf("error type = %T, want *ChunkError", err)
	}
	if chunkErr.Kind != KindTransport {
		t.Errorf("kind = %q, want %q", chunkErr.Kind, KindTransport)
	}
	if provider.calls.Load() != 3 {
		t.Errorf("oracle called %d times, want 3", provider.calls.Load())
	}
}

func TestChunkRecord_Key(t *testing.T) {
	r := ChunkRecord{SourceFile: "a/b.go", Sequence: 4}
	if got := r.Key(); got != "a/b.go#4" {
		t.Errorf("Key() = %q, want a/b.go#4", got)
	}
}
