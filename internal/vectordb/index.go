package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/repoflow-ai/repoflow/internal/chunker"
	"github.com/repoflow-ai/repoflow/internal/embeddings"
)

const collectionName = "workspace"

// tieHeadroom is how many results past topK a query fetches, so equal
// distances straddling the cutoff can be reordered before truncation.
const tieHeadroom = 8

// Artifact names inside a persisted index directory. The metadata store is
// required for an index to be buildable at all; the vector file only
// appears once embedding has completed.
const (
	MetadataFile = "chunks.json"
	VectorFile   = "vectors.gob.gz"
)

var (
	// ErrIndexNotBuilt means the metadata store is missing: no build has
	// ever produced artifacts in this directory.
	ErrIndexNotBuilt = errors.New("vectordb: index not built")
	// ErrIndexNotReady means metadata exists but the vector file does not:
	// a build is incomplete or was interrupted before embedding finished.
	ErrIndexNotReady = errors.New("vectordb: index not ready")
)

// Result pairs a retrieved chunk with its distance to the query.
// Smaller distance means more relevant.
type Result struct {
	Record   chunker.ChunkRecord
	Distance float32
}

// Index stores chunk vectors plus metadata and serves exact nearest-neighbor
// retrieval. The corpus is file-count-bounded, so brute-force similarity
// over the whole collection is sufficient.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embeddings.Embedder
	embedFunc  chromem.EmbeddingFunc

	// records preserves insertion order; order is the retrieval tiebreak.
	records []chunker.ChunkRecord
	byKey   map[string]int
}

// New creates an empty Index that embeds with the given embedder.
func New(embedder embeddings.Embedder) (*Index, error) {
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &Index{
		db:         db,
		collection: col,
		embedder:   embedder,
		embedFunc:  ef,
		byKey:      make(map[string]int),
	}, nil
}

// Build embeds each chunk's content and stores vector plus metadata.
// Building with zero chunks yields a valid, empty, persistable index.
func (ix *Index) Build(ctx context.Context, chunks []chunker.ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		key := c.Key()
		if _, dup := ix.byKey[key]; dup {
			return fmt.Errorf("duplicate chunk key %q", key)
		}
		ix.byKey[key] = len(ix.records)
		ix.records = append(ix.records, c)

		docs[i] = chromem.Document{
			ID:      key,
			Content: c.Content,
			Metadata: map[string]string{
				"file":   c.SourceFile,
				"chunk":  strconv.Itoa(c.Sequence),
				"name":   c.Name,
				"origin": string(c.Origin),
			},
		}
	}

	return ix.collection.AddDocuments(ctx, docs, 1)
}

// Query retrieves the topK nearest chunks for the question, ascending by
// distance. Ties are broken by original insertion order. topK defaults to 3
// and is clamped to the collection size.
func (ix *Index) Query(ctx context.Context, question string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 3
	}

	count := ix.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	// Fetch past topK so a distance tie at the cutoff resolves by insertion
	// order rather than by the store's internal ordering.
	fetch := topK + tieHeadroom
	if fetch > count {
		fetch = count
	}

	found, err := ix.collection.Query(ctx, question, fetch, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	results := make([]Result, 0, len(found))
	for _, r := range found {
		pos, ok := ix.byKey[r.ID]
		if !ok {
			return nil, fmt.Errorf("vector store returned unknown chunk %q", r.ID)
		}
		results = append(results, Result{
			Record:   ix.records[pos],
			Distance: 1 - r.Similarity,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return ix.byKey[results[i].Record.Key()] < ix.byKey[results[j].Record.Key()]
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Count returns the number of chunks in the index.
func (ix *Index) Count() int {
	return len(ix.records)
}

// Records returns the indexed chunks in insertion order.
func (ix *Index) Records() []chunker.ChunkRecord {
	return ix.records
}

// Persist writes the index to dir: the chunk metadata store first, then the
// vector export. Loading the directory reconstructs retrieval behaviour
// exactly.
func (ix *Index) Persist(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	meta := ix.records
	if meta == nil {
		meta = []chunker.ChunkRecord{}
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal chunk metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFile), data, 0o644); err != nil {
		return fmt.Errorf("write chunk metadata: %w", err)
	}

	if err := ix.db.ExportToFile(filepath.Join(dir, VectorFile), true, ""); err != nil {
		return fmt.Errorf("export vectors: %w", err)
	}
	return nil
}

// Load reconstructs an Index from a persisted directory. It is idempotent:
// loading the same directory twice yields indices that answer identical
// queries identically.
func Load(ctx context.Context, dir string, embedder embeddings.Embedder) (*Index, error) {
	metaPath := filepath.Join(dir, MetadataFile)
	data, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrIndexNotBuilt
		}
		return nil, fmt.Errorf("read chunk metadata: %w", err)
	}

	var records []chunker.ChunkRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse chunk metadata: %w", err)
	}

	vectorPath := filepath.Join(dir, VectorFile)
	if _, err := os.Stat(vectorPath); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrIndexNotReady
		}
		return nil, fmt.Errorf("stat vector file: %w", err)
	}

	ix, err := New(embedder)
	if err != nil {
		return nil, err
	}

	if err := ix.db.ImportFromFile(vectorPath, ""); err != nil {
		return nil, fmt.Errorf("import vectors: %w", err)
	}

	// Re-acquire the collection reference after import.
	col := ix.db.GetCollection(collectionName, ix.embedFunc)
	if col == nil {
		return nil, fmt.Errorf("collection %q not found after import", collectionName)
	}
	ix.collection = col

	ix.records = records
	ix.byKey = make(map[string]int, len(records))
	for i, r := range records {
		ix.byKey[r.Key()] = i
	}

	if got := col.Count(); got != len(records) {
		return nil, fmt.Errorf("vector store holds %d documents but metadata lists %d chunks", got, len(records))
	}

	return ix, nil
}
