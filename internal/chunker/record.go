package chunker

import "fmt"

// Origin identifies which chunker produced a record. It is always stamped
// by the producer, never inferred from content.
type Origin string

const (
	OriginOracle   Origin = "oracle"
	OriginFallback Origin = "fallback"
)

// NameMisc is the sentinel label for chunks without a recognizable
// function/class/section name.
const NameMisc = "misc"

// ChunkRecord is one retrievable unit of source text plus its metadata.
// Content is the literal substring handed to the embedding provider and
// returned verbatim at retrieval time; it is never re-derived or re-encoded.
type ChunkRecord struct {
	SourceFile  string   `json:"file"`
	Sequence    int      `json:"chunk"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Content     string   `json:"code"`
	Keywords    []string `json:"keywords"`
	Origin      Origin   `json:"origin"`
}

// Key returns the record's identity within one index build.
// (SourceFile, Sequence) is unique per build.
func (r ChunkRecord) Key() string {
	return fmt.Sprintf("%s#%d", r.SourceFile, r.Sequence)
}
