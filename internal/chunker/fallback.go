package chunker

// FallbackChunker deterministically splits text into fixed-size overlapping
// windows. It never fails, so every valid input file contributes at least
// one chunk to the index even when the oracle is unusable.
type FallbackChunker struct {
	size    int
	overlap int
}

// NewFallbackChunker creates a FallbackChunker with the given window size
// and overlap, both measured in characters.
func NewFallbackChunker(size, overlap int) *FallbackChunker {
	if size < 1 {
		size = 1024
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &FallbackChunker{size: size, overlap: overlap}
}

// ChunkFile splits content into windows and returns records with
// Origin=fallback. Sequence is assigned in window order starting at 1.
func (c *FallbackChunker) ChunkFile(relPath, content string) []ChunkRecord {
	if content == "" {
		return nil
	}

	runes := []rune(content)
	step := c.size - c.overlap

	var records []ChunkRecord
	for start := 0; ; start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		records = append(records, ChunkRecord{
			SourceFile:  relPath,
			Sequence:    len(records) + 1,
			Name:        NameMisc,
			Description: "",
			Content:     string(runes[start:end]),
			Keywords:    []string{},
			Origin:      OriginFallback,
		})
		if end == len(runes) {
			break
		}
	}
	return records
}
