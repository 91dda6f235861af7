package indexer

import (
	"time"

	"github.com/repoflow-ai/repoflow/internal/chunker"
)

// Outcome describes how a single file was handled by the orchestrator.
type Outcome string

const (
	OutcomeOracle   Outcome = "oracle"
	OutcomeFallback Outcome = "fallback"
	OutcomeSkipped  Outcome = "skipped"
)

// ProgressFunc receives a per-file progress signal. It is advisory only;
// the orchestrator's functional contract does not depend on it.
type ProgressFunc func(index, total int, path string, outcome Outcome)

// Result accumulates the output of one orchestrator run. Zero accumulated
// chunks is an explicit empty-result state, not an error.
type Result struct {
	Chunks        []chunker.ChunkRecord
	FilesChunked  int
	FilesSkipped  int
	FallbackFiles int
	Errors        []error
	Duration      time.Duration
}

// Empty reports whether the run produced no chunks at all.
func (r *Result) Empty() bool {
	return len(r.Chunks) == 0
}
