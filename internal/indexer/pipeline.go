package indexer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/repoflow-ai/repoflow/internal/chunker"
)

// Orchestrator iterates a requested file list, dispatches each file to the
// oracle chunker, and falls back per-file when the oracle fails. Files are
// processed in caller order; chunks within a file keep sequence order.
type Orchestrator struct {
	oracle     *chunker.OracleChunker
	fallback   *chunker.FallbackChunker
	onProgress ProgressFunc
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(oracle *chunker.OracleChunker, fallback *chunker.FallbackChunker) *Orchestrator {
	return &Orchestrator{
		oracle:   oracle,
		fallback: fallback,
	}
}

// SetProgressFunc sets the per-file progress callback.
func (o *Orchestrator) SetProgressFunc(fn ProgressFunc) {
	o.onProgress = fn
}

// Run chunks every resolvable file under rootDir from the ordered relPaths
// list. Missing or non-regular paths are skipped and logged, never failing
// the batch. The error return covers only setup problems (unresolvable
// root); per-file trouble lands in Result.Errors.
func (o *Orchestrator) Run(ctx context.Context, rootDir string, relPaths []string) (*Result, error) {
	start := time.Now()

	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", rootDir, err)
	}

	result := &Result{}
	total := len(relPaths)

	for i, relPath := range relPaths {
		outcome, chunks, fileErr := o.processFile(ctx, root, relPath)
		switch outcome {
		case OutcomeSkipped:
			result.FilesSkipped++
			if fileErr != nil {
				result.Errors = append(result.Errors, fileErr)
				log.Printf("indexer: skipping %s: %v", relPath, fileErr)
			}
		case OutcomeFallback:
			result.FilesChunked++
			result.FallbackFiles++
			if fileErr != nil {
				result.Errors = append(result.Errors, fileErr)
			}
		case OutcomeOracle:
			result.FilesChunked++
		}
		result.Chunks = append(result.Chunks, chunks...)

		if o.onProgress != nil {
			o.onProgress(i+1, total, relPath, outcome)
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

// processFile resolves, reads, and chunks one file. A recovered panic or
// any oracle failure degrades to the fallback chunker, so a single bad file
// or oracle call can never lose chunks accumulated from other files.
func (o *Orchestrator) processFile(ctx context.Context, root, relPath string) (outcome Outcome, chunks []chunker.ChunkRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chunking %s panicked: %v", relPath, r)
			outcome = OutcomeSkipped
			chunks = nil
		}
	}()

	full, ok := resolveWithinRoot(root, relPath)
	if !ok {
		return OutcomeSkipped, nil, fmt.Errorf("path %q escapes repository root", relPath)
	}

	info, statErr := os.Stat(full)
	if statErr != nil || !info.Mode().IsRegular() {
		return OutcomeSkipped, nil, fmt.Errorf("not a regular file: %s", relPath)
	}

	data, readErr := os.ReadFile(full)
	if readErr != nil {
		return OutcomeSkipped, nil, fmt.Errorf("read %s: %w", relPath, readErr)
	}
	content := string(data)
	if content == "" {
		return OutcomeSkipped, nil, fmt.Errorf("empty file: %s", relPath)
	}

	records, oracleErr := o.chunkWithOracle(ctx, relPath, content)
	if oracleErr == nil {
		return OutcomeOracle, records, nil
	}

	var chunkErr *chunker.ChunkError
	if errors.As(oracleErr, &chunkErr) {
		log.Printf("indexer: oracle %s failure for %s, using fallback chunker", chunkErr.Kind, relPath)
	} else {
		log.Printf("indexer: oracle failure for %s: %v, using fallback chunker", relPath, oracleErr)
	}

	return OutcomeFallback, o.fallback.ChunkFile(relPath, content), oracleErr
}

// chunkWithOracle shields the orchestrator from panics inside the oracle
// path; a recovered panic is reported as an error and triggers the fallback.
func (o *Orchestrator) chunkWithOracle(ctx context.Context, relPath, content string) (records []chunker.ChunkRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = fmt.Errorf("oracle chunking %s panicked: %v", relPath, r)
		}
	}()
	return o.oracle.ChunkFile(ctx, relPath, content)
}

// resolveWithinRoot joins relPath onto root and rejects paths that escape it.
func resolveWithinRoot(root, relPath string) (string, bool) {
	full := filepath.Join(root, filepath.FromSlash(relPath))
	rel, err := filepath.Rel(root, full)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}
