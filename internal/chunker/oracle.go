package chunker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/repoflow-ai/repoflow/internal/llm"
)

// ErrorKind classifies oracle chunking failures so the caller can
// distinguish exhausted transport retries from unusable payloads.
type ErrorKind string

const (
	// KindTransport means the oracle call itself failed after all retries.
	KindTransport ErrorKind = "transport"
	// KindParse means the oracle answered but its payload was unusable.
	// Parse failures are never retried against the oracle.
	KindParse ErrorKind = "parse"
)

// ChunkError is the typed failure returned by the oracle chunker.
type ChunkError struct {
	Kind ErrorKind
	File string
	Err  error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunking %s: %s failure: %v", e.File, e.Kind, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// OracleChunker invokes a text-generation oracle per file to produce
// semantically labeled chunks, validating and repairing its output.
type OracleChunker struct {
	provider   llm.Provider
	model      string
	maxRetries int
	retryDelay time.Duration
}

// NewOracleChunker creates an OracleChunker. maxRetries bounds the number
// of oracle call attempts per file; retryDelay is the fixed inter-attempt
// delay.
func NewOracleChunker(provider llm.Provider, model string, maxRetries int, retryDelay time.Duration) *OracleChunker {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &OracleChunker{
		provider:   provider,
		model:      model,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// ChunkFile sends one file to the oracle and returns its chunks with
// Origin set to OriginOracle. Failures are always a *ChunkError.
func (c *OracleChunker) ChunkFile(ctx context.Context, relPath, content string) ([]ChunkRecord, error) {
	req := llm.CompletionRequest{
		Model: c.model,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildChunkingMessage(relPath, content)},
		},
		Temperature: 0.1,
		JSONMode:    true,
	}

	resp, err := c.completeWithRetry(ctx, relPath, req)
	if err != nil {
		return nil, err
	}

	raw := strings.TrimSpace(resp.Content)
	if raw == "" {
		return nil, &ChunkError{Kind: KindParse, File: relPath, Err: fmt.Errorf("oracle returned an empty payload")}
	}

	records, parseErr := parseOraclePayload(raw, relPath)
	if parseErr != nil {
		return nil, &ChunkError{Kind: KindParse, File: relPath, Err: parseErr}
	}
	return records, nil
}

// completeWithRetry retries failed oracle calls with a fixed delay.
// A successful transport response is never retried; whether its payload is
// usable is the parser's problem.
func (c *OracleChunker) completeWithRetry(ctx context.Context, relPath string, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		resp, err := c.provider.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt == c.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, &ChunkError{Kind: KindTransport, File: relPath, Err: ctx.Err()}
		case <-time.After(c.retryDelay):
		}
	}
	return nil, &ChunkError{
		Kind: KindTransport,
		File: relPath,
		Err:  fmt.Errorf("oracle call failed after %d attempts: %w", c.maxRetries, lastErr),
	}
}

// oracleChunk mirrors the loose JSON schema the oracle is asked for.
// Only "code" is mandatory; everything else is defaulted.
type oracleChunk struct {
	File        string   `json:"file"`
	Chunk       int      `json:"chunk"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Code        string   `json:"code"`
	Keywords    []string `json:"keywords"`
}

// parseOraclePayload turns the oracle's raw text into chunk records.
// It accepts a single object (wrapped as a one-element list) or an array,
// strips markdown fences, and falls back to line-by-line recovery before
// declaring the payload unparsable.
func parseOraclePayload(raw, relPath string) ([]ChunkRecord, error) {
	raw = stripFences(strings.TrimSpace(raw))

	elements, err := decodeChunkList(raw)
	if err != nil {
		// The structured-output guarantee is unreliable in practice; some
		// responses are one JSON object per line rather than a list.
		elements = recoverLineByLine(raw)
		if len(elements) == 0 {
			return nil, fmt.Errorf("payload is not valid JSON: %w", err)
		}
	}

	records := defaultAndNumber(elements, relPath)
	if len(records) == 0 {
		return nil, fmt.Errorf("payload contained no element with a %q field", "code")
	}
	return records, nil
}

// decodeChunkList parses raw as either a JSON array of objects or a single
// JSON object (treated as a one-element list).
func decodeChunkList(raw string) ([]oracleChunk, error) {
	var list []oracleChunk
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return list, nil
	}

	var single oracleChunk
	if err := json.Unmarshal([]byte(raw), &single); err != nil {
		return nil, err
	}
	return []oracleChunk{single}, nil
}

// recoverLineByLine treats each independently parseable line as one JSON
// object and collects whatever survives.
func recoverLineByLine(raw string) []oracleChunk {
	var elements []oracleChunk
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var el oracleChunk
		if err := json.Unmarshal([]byte(line), &el); err == nil {
			elements = append(elements, el)
		}
	}
	return elements
}

// defaultAndNumber applies the defaulting rules, drops elements without
// code, and resolves sequence collisions so (SourceFile, Sequence) stays
// unique. Elements keep their declared sequence when possible; colliding or
// missing sequences get the smallest unused number.
func defaultAndNumber(elements []oracleChunk, relPath string) []ChunkRecord {
	used := make(map[int]bool)
	next := 1

	var records []ChunkRecord
	for _, el := range elements {
		if el.Code == "" {
			// Absence of code invalidates the element, nothing else does.
			continue
		}

		seq := el.Chunk
		if seq < 1 || used[seq] {
			for used[next] {
				next++
			}
			seq = next
		}
		used[seq] = true

		name := el.Name
		if name == "" {
			name = NameMisc
		}
		keywords := el.Keywords
		if keywords == nil {
			keywords = []string{}
		}

		records = append(records, ChunkRecord{
			SourceFile:  relPath,
			Sequence:    seq,
			Name:        name,
			Description: el.Description,
			Content:     el.Code,
			Keywords:    keywords,
			Origin:      OriginOracle,
		})
	}
	return records
}

// stripFences removes a surrounding markdown code fence if present.
func stripFences(raw string) string {
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	lines := strings.Split(raw, "\n")
	if len(lines) < 2 {
		return raw
	}
	end := len(lines)
	if strings.TrimSpace(lines[end-1]) == "```" {
		end--
	}
	return strings.Join(lines[1:end], "\n")
}
