package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/repoflow-ai/repoflow/internal/llm"
	"github.com/repoflow-ai/repoflow/internal/vectordb"
)

var (
	// ErrNotReady means no index is currently serving. This is a
	// user-correctable precondition, not a processing failure.
	ErrNotReady = errors.New("rag: no index is ready, select a workspace first")
	// ErrEmptyQuestion is returned for blank question text.
	ErrEmptyQuestion = errors.New("rag: question is empty")
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 3

// IndexSource provides the currently serving index. The lifecycle manager
// is the only production implementation.
type IndexSource interface {
	IsReady() bool
	Active() *vectordb.Index
}

// Engine answers questions grounded in the active workspace index. Each
// call re-embeds the question and re-retrieves; answers are never cached.
type Engine struct {
	source   IndexSource
	provider llm.Provider
	model    string
	topK     int
}

// NewEngine creates an Engine. topK <= 0 selects DefaultTopK.
func NewEngine(source IndexSource, provider llm.Provider, model string, topK int) *Engine {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Engine{
		source:   source,
		provider: provider,
		model:    model,
		topK:     topK,
	}
}

// Answer embeds the question, retrieves the nearest chunks from the active
// index, and composes a grounded answer. The readiness check happens before
// any embedding or retrieval call. The oracle's narrative output has no
// strict schema, so whatever text it returns is passed through as
// best-effort.
func (e *Engine) Answer(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	if !e.source.IsReady() {
		return "", ErrNotReady
	}
	ix := e.source.Active()
	if ix == nil {
		return "", ErrNotReady
	}

	results, err := ix.Query(ctx, question, e.topK)
	if err != nil {
		return "", fmt.Errorf("retrieving context: %w", err)
	}

	if len(results) == 0 {
		return NoContextAnswer, nil
	}

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Model: e.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: answerSystemPrompt},
			{Role: llm.RoleUser, Content: buildAnswerPrompt(question, results)},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("composing answer: %w", err)
	}

	return resp.Content, nil
}

// Retrieve returns the raw nearest chunks for a question without composing
// an answer. Used by the CLI and MCP surfaces.
func (e *Engine) Retrieve(ctx context.Context, question string, topK int) ([]vectordb.Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if !e.source.IsReady() {
		return nil, ErrNotReady
	}
	ix := e.source.Active()
	if ix == nil {
		return nil, ErrNotReady
	}
	if topK <= 0 {
		topK = e.topK
	}
	return ix.Query(ctx, question, topK)
}
