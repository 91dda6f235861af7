package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/repoflow-ai/repoflow/internal/rag"
	"github.com/repoflow-ai/repoflow/internal/vectordb"
)

const notReadyHint = "No index is ready. Clone a repository and select a workspace first."

// handleAskRepository answers a question grounded in the active workspace index.
func (s *Server) handleAskRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	answer, err := s.engine.Answer(ctx, question)
	if err != nil {
		if errors.Is(err, rag.ErrNotReady) {
			return mcp.NewToolResultError(notReadyHint), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("question failed: %v", err)), nil
	}

	return mcp.NewToolResultText(answer), nil
}

// handleSearchChunks performs raw retrieval against the active workspace index.
func (s *Server) handleSearchChunks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", rag.DefaultTopK)

	results, err := s.engine.Retrieve(ctx, query, limit)
	if err != nil {
		if errors.Is(err, rag.ErrNotReady) {
			return mcp.NewToolResultError(notReadyHint), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	return mcp.NewToolResultText(vectordb.FormatResults(results)), nil
}

// handleIndexStatus reports the lifecycle state of the serving index.
func (s *Server) handleIndexStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state, lastErr := s.manager.Status()
	if lastErr != nil {
		return mcp.NewToolResultText(fmt.Sprintf("state: %s (last build failed: %v)", state, lastErr)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("state: %s", state)), nil
}
