package mcp

import "github.com/mark3labs/mcp-go/mcp"

// askRepositoryTool defines the ask_repository MCP tool.
var askRepositoryTool = mcp.NewTool("ask_repository",
	mcp.WithDescription("Ask a question about the indexed workspace. Returns an answer grounded in the retrieved code chunks."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("Natural language question about the codebase"),
	),
)

// searchChunksTool defines the search_chunks MCP tool.
var searchChunksTool = mcp.NewTool("search_chunks",
	mcp.WithDescription("Retrieve the code chunks nearest to a query, without composing an answer."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of chunks to return (default 3)"),
	),
)

// indexStatusTool defines the index_status MCP tool.
var indexStatusTool = mcp.NewTool("index_status",
	mcp.WithDescription("Report the lifecycle state of the workspace index."),
)
