package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/repoflow-ai/repoflow/internal/lifecycle"
	mcpserver "github.com/repoflow-ai/repoflow/internal/mcp"
	"github.com/repoflow-ai/repoflow/internal/rag"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio, exposing
repository question answering for AI agents. Serves the most recently
persisted workspace index.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		provider, err := createProviderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating LLM provider: %w", err)
		}
		embedder, err := createEmbedderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}

		orch := createOrchestratorFromConfig(cfg, provider)
		manager := lifecycle.NewManager(orch, embedder, indexDir(cfg), nil)
		defer manager.Close()

		if err := manager.Restore(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not restore persisted index: %v\n", err)
		}
		if state, _ := manager.Status(); state != lifecycle.StateReady {
			fmt.Fprintf(os.Stderr, "No index available yet. Run `repoflow index` or select a workspace first.\n")
		}

		engine := rag.NewEngine(manager, provider, cfg.Model, cfg.TopK)

		mcpserver.Version = Version
		fmt.Fprintln(os.Stderr, "repoflow MCP server started on stdio")

		srv := mcpserver.NewServer(engine, manager)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
