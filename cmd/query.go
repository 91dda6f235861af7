package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repoflow-ai/repoflow/internal/rag"
	"github.com/repoflow-ai/repoflow/internal/vectordb"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question against the persisted index",
	Long: `Loads the persisted vector index and answers a natural language
question using retrieved code chunks as context.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().Int("limit", 0, "number of chunks to retrieve (default from config)")
	queryCmd.Flags().Bool("retrieve", false, "print the raw retrieved chunks instead of an answer")
	rootCmd.AddCommand(queryCmd)
}

// staticSource serves a single preloaded index. It satisfies the engine's
// index source without a lifecycle manager.
type staticSource struct {
	index *vectordb.Index
}

func (s *staticSource) IsReady() bool           { return s.index != nil }
func (s *staticSource) Active() *vectordb.Index { return s.index }

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	question := args[0]

	limit, _ := cmd.Flags().GetInt("limit")
	retrieveOnly, _ := cmd.Flags().GetBool("retrieve")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	ix, err := vectordb.Load(ctx, indexDir(cfg), embedder)
	if err != nil {
		if errors.Is(err, vectordb.ErrIndexNotBuilt) || errors.Is(err, vectordb.ErrIndexNotReady) {
			return fmt.Errorf("%w\nRun `repoflow index` first to build an index", err)
		}
		return fmt.Errorf("loading index: %w", err)
	}

	if retrieveOnly {
		if limit <= 0 {
			limit = cfg.TopK
		}
		results, err := ix.Query(ctx, question, limit)
		if err != nil {
			return fmt.Errorf("retrieval failed: %w", err)
		}
		fmt.Print(vectordb.FormatResults(results))
		return nil
	}

	provider, err := createProviderFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("creating LLM provider: %w", err)
	}

	engine := rag.NewEngine(&staticSource{index: ix}, provider, cfg.Model, limitOr(limit, cfg.TopK))
	answer, err := engine.Answer(ctx, question)
	if err != nil {
		return err
	}

	fmt.Println(answer)
	return nil
}

func limitOr(limit, fallback int) int {
	if limit > 0 {
		return limit
	}
	return fallback
}
