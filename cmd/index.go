package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/repoflow-ai/repoflow/internal/progress"
	"github.com/repoflow-ai/repoflow/internal/vectordb"
	"github.com/repoflow-ai/repoflow/internal/walker"
)

var indexCmd = &cobra.Command{
	Use:   "index [directory]",
	Short: "Chunk and index a local directory",
	Long: `Walks a local directory, chunks every text file via the LLM (with a
deterministic fallback), embeds the chunks, and persists the vector
index for later querying.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	rootDir := args[0]

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

	files, err := walker.Walk(walker.Config{
		RootDir: rootDir,
		Include: cfg.Include,
		Exclude: cfg.Exclude,
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", rootDir, err)
	}
	if len(files) == 0 {
		fmt.Println("No indexable files found.")
		return nil
	}

	relPaths := make([]string, len(files))
	for i, f := range files {
		relPaths[i] = f.RelPath
	}

	orch := createOrchestratorFromConfig(cfg, provider)
	orch.SetProgressFunc(progress.Hook(progress.NewReporter()))

	result, err := orch.Run(ctx, rootDir, relPaths)
	if err != nil {
		return fmt.Errorf("chunking: %w", err)
	}
	if result.Empty() {
		fmt.Println("No chunks produced, nothing to index.")
		return nil
	}

	ix, err := vectordb.New(embedder)
	if err != nil {
		return fmt.Errorf("creating index: %w", err)
	}
	if err := ix.Build(ctx, result.Chunks); err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}
	if err := ix.Persist(ctx, indexDir(cfg)); err != nil {
		return fmt.Errorf("persisting index: %w", err)
	}

	fmt.Printf("Indexed %d chunks from %d files (%d via fallback, %d skipped) in %s\n",
		len(result.Chunks), result.FilesChunked, result.FallbackFiles,
		result.FilesSkipped, result.Duration.Round(time.Millisecond))
	return nil
}
