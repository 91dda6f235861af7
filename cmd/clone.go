package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/repoflow-ai/repoflow/internal/repo"
	"github.com/repoflow-ai/repoflow/internal/workspace"
)

var cloneCmd = &cobra.Command{
	Use:   "clone [url]",
	Short: "Clone a repository and propose workspaces",
	Long: `Clones a Git repository, renders its file tree, and asks the LLM to
partition it into named workspaces. Proposals are saved for later
selection.`,
	Args: cobra.ExactArgs(1),
	RunE: runClone,
}

func init() {
	rootCmd.AddCommand(cloneCmd)
}

func runClone(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	provider, err := createProviderFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("creating LLM provider: %w", err)
	}

	rep, err := repo.Clone(ctx, args[0], cfg.ReposDir)
	if err != nil {
		return err
	}
	fmt.Printf("Cloned %s into %s (%d files)\n", rep.Name, rep.RootDir, len(rep.Files))

	proposer := workspace.NewProposer(provider, cfg.Model)
	proposals, err := proposer.Propose(ctx, repo.Describe(rep))
	if err != nil {
		return err
	}

	path := filepath.Join(cfg.DataDir, "workspaces.json")
	if err := workspace.SaveProposals(path, proposals); err != nil {
		return err
	}

	fmt.Printf("Proposed %d workspace(s):\n", len(proposals))
	for _, ws := range proposals {
		fmt.Printf("  %-20s %s (%d files)\n", ws.Name, ws.Description, len(ws.FileStructure))
	}
	fmt.Printf("Saved to %s\n", path)
	return nil
}
