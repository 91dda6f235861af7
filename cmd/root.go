package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "repoflow",
	Short: "Retrieval-augmented question answering over Git repositories",
	Long: `RepoFlow clones a repository, asks an LLM to partition it into
workspaces, chunks the selected workspace semantically, and builds a
vector index so questions about the code can be answered with
retrieved context.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".repoflow.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
