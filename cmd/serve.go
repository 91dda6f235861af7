package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/repoflow-ai/repoflow/internal/db"
	"github.com/repoflow-ai/repoflow/internal/lifecycle"
	"github.com/repoflow-ai/repoflow/internal/rag"
	"github.com/repoflow-ai/repoflow/internal/server"
	"github.com/repoflow-ai/repoflow/internal/workspace"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the RepoFlow HTTP server",
	Long: `Starts the HTTP server exposing repository cloning, workspace
proposal and selection, index status, and question answering.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "port to listen on (overrides config)")
	serveCmd.Flags().Bool("allow-all-origins", false, "allow all CORS origins (dev mode)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Port = port
	}
	allowAll, _ := cmd.Flags().GetBool("allow-all-origins")

	provider, err := createProviderFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("creating LLM provider: %w", err)
	}
	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	database, err := db.Open(filepath.Join(cfg.DataDir, "repoflow.db"))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()
	store := db.NewStore(database)

	orch := createOrchestratorFromConfig(cfg, provider)
	manager := lifecycle.NewManager(orch, embedder, indexDir(cfg), store)
	defer manager.Close()

	// A previous run's index keeps serving across restarts.
	if err := manager.Restore(context.Background()); err != nil {
		log.Printf("restoring persisted index: %v", err)
	}

	engine := rag.NewEngine(manager, provider, cfg.Model, cfg.TopK)
	proposer := workspace.NewProposer(provider, cfg.Model)

	srv := server.New(server.Config{
		Port:     cfg.Port,
		ReposDir: cfg.ReposDir,
		DataDir:  cfg.DataDir,
		AllowAll: allowAll || cfg.AllowAllOrigins,
	}, store, manager, engine, proposer)

	// Graceful shutdown on SIGINT/SIGTERM.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-done
		log.Println("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
