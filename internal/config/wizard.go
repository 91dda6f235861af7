package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// providerModels lists the default analysis/embedding model pair per provider.
var providerModels = map[ProviderType]struct {
	Model          string
	EmbeddingModel string
}{
	ProviderGoogle: {Model: "gemini-2.5-flash-lite", EmbeddingModel: "text-embedding-004"},
	ProviderOpenAI: {Model: "gpt-4o-mini", EmbeddingModel: "text-embedding-3-small"},
	ProviderOllama: {Model: "llama3", EmbeddingModel: "nomic-embed-text"},
}

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to the given path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to repoflow! Let's configure your deployment.")
	fmt.Println()

	cfg := DefaultConfig()

	providerPrompt := promptui.Select{
		Label: "Select LLM provider (used for chunking and answers)",
		Items: []string{"google", "openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	embedPrompt := promptui.Select{
		Label: "Select embedding provider",
		Items: []string{"google", "openai", "ollama"},
	}
	_, embedStr, err := embedPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding provider selection: %w", err)
	}
	cfg.EmbeddingProvider = ProviderType(embedStr)

	cfg.Model = providerModels[cfg.Provider].Model
	cfg.EmbeddingModel = providerModels[cfg.EmbeddingProvider].EmbeddingModel

	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(cfg.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port prompt: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(portStr)

	reposPrompt := promptui.Prompt{
		Label:   "Directory for cloned repositories",
		Default: cfg.ReposDir,
	}
	reposDir, err := reposPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("repos dir prompt: %w", err)
	}
	cfg.ReposDir = reposDir

	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: %s is not set. Set it before starting the server.\n", envVar)
	}

	if err := cfg.Save(path); err != nil {
		return nil, err
	}
	fmt.Printf("\nConfiguration written to %s\n", path)

	return cfg, nil
}
