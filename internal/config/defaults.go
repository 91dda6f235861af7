package config

// DefaultExcludes are glob patterns excluded from workspace trees by default.
var DefaultExcludes = []string{
	"vendor/**",
	"node_modules/**",
	".git/**",
	"dist/**",
	"build/**",
	"*.min.js",
	"*.min.css",
	"*.lock",
	"go.sum",
	"package-lock.json",
	"yarn.lock",
}

// DefaultConfig returns a Config with sensible defaults.
// The chunking constants mirror the fallback splitter settings the smart
// chunker degrades to: 1024-character windows with a 20-character overlap.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderGoogle,
		Model:             "gemini-2.5-flash-lite",
		EmbeddingProvider: ProviderGoogle,
		EmbeddingModel:    "text-embedding-004",
		Port:              8080,
		AllowAllOrigins:   false,
		ReposDir:          "cloned_repos",
		DataDir:           ".repoflow",
		ChunkSize:         1024,
		ChunkOverlap:      20,
		MaxRetries:        3,
		RetryDelaySeconds: 10,
		TopK:              3,
		RequestsPerMinute: 60,
		Include:           []string{"**"},
		Exclude:           DefaultExcludes,
	}
}
