package config

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderGoogle ProviderType = "google"
	ProviderOllama ProviderType = "ollama"
)

// Config is the top-level repoflow configuration, corresponding to .repoflow.yml.
type Config struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`

	Port            int    `yaml:"port" koanf:"port"`
	AllowAllOrigins bool   `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	ReposDir        string `yaml:"repos_dir" koanf:"repos_dir"`
	DataDir         string `yaml:"data_dir" koanf:"data_dir"`

	ChunkSize         int `yaml:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap      int `yaml:"chunk_overlap" koanf:"chunk_overlap"`
	MaxRetries        int `yaml:"max_retries" koanf:"max_retries"`
	RetryDelaySeconds int `yaml:"retry_delay_seconds" koanf:"retry_delay_seconds"`
	TopK              int `yaml:"top_k" koanf:"top_k"`
	RequestsPerMinute int `yaml:"requests_per_minute" koanf:"requests_per_minute"`

	Include []string `yaml:"include" koanf:"include"`
	Exclude []string `yaml:"exclude" koanf:"exclude"`
}
