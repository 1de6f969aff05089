package config

// EmbeddingProvider identifies an embedding backend.
type EmbeddingProvider string

const (
	ProviderOpenAI EmbeddingProvider = "openai"
	ProviderOllama EmbeddingProvider = "ollama"
)

// Config is the top-level docintel configuration, corresponding to .docintel.yml.
type Config struct {
	EmbeddingProvider EmbeddingProvider `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string            `yaml:"embedding_model" koanf:"embedding_model"`
	EmbeddingDims     int               `yaml:"embedding_dims" koanf:"embedding_dims"`
	OllamaBaseURL     string            `yaml:"ollama_base_url,omitempty" koanf:"ollama_base_url"`

	// Deduplication and attribution tuning. The defaults are starting
	// points, not production-validated values.
	NearDupThreshold    float64 `yaml:"near_dup_threshold" koanf:"near_dup_threshold"`
	AutoAssignThreshold float64 `yaml:"auto_assign_threshold" koanf:"auto_assign_threshold"`
	PatternConfidence   float64 `yaml:"pattern_confidence" koanf:"pattern_confidence"`
	ProjectCodePattern  string  `yaml:"project_code_pattern" koanf:"project_code_pattern"`

	MaxConcurrency int     `yaml:"max_concurrency" koanf:"max_concurrency"`
	RetryAttempts  int     `yaml:"retry_attempts" koanf:"retry_attempts"`
	TrendMargin    float64 `yaml:"trend_margin" koanf:"trend_margin"`

	DataDir string `yaml:"data_dir" koanf:"data_dir"`
	Port    int    `yaml:"port" koanf:"port"`

	// Ingest folder globs (doublestar syntax).
	Include []string `yaml:"include" koanf:"include"`
	Exclude []string `yaml:"exclude" koanf:"exclude"`
}
