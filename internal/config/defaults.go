package config

// DefaultProjectCodePattern matches project-number-shaped tokens such as
// "PRJ-4521" or "OPS-101" in titles, file names, and leading content.
const DefaultProjectCodePattern = `\b[A-Z]{2,6}-\d{2,6}\b`

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    "text-embedding-3-small",
		EmbeddingDims:     384,

		NearDupThreshold:    0.92,
		AutoAssignThreshold: 0.6,
		PatternConfidence:   0.9,
		ProjectCodePattern:  DefaultProjectCodePattern,

		MaxConcurrency: 5,
		RetryAttempts:  3,
		TrendMargin:    0.10,

		DataDir: ".docintel",
		Port:    8420,

		Include: []string{"**/*.txt", "**/*.md"},
		Exclude: []string{"**/node_modules/**", "**/.git/**"},
	}
}
