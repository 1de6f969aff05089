package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to the given path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to docintel! Let's configure your document engine.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Embedding provider selection.
	providerPrompt := promptui.Select{
		Label: "Select embedding provider",
		Items: []string{"openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.EmbeddingProvider = EmbeddingProvider(providerStr)

	// 2. Embedding model.
	defaultModel := "text-embedding-3-small"
	if cfg.EmbeddingProvider == ProviderOllama {
		defaultModel = "nomic-embed-text"
	}
	modelPrompt := promptui.Prompt{
		Label:   "Embedding model",
		Default: defaultModel,
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model prompt: %w", err)
	}
	cfg.EmbeddingModel = model

	// 3. Embedding dimensions.
	dimsPrompt := promptui.Prompt{
		Label:   "Embedding dimensions",
		Default: strconv.Itoa(cfg.EmbeddingDims),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return fmt.Errorf("must be a positive integer")
			}
			return nil
		},
	}
	dimsStr, err := dimsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("dimensions prompt: %w", err)
	}
	cfg.EmbeddingDims, _ = strconv.Atoi(dimsStr)

	// 4. Data directory.
	dataDirPrompt := promptui.Prompt{
		Label:   "Data directory",
		Default: cfg.DataDir,
	}
	dataDir, err := dataDirPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir prompt: %w", err)
	}
	cfg.DataDir = dataDir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.Save(path); err != nil {
		return nil, err
	}
	fmt.Printf("\nConfiguration saved to %s\n", path)

	return cfg, nil
}
