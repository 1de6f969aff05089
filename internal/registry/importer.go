package registry

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Seed is one project entry in an import file.
type Seed struct {
	Number     string    `yaml:"number" json:"number"`
	Name       string    `yaml:"name" json:"name"`
	Status     string    `yaml:"status,omitempty" json:"status,omitempty"`
	ClientID   string    `yaml:"client_id,omitempty" json:"client_id,omitempty"`
	ClientName string    `yaml:"client_name,omitempty" json:"client_name,omitempty"`
	Centroid   []float32 `yaml:"centroid,omitempty" json:"centroid,omitempty"`
}

// ImportSeeds upserts the given seeds into the registry and returns the
// number imported. Seeds without a number are rejected before any write.
func (s *Store) ImportSeeds(ctx context.Context, seeds []Seed) (int, error) {
	for i, seed := range seeds {
		if seed.Number == "" {
			return 0, fmt.Errorf("seed %d: project number is required", i)
		}
	}
	for _, seed := range seeds {
		p := &Project{
			Number:     seed.Number,
			Name:       seed.Name,
			Status:     seed.Status,
			ClientID:   seed.ClientID,
			ClientName: seed.ClientName,
			Centroid:   seed.Centroid,
		}
		if err := s.Add(ctx, p); err != nil {
			return 0, err
		}
	}
	return len(seeds), nil
}

// ImportFile reads a YAML project list and imports it.
func (s *Store) ImportFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	var seeds []Seed
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}
	return s.ImportSeeds(ctx, seeds)
}
