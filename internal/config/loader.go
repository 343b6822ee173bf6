package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a sift configuration from the given YAML file path.
// After parsing, defaults are applied to fields the file left out.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches standard locations and loads the first config found.
// Search order: ./sift.yaml, ~/.sift/config.yaml
func LoadDefault() (*Config, error) {
	candidates := []string{"sift.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".sift", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	return nil, fmt.Errorf("no sift config found (searched: %v)", candidates)
}

func applyDefaults(cfg *Config) {
	if cfg.CI.Provider == "" {
		cfg.CI.Provider = "github"
	}
	if cfg.CI.LogTTL == "" {
		cfg.CI.LogTTL = "15m"
	}
	for i := range cfg.Validate.Steps {
		if cfg.Validate.Steps[i].Timeout == "" {
			cfg.Validate.Steps[i].Timeout = "2m"
		}
	}
}
