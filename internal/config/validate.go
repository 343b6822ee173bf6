package config

import (
	"fmt"
	"time"
)

// Validate checks a parsed configuration for problems a run would otherwise
// hit halfway through: duplicate or unnamed steps, missing commands, and
// unparseable durations.
func Validate(cfg *Config) []error {
	var errs []error

	seen := make(map[string]bool)
	for i, s := range cfg.Validate.Steps {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("step %d: missing name", i))
			continue
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("step %q: duplicate name", s.Name))
		}
		seen[s.Name] = true

		if s.Command == "" {
			errs = append(errs, fmt.Errorf("step %q: missing command", s.Name))
		}
		if s.Timeout != "" {
			if _, err := time.ParseDuration(s.Timeout); err != nil {
				errs = append(errs, fmt.Errorf("step %q: invalid timeout %q", s.Name, s.Timeout))
			}
		}
	}

	if cfg.CI.LogTTL != "" {
		if _, err := time.ParseDuration(cfg.CI.LogTTL); err != nil {
			errs = append(errs, fmt.Errorf("ci: invalid log_ttl %q", cfg.CI.LogTTL))
		}
	}
	if cfg.CI.Provider != "" && cfg.CI.Provider != "github" {
		errs = append(errs, fmt.Errorf("ci: unknown provider %q", cfg.CI.Provider))
	}

	return errs
}
