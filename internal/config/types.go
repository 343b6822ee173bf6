package config

// Config is the top-level structure parsed from sift YAML.
type Config struct {
	Validate ValidateConfig `yaml:"validate"`
	CI       CIConfig       `yaml:"ci"`
}

// ValidateConfig defines the validation steps and cache behavior.
type ValidateConfig struct {
	Steps    []Step `yaml:"steps"`
	Cache    bool   `yaml:"cache"`
	CacheDir string `yaml:"cache_dir"`
}

// Step defines one validation step: a command to run and how to interpret
// its output. Extractor, when set, names a specific extractor and bypasses
// format detection; otherwise the router picks one.
type Step struct {
	Name      string `yaml:"name"`
	Command   string `yaml:"command"`
	Extractor string `yaml:"extractor"`
	Timeout   string `yaml:"timeout"`
}

// CIConfig configures the CI log watcher.
type CIConfig struct {
	Provider string `yaml:"provider"`
	LogTTL   string `yaml:"log_ttl"`
}
