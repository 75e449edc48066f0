package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"codenerd/internal/gardener"
)

// Config holds the harness's application-level configuration, loaded from
// a YAML file. Logging is configured separately from a TOML file (see
// logging.go) since the driver's external-interface contract specifies
// that format for the log configuration specifically.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Dir overrides the agent directory root. Empty means the driver
	// should fall back to layout.FromCurrentDir's default discovery.
	Dir string `yaml:"dir"`

	Gardener GardenerConfig `yaml:"gardener"`

	// Profiles name approval policies selectable via the CLI's --profile
	// flag. DefaultProfile is used when --profile is omitted.
	Profiles       map[string]Profile `yaml:"profiles"`
	DefaultProfile string              `yaml:"default_profile"`
}

// GardenerConfig tunes the entity extractor's heuristics; mirrors
// gardener.ExtractionConfig with yaml tags so it can live in the on-disk
// config without adding a serialization dependency to the gardener package
// itself.
type GardenerConfig struct {
	MinWorkflowSteps int      `yaml:"min_workflow_steps"`
	DecisionKeywords []string `yaml:"decision_keywords"`
}

// ToExtractionConfig converts the on-disk shape to the gardener package's
// runtime type, falling back to its defaults for zero fields.
func (g GardenerConfig) ToExtractionConfig() gardener.ExtractionConfig {
	defaults := gardener.DefaultExtractionConfig()
	cfg := gardener.ExtractionConfig{
		MinWorkflowSteps: g.MinWorkflowSteps,
		DecisionKeywords: g.DecisionKeywords,
	}
	if cfg.MinWorkflowSteps == 0 {
		cfg.MinWorkflowSteps = defaults.MinWorkflowSteps
	}
	if len(cfg.DecisionKeywords) == 0 {
		cfg.DecisionKeywords = defaults.DecisionKeywords
	}
	return cfg
}

// Profile selects an approval.Mode by name, matching approval.Mode's
// String() spellings ("read-only", "auto", "full-access").
type Profile struct {
	Mode string `yaml:"mode"`
}

// DefaultConfig returns the harness's default configuration: a cautious
// "auto" profile that prompts for risky actions, plus a read-only profile
// for unattended inspection.
func DefaultConfig() *Config {
	return &Config{
		Name:    "codenerd",
		Version: "1.0.0",
		Gardener: GardenerConfig{
			MinWorkflowSteps: 3,
			DecisionKeywords: []string{"decided", "chose", "will use", "selected"},
		},
		Profiles: map[string]Profile{
			"auto":        {Mode: "auto"},
			"read-only":   {Mode: "read-only"},
			"full-access": {Mode: "full-access"},
		},
		DefaultProfile: "auto",
	}
}

// Load reads configuration from a YAML file at path, falling back to
// DefaultConfig if the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to path as YAML, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ProfileByName returns the named profile, falling back to
// DefaultProfile, and finally to a bare "auto" profile if neither is
// configured.
func (c *Config) ProfileByName(name string) Profile {
	if name == "" {
		name = c.DefaultProfile
	}
	if p, ok := c.Profiles[name]; ok {
		return p
	}
	return Profile{Mode: "auto"}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.DefaultProfile != "" {
		if _, ok := c.Profiles[c.DefaultProfile]; !ok {
			return fmt.Errorf("default_profile %q is not defined in profiles", c.DefaultProfile)
		}
	}
	for name, p := range c.Profiles {
		switch p.Mode {
		case "read-only", "auto", "full-access":
		default:
			return fmt.Errorf("profile %q has invalid mode %q", name, p.Mode)
		}
	}
	return nil
}
