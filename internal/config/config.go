package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the working directory when no config path is given
const DefaultFileName = "rulesync.yaml"

// DefaultExpectedDir is the checkout directory name rulesync must be run from
const DefaultExpectedDir = "shared-rules"

// Backend selects the version-control client
type Backend string

const (
	BackendShell Backend = "shell"
	BackendGoGit Backend = "go-git"
)

// Config represents the complete rulesync configuration
type Config struct {
	Invocation InvocationConfig `yaml:"invocation"`
	Source     SourceConfig     `yaml:"source"`
	Assets     []AssetDir       `yaml:"assets"`
	ConfigFile ConfigFile       `yaml:"config_file"`
}

// InvocationConfig constrains where rulesync may be started from
type InvocationConfig struct {
	ExpectedDir string `yaml:"expected_dir"`
}

// SourceConfig configures the versioned source checkout
type SourceConfig struct {
	Dir     string  `yaml:"dir"`
	Backend Backend `yaml:"backend"`
	Remote  string  `yaml:"remote"`
	Ref     string  `yaml:"ref"`
}

// AssetDir is a source/target directory pair synchronized file by file
type AssetDir struct {
	Description string `yaml:"description"`
	Source      string `yaml:"source"`
	Target      string `yaml:"target"`
}

// ConfigFile is the singleton seeded once and never overwritten
type ConfigFile struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// Enabled reports whether a config singleton is configured
func (c ConfigFile) Enabled() bool {
	return c.Source != "" && c.Target != ""
}

// Default returns the built-in layout: the checkout sits inside the consuming
// project and assets land in the project's editor directories.
func Default() *Config {
	return &Config{
		Invocation: InvocationConfig{ExpectedDir: DefaultExpectedDir},
		Source:     SourceConfig{Dir: ".", Backend: BackendShell},
		Assets: []AssetDir{
			{Description: "cursor rules", Source: "rules", Target: "../.cursor/rules"},
			{Description: "prompt templates", Source: "prompts", Target: "../.github/prompts"},
		},
		ConfigFile: ConfigFile{Source: "config/mcp.json", Target: "../.cursor/mcp.json"},
	}
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.expandEnv()
	cfg.applyDefaults()

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads path if given, else DefaultFileName from workDir if it
// exists, else the built-in defaults. It returns the path that was used, or
// an empty string for the defaults.
func LoadOrDefault(path, workDir string) (*Config, string, error) {
	if path != "" {
		cfg, err := Load(path)
		return cfg, path, err
	}

	candidate := filepath.Join(workDir, DefaultFileName)
	if _, err := os.Stat(candidate); err == nil {
		cfg, err := Load(candidate)
		return cfg, candidate, err
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, "", fmt.Errorf("failed to stat config file: %w", err)
	}

	cfg := Default()
	if err := ApplyEnv(cfg); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, "", nil
}

// expandEnv expands environment variables in all string fields
func (c *Config) expandEnv() {
	c.Invocation.ExpectedDir = os.ExpandEnv(c.Invocation.ExpectedDir)
	c.Source.Dir = os.ExpandEnv(c.Source.Dir)
	c.Source.Remote = os.ExpandEnv(c.Source.Remote)
	c.Source.Ref = os.ExpandEnv(c.Source.Ref)
	for i := range c.Assets {
		c.Assets[i].Source = os.ExpandEnv(c.Assets[i].Source)
		c.Assets[i].Target = os.ExpandEnv(c.Assets[i].Target)
	}
	c.ConfigFile.Source = os.ExpandEnv(c.ConfigFile.Source)
	c.ConfigFile.Target = os.ExpandEnv(c.ConfigFile.Target)
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Invocation.ExpectedDir == "" {
		c.Invocation.ExpectedDir = DefaultExpectedDir
	}
	if c.Source.Dir == "" {
		c.Source.Dir = "."
	}
	if c.Source.Backend == "" {
		c.Source.Backend = BackendShell
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Invocation.ExpectedDir == "" {
		return fmt.Errorf("invocation.expected_dir is required")
	}
	if c.Source.Dir == "" {
		return fmt.Errorf("source.dir is required")
	}

	switch c.Source.Backend {
	case BackendShell, BackendGoGit:
		// valid
	default:
		return fmt.Errorf("invalid source.backend: %s (must be shell or go-git)", c.Source.Backend)
	}

	if len(c.Assets) == 0 {
		return fmt.Errorf("at least one entry in assets is required")
	}

	targets := make(map[string]bool, len(c.Assets))
	for i, a := range c.Assets {
		if a.Description == "" {
			return fmt.Errorf("assets[%d].description is required", i)
		}
		if a.Source == "" {
			return fmt.Errorf("assets[%d].source is required", i)
		}
		if a.Target == "" {
			return fmt.Errorf("assets[%d].target is required", i)
		}
		target := filepath.Clean(a.Target)
		if targets[target] {
			return fmt.Errorf("assets[%d].target %s is used by another asset directory", i, a.Target)
		}
		targets[target] = true
	}

	if (c.ConfigFile.Source == "") != (c.ConfigFile.Target == "") {
		return fmt.Errorf("config_file: source and target must be set together")
	}

	return nil
}

// Resolve returns a copy of the config with every relative path made
// absolute against workDir. Asset and config-file sources are relative to
// the source checkout; targets are relative to workDir.
func (c *Config) Resolve(workDir string) *Config {
	out := *c
	out.Source.Dir = absJoin(workDir, c.Source.Dir)

	out.Assets = make([]AssetDir, len(c.Assets))
	for i, a := range c.Assets {
		out.Assets[i] = AssetDir{
			Description: a.Description,
			Source:      absJoin(out.Source.Dir, a.Source),
			Target:      absJoin(workDir, a.Target),
		}
	}

	if c.ConfigFile.Enabled() {
		out.ConfigFile = ConfigFile{
			Source: absJoin(out.Source.Dir, c.ConfigFile.Source),
			Target: absJoin(workDir, c.ConfigFile.Target),
		}
	}

	return &out
}

func absJoin(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}
