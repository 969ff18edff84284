package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// envOverrides are read from the process environment and win over the file
type envOverrides struct {
	ExpectedDir string `env:"RULESYNC_EXPECTED_DIR"`
	SourceDir   string `env:"RULESYNC_SOURCE_DIR"`
	Backend     string `env:"RULESYNC_GIT_BACKEND"`
	Remote      string `env:"RULESYNC_GIT_REMOTE"`
	Ref         string `env:"RULESYNC_GIT_REF"`
}

// ApplyEnv overlays RULESYNC_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if o.ExpectedDir != "" {
		cfg.Invocation.ExpectedDir = o.ExpectedDir
	}
	if o.SourceDir != "" {
		cfg.Source.Dir = o.SourceDir
	}
	if o.Backend != "" {
		cfg.Source.Backend = Backend(o.Backend)
	}
	if o.Remote != "" {
		cfg.Source.Remote = o.Remote
	}
	if o.Ref != "" {
		cfg.Source.Ref = o.Ref
	}
	return nil
}

// ExpectedDir resolves only the invocation directory name, leaving the rest
// of the configuration unread and unvalidated. The config file at path (or
// DefaultFileName in workDir) is consulted if it parses; otherwise the
// default applies. RULESYNC_EXPECTED_DIR wins over both.
func ExpectedDir(path, workDir string) string {
	if path == "" {
		path = filepath.Join(workDir, DefaultFileName)
	}

	name := DefaultExpectedDir
	if data, err := os.ReadFile(os.ExpandEnv(path)); err == nil {
		var partial struct {
			Invocation InvocationConfig `yaml:"invocation"`
		}
		if yaml.Unmarshal(data, &partial) == nil && partial.Invocation.ExpectedDir != "" {
			name = os.ExpandEnv(partial.Invocation.ExpectedDir)
		}
	}

	var o envOverrides
	if err := env.Parse(&o); err == nil && o.ExpectedDir != "" {
		name = o.ExpectedDir
	}
	return name
}
