// Package cliconfig loads the optional settings file the constellation CLI
// reads at startup: default store path, logging level/format, and an
// execution-options block (see ExecutionOpts). It never reaches into internal/engine, which takes its
// ExecutionOptions as an explicit argument per spec.md §9.
package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/alexisbeaulieu97/constellation/internal/logging"
)

// Config is the full settings document, loaded from ~/.constellation/config.yaml
// unless a caller overrides the path.
type Config struct {
	StorePath string        `yaml:"storePath,omitempty"`
	Log       LogConfig     `yaml:"log,omitempty"`
	Execution ExecutionOpts `yaml:"execution,omitempty"`
}

// LogConfig controls the CLI's internal/logging.Logger construction.
type LogConfig struct {
	Debug  string `yaml:"debug,omitempty" validate:"omitempty,oneof=off errors full"`
	Pretty bool   `yaml:"pretty,omitempty"`
}

// ExecutionOpts mirrors the four internal/report.ExecutionOptions flags.
// cmd/constellation does not read it: cliapp.App.Run and Resume build every
// report with all four flags on, and no command flag sets them.
type ExecutionOpts struct {
	IncludeTimings           bool `yaml:"includeTimings,omitempty"`
	IncludeProvenance        bool `yaml:"includeProvenance,omitempty"`
	IncludeBlockedGraph      bool `yaml:"includeBlockedGraph,omitempty"`
	IncludeResolutionSources bool `yaml:"includeResolutionSources,omitempty"`
}

// Default returns the configuration used when no settings file is present.
func Default() Config {
	return Config{
		StorePath: DefaultStorePath(),
		Log:       LogConfig{Debug: string(logging.DebugErrors)},
	}
}

// DefaultStorePath is ~/.constellation/store.json, falling back to a
// relative path if the home directory cannot be resolved.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".constellation", "store.json")
	}
	return filepath.Join(home, ".constellation", "store.json")
}

// DefaultConfigPath is ~/.constellation/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".constellation", "config.yaml")
	}
	return filepath.Join(home, ".constellation", "config.yaml")
}

// Load reads and validates the settings file at path. A missing file is not
// an error: Load returns Default() instead, since the settings file is
// entirely optional.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.StorePath == "" {
		cfg.StorePath = DefaultStorePath()
	}
	if cfg.Log.Debug == "" {
		cfg.Log.Debug = string(logging.DebugErrors)
	}

	if err := validatorInstance().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validateInst = validator.New()
	})
	return validateInst
}
