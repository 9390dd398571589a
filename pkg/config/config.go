// Package config handles loading and saving sf configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/sf/config.yaml
//   - State:   ~/.local/state/sf/ (committed selections)
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/scalefilter/internal/datasource"
	"github.com/vanderheijden86/scalefilter/pkg/model"
	"github.com/vanderheijden86/scalefilter/pkg/output"
	"github.com/vanderheijden86/scalefilter/pkg/selection"
	"github.com/vanderheijden86/scalefilter/pkg/strategy"
	"github.com/vanderheijden86/scalefilter/pkg/tree"
)

// StrategyConfig selects the selection policy.
type StrategyConfig struct {
	Type  string `yaml:"type"`            // SingleSelect, MultiSelect or LimitedSelect
	Limit int    `yaml:"limit,omitempty"` // LimitedSelect cap
}

// PaginationConfig controls page fetching from a source.
type PaginationConfig struct {
	PageSize int `yaml:"page_size,omitempty"`
	Prefetch int `yaml:"prefetch,omitempty"` // Pages fetched at startup
}

// SearchConfig controls where search runs.
type SearchConfig struct {
	ServerSide bool `yaml:"server_side,omitempty"`
}

// InputConfig describes how input rows map to tree levels.
type InputConfig struct {
	Indexes   []model.LevelIndexes `yaml:"indexes,omitempty"`
	ValueAsID bool                 `yaml:"value_as_id,omitempty"`
}

// SortConfig lists the sorters for groups and items, in priority order.
type SortConfig struct {
	Group []selection.SortKey `yaml:"group,omitempty"`
	Item  []selection.SortKey `yaml:"item,omitempty"`
}

// Config is the top-level configuration for sf.
type Config struct {
	SelectionStrategy StrategyConfig        `yaml:"selection_strategy"`
	OutputFormat      string                `yaml:"output_format"`
	Pagination        PaginationConfig      `yaml:"pagination,omitempty"`
	Search            SearchConfig          `yaml:"search,omitempty"`
	Input             InputConfig           `yaml:"input,omitempty"`
	Sort              SortConfig            `yaml:"sort,omitempty"`
	Source            datasource.DataSource `yaml:"source,omitempty"`
	StateDir          string                `yaml:"state_dir,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SelectionStrategy: StrategyConfig{
			Type:  "LimitedSelect",
			Limit: strategy.DefaultLimit,
		},
		OutputFormat: string(output.LowestID),
		Pagination: PaginationConfig{
			PageSize: 100,
		},
	}
}

// ConfigDir returns the XDG config directory for sf.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "sf")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "sf")
}

// StateDir returns the XDG state directory for sf.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "sf")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "sf")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.StateDir = expandHome(cfg.StateDir)
	cfg.Source.Path = expandHome(cfg.Source.Path)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

var knownFields = []model.Field{
	model.FieldID, model.FieldLabel, model.FieldParentID,
	model.FieldParentLabel, model.FieldValue, model.FieldIsSelected,
}

// Validate checks names and numbers a typo would otherwise turn into a
// silent default. Unknown output formats are left to fall back to lowestId.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.Strategy(nil); err != nil {
		errs = append(errs, err)
	}
	if c.SelectionStrategy.Limit < 0 {
		errs = append(errs, fmt.Errorf("selection limit must not be negative: %d", c.SelectionStrategy.Limit))
	}
	if c.Pagination.PageSize < 0 || c.Pagination.Prefetch < 0 {
		errs = append(errs, errors.New("pagination values must not be negative"))
	}
	for i, level := range c.Input.Indexes {
		if _, ok := level[model.FieldID]; !ok {
			errs = append(errs, fmt.Errorf("input level %d has no id column", i))
		}
		for field := range level {
			if !slices.Contains(knownFields, field) {
				errs = append(errs, fmt.Errorf("input level %d: unknown field %q", i, field))
			}
		}
	}
	if _, _, err := c.Comparator(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Strategy builds the configured selection policy. warn receives limit
// rejections; nil logs them.
func (c Config) Strategy(warn func(string)) (strategy.Strategy, error) {
	var opts []strategy.LimitedOption
	if warn != nil {
		opts = append(opts, strategy.WithWarningHandler(warn))
	}
	return strategy.New(c.SelectionStrategy.Type, c.SelectionStrategy.Limit, opts...)
}

// Comparator resolves the configured sorters.
func (c Config) Comparator() (tree.Comparator[selection.Item], bool, error) {
	return selection.BuildComparator(c.Sort.Group, c.Sort.Item)
}

// ResolvedStateDir returns the configured state directory or the XDG one.
func (c Config) ResolvedStateDir() string {
	if c.StateDir != "" {
		return c.StateDir
	}
	return StateDir()
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
