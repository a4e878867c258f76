// Package config reads expreval.yaml: evaluation options, attribute
// patterns, proto files to load, and where variables come from.
//
// A minimal file:
//
//	backend: hybrid
//	options:
//	  enable_unknowns: true
//	unknown_patterns:
//	  - request.auth.*
//	variables:
//	  threshold: 10
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/expreval/internal/activation"
	"github.com/funvibe/expreval/internal/activation/sqlactivation"
	"github.com/funvibe/expreval/internal/attribute"
	"github.com/funvibe/expreval/internal/eval"
	"github.com/funvibe/expreval/internal/planner"
	"github.com/funvibe/expreval/internal/protoreg"
)

// Config represents the top-level expreval.yaml configuration.
type Config struct {
	// Backend selects the execution strategy: step, direct or hybrid.
	Backend string `yaml:"backend,omitempty"`

	Options Options `yaml:"options,omitempty"`

	// UnknownPatterns name the attributes that evaluate to unknown values
	// when options.enable_unknowns is set.
	UnknownPatterns []string `yaml:"unknown_patterns,omitempty"`

	// MissingAttributePatterns name the attributes that evaluate to
	// missing_attribute errors when options.enable_missing_attribute_errors
	// is set.
	MissingAttributePatterns []string `yaml:"missing_attribute_patterns,omitempty"`

	Proto Proto `yaml:"proto,omitempty"`

	// Variables are bound in every evaluation. They shadow variables of
	// the same name stored in SQLite.
	Variables map[string]interface{} `yaml:"variables,omitempty"`

	SQLite *SQLite `yaml:"sqlite,omitempty"`

	Server Server `yaml:"server,omitempty"`

	// dir is the directory relative paths are resolved against.
	dir string
}

// Options mirrors eval.Options.
type Options struct {
	// ShortCircuiting defaults to true when omitted.
	ShortCircuiting              *bool `yaml:"short_circuiting,omitempty"`
	EnableUnknowns               bool  `yaml:"enable_unknowns,omitempty"`
	EnableMissingAttributeErrors bool  `yaml:"enable_missing_attribute_errors,omitempty"`
	ComprehensionMaxIterations   int   `yaml:"comprehension_max_iterations,omitempty"`
	MaxCallDepth                 int   `yaml:"max_call_depth,omitempty"`
}

// Proto lists .proto files whose messages and enums expressions may use.
type Proto struct {
	Files       []string `yaml:"files,omitempty"`
	ImportPaths []string `yaml:"import_paths,omitempty"`
}

// SQLite points at a table of JSON-encoded variables.
type SQLite struct {
	Path  string `yaml:"path"`
	Table string `yaml:"table,omitempty"`
}

type Server struct {
	Addr string `yaml:"addr,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{dir: "."}
	cfg.setDefaults()
	return cfg
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses configuration content from bytes. The path is used for
// error messages and to resolve relative file names.
func Parse(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// FindConfig searches for a configuration file starting from dir and
// walking up to parent directories. It returns "" when there is none.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (c *Config) setDefaults() {
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if c.Options.ShortCircuiting == nil {
		on := true
		c.Options.ShortCircuiting = &on
	}
	if c.Options.MaxCallDepth == 0 {
		c.Options.MaxCallDepth = eval.DefaultMaxCallDepth
	}
	if c.SQLite != nil && c.SQLite.Table == "" {
		c.SQLite.Table = DefaultTable
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
}

// Validate checks the configuration for semantic errors.
func (c *Config) Validate() error {
	if _, err := planner.ParseMode(c.Backend); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	if c.Options.ComprehensionMaxIterations < 0 {
		return fmt.Errorf("options.comprehension_max_iterations must not be negative")
	}
	if c.Options.MaxCallDepth < 0 {
		return fmt.Errorf("options.max_call_depth must not be negative")
	}
	if len(c.UnknownPatterns) > 0 && !c.Options.EnableUnknowns {
		return fmt.Errorf("unknown_patterns given but options.enable_unknowns is off")
	}
	if len(c.MissingAttributePatterns) > 0 && !c.Options.EnableMissingAttributeErrors {
		return fmt.Errorf("missing_attribute_patterns given but options.enable_missing_attribute_errors is off")
	}
	for i, p := range c.UnknownPatterns {
		if _, err := attribute.ParsePattern(p); err != nil {
			return fmt.Errorf("unknown_patterns[%d]: %w", i, err)
		}
	}
	for i, p := range c.MissingAttributePatterns {
		if _, err := attribute.ParsePattern(p); err != nil {
			return fmt.Errorf("missing_attribute_patterns[%d]: %w", i, err)
		}
	}
	if c.SQLite != nil && c.SQLite.Path == "" {
		return fmt.Errorf("sqlite.path is required")
	}
	if _, err := activation.FromNode(c.Variables); err != nil {
		return fmt.Errorf("variables: %w", err)
	}
	return nil
}

// EvalOptions converts the options section and the pattern lists.
func (c *Config) EvalOptions() (eval.Options, error) {
	opts := eval.Options{
		EnableUnknowns:               c.Options.EnableUnknowns,
		EnableMissingAttributeErrors: c.Options.EnableMissingAttributeErrors,
		ShortCircuiting:              c.Options.ShortCircuiting == nil || *c.Options.ShortCircuiting,
		ComprehensionMaxIterations:   c.Options.ComprehensionMaxIterations,
		MaxCallDepth:                 c.Options.MaxCallDepth,
	}
	var err error
	if opts.UnknownPatterns, err = attribute.ParsePatterns(c.UnknownPatterns); err != nil {
		return eval.Options{}, fmt.Errorf("unknown_patterns: %w", err)
	}
	if opts.MissingAttributePatterns, err = attribute.ParsePatterns(c.MissingAttributePatterns); err != nil {
		return eval.Options{}, fmt.Errorf("missing_attribute_patterns: %w", err)
	}
	return opts, nil
}

// Resolve returns p relative to the configuration file.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.dir, p)
}

// Registry loads the proto files. It returns nil when none are listed.
func (c *Config) Registry() (*protoreg.Registry, error) {
	if len(c.Proto.Files) == 0 {
		return nil, nil
	}
	importPaths := make([]string, 0, len(c.Proto.ImportPaths)+1)
	for _, p := range c.Proto.ImportPaths {
		importPaths = append(importPaths, c.Resolve(p))
	}
	if len(importPaths) == 0 {
		importPaths = append(importPaths, c.dir)
	}
	reg := protoreg.New()
	if err := reg.Load(importPaths, c.Proto.Files...); err != nil {
		return nil, err
	}
	return reg, nil
}

// Activation binds the configured variables on top of the SQLite table,
// if any. The returned close function releases the database.
func (c *Config) Activation(ctx context.Context) (activation.Activation, func() error, error) {
	vars, err := activation.FromNode(c.Variables)
	if err != nil {
		return nil, nil, fmt.Errorf("variables: %w", err)
	}
	if c.SQLite == nil {
		return vars, func() error { return nil }, nil
	}
	store, err := sqlactivation.Open(ctx, c.Resolve(c.SQLite.Path), c.SQLite.Table)
	if err != nil {
		return nil, nil, err
	}
	return activation.Hierarchical(store.Activation(ctx), vars), store.Close, nil
}
