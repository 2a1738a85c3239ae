// Package config loads merge settings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/drengskapur/omnivex/pkg/detect"
	"github.com/drengskapur/omnivex/pkg/progress"
)

// GlobalIgnoreEnv names the environment variable consulted for a global
// ignore file when none is configured.
const GlobalIgnoreEnv = "OMNIVEX_GLOBAL_IGNORE"

// Default limits.
const (
	DefaultMaxDepth     = 8
	DefaultMaxEntrySize = 64 << 20
	DefaultMaxTotalSize = 512 << 20
	DefaultMaxEntries   = 10000
)

// Log formats.
const (
	FormatAuto    = "auto"
	FormatConsole = "console"
	FormatJSON    = "json"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the configuration options for a merge run.
type Config struct {
	Source  string       `yaml:"source"`  // Directory to merge.
	Output  string       `yaml:"output"`  // Destination of the merged text.
	Tree    string       `yaml:"tree"`    // Optional destination of the directory tree listing.
	Workers int          `yaml:"workers"` // Parallel readers; zero merges on the calling goroutine.
	Ignore  IgnoreConfig `yaml:"ignore"`
	Limits  LimitsConfig `yaml:"limits"`
	Log     LogConfig    `yaml:"log"`
}

// IgnoreConfig lists exclusions.
type IgnoreConfig struct {
	Dirs       []string `yaml:"dirs"`        // Substrings matched against each directory name.
	Files      []string `yaml:"files"`       // Exact base names.
	Suffixes   []string `yaml:"suffixes"`    // Case-insensitive path suffixes.
	Patterns   []string `yaml:"patterns"`    // Inline gitignore-style patterns.
	Magic      []string `yaml:"magic"`       // Extra ignored signatures, "name:offset:hex".
	GlobalFile string   `yaml:"global_file"` // Optional gitignore-style pattern file.
}

// LimitsConfig bounds recursion and memory. Zero disables a limit.
type LimitsConfig struct {
	MaxDepth     int  `yaml:"max_depth"`
	MaxEntrySize Size `yaml:"max_entry_size"`
	MaxTotalSize Size `yaml:"max_total_size"`
	MaxEntries   int  `yaml:"max_entries"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Size is a byte count written as an integer or a humanized string.
type Size int64

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Size) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	n, err := progress.ParseBytes(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*s = Size(n)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Size) MarshalYAML() (interface{}, error) {
	return progress.FormatBytes(uint64(s)), nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Source: ".",
		Output: "merged.txt",
		Limits: LimitsConfig{
			MaxDepth:     DefaultMaxDepth,
			MaxEntrySize: DefaultMaxEntrySize,
			MaxTotalSize: DefaultMaxTotalSize,
			MaxEntries:   DefaultMaxEntries,
		},
		Log: LogConfig{Level: "info", Format: FormatAuto},
	}
}

// Load reads path over Default. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv fills unset values from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if c.Ignore.GlobalFile == "" {
		c.Ignore.GlobalFile = getenv(GlobalIgnoreEnv)
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("%w: source is required", ErrInvalid)
	}
	if c.Output == "" {
		return fmt.Errorf("%w: output is required", ErrInvalid)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalid)
	}
	if c.Limits.MaxDepth < 0 || c.Limits.MaxEntries < 0 || c.Limits.MaxEntrySize < 0 || c.Limits.MaxTotalSize < 0 {
		return fmt.Errorf("%w: limits must not be negative", ErrInvalid)
	}
	for _, dir := range c.Ignore.Dirs {
		if strings.ContainsAny(dir, `/\`) {
			return fmt.Errorf("%w: ignored dir %q must be a single name, not a path", ErrInvalid, dir)
		}
	}
	if _, err := detect.ParseSignatures(c.Ignore.Magic); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log level: %w", ErrInvalid, err)
	}
	switch c.Log.Format {
	case FormatAuto, FormatConsole, FormatJSON:
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.Log.Format)
	}
	return nil
}
