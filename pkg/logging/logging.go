// Package logging builds the zap logger used by the CLI.
package logging

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Options selects the logger.
type Options struct {
	Level      string // debug, info, warn, error
	Format     string // auto, console or json
	AppName    string
	AppVersion string
	// OutputPaths defaults to stderr.
	OutputPaths []string
}

// New builds a logger. An "auto" format picks the console encoder when
// stderr is a terminal and JSON otherwise.
func New(opts Options) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(defaultString(opts.Level, "info"))
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	var cfg zap.Config
	switch opts.Format {
	case "console":
		cfg = zap.NewDevelopmentConfig()
	case "json":
		cfg = zap.NewProductionConfig()
	case "", "auto":
		if term.IsTerminal(int(os.Stderr.Fd())) {
			cfg = zap.NewDevelopmentConfig()
		} else {
			cfg = zap.NewProductionConfig()
		}
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	cfg.Level = level
	cfg.Sampling = nil
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if len(opts.OutputPaths) > 0 {
		cfg.OutputPaths = opts.OutputPaths
	}
	cfg.InitialFields = map[string]interface{}{
		"appName":    defaultString(opts.AppName, "omnivex"),
		"appVersion": defaultString(opts.AppVersion, "dev"),
	}

	return cfg.Build()
}

// WithRunID returns a child logger tagged with a fresh run identifier.
func WithRunID(logger *zap.Logger) (*zap.Logger, string) {
	id := uuid.NewString()
	return logger.With(zap.String("runID", id)), id
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
