package cmd

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/drengskapur/omnivex/pkg/config"
	"github.com/drengskapur/omnivex/pkg/logging"
	"github.com/drengskapur/omnivex/pkg/version"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	// cfg and logger are set up before any subcommand runs.
	cfg    = config.Default()
	logger = zap.NewNop()
)

// RootCmd is the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "omnivex",
	Short: "Merge a directory tree, archives included, into one text file",
	Long: `Omnivex walks a directory and writes every text file it finds into a single
output, one delimited block per file. Zip and tar archives and gzip, bzip2,
zstd or lz4 streams are opened and their entries merged in place. PDFs and
Office documents are skipped.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := RootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "YAML configuration file")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "", "log format (auto, console, json)")
}

// setup loads the configuration and builds the logger. Flags override the
// file, the file overrides defaults.
func setup(cmd *cobra.Command, _ []string) error {
	c := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		c = loaded
	}
	c.ApplyEnv(os.Getenv)

	if f := cmd.Flag("log-level"); f != nil && f.Changed {
		c.Log.Level = logLevel
	}
	if f := cmd.Flag("log-format"); f != nil && f.Changed {
		c.Log.Format = logFormat
	}

	l, err := logging.New(logging.Options{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		AppName:    "omnivex",
		AppVersion: version.Get().Version,
	})
	if err != nil {
		return err
	}

	cfg = c
	logger = l
	zap.ReplaceGlobals(l)
	return nil
}

// Logger returns the logger built for the running command.
func Logger() *zap.Logger {
	return logger
}

// Execute runs the root command until it returns or ctx is cancelled.
func Execute(ctx context.Context) error {
	return fang.Execute(ctx, RootCmd, fang.WithVersion(version.Get().Version))
}
