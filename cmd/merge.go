package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/drengskapur/omnivex/pkg/combine"
	"github.com/drengskapur/omnivex/pkg/config"
	"github.com/drengskapur/omnivex/pkg/detect"
	"github.com/drengskapur/omnivex/pkg/logging"
	"github.com/drengskapur/omnivex/pkg/pool"
	"github.com/drengskapur/omnivex/pkg/progress"
)

type mergeFlags struct {
	output         string
	tree           string
	ignoreDirs     []string
	ignoreFiles    []string
	ignoreSuffixes []string
	ignorePatterns []string
	ignoreMagic    []string
	globalIgnore   string
	workers        int
	maxDepth       int
	maxEntrySize   string
	maxTotalSize   string
	maxEntries     int
}

var mergeOpts mergeFlags

var mergeCmd = &cobra.Command{
	Use:   "merge [DIR]",
	Short: "Merge a directory into a single text file",
	Long: `Merge every text file under DIR (default ".") into one output file. Archives
and compressed files are descended into, and each entry is written under its
nested path, e.g. "lib/app.jar/META-INF/MANIFEST.MF".`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMerge,
}

func init() {
	flags := mergeCmd.Flags()
	flags.StringVarP(&mergeOpts.output, "output", "o", "", "merged output file")
	flags.StringVar(&mergeOpts.tree, "tree", "", "also write the directory tree to this file")
	flags.StringSliceVar(&mergeOpts.ignoreDirs, "ignore-dir", nil, "skip directories whose name contains this text")
	flags.StringSliceVar(&mergeOpts.ignoreFiles, "ignore-file", nil, "skip files with this exact name")
	flags.StringSliceVar(&mergeOpts.ignoreSuffixes, "ignore-suffix", nil, "skip paths ending in this suffix (case-insensitive)")
	flags.StringArrayVar(&mergeOpts.ignorePatterns, "ignore-pattern", nil, "gitignore-style pattern to skip")
	flags.StringSliceVar(&mergeOpts.ignoreMagic, "ignore-magic", nil, "skip content starting with a signature, as name:offset:hex")
	flags.StringVar(&mergeOpts.globalIgnore, "global-ignore", "", "gitignore-style file applied to every run")
	flags.IntVarP(&mergeOpts.workers, "workers", "w", 0, "files read in parallel; 0 reads sequentially")
	flags.IntVar(&mergeOpts.maxDepth, "max-depth", config.DefaultMaxDepth, "deepest container nesting to descend into; 0 disables")
	flags.StringVar(&mergeOpts.maxEntrySize, "max-entry-size", "64MiB", "largest file or entry to read; 0 disables")
	flags.StringVar(&mergeOpts.maxTotalSize, "max-total-size", "512MiB", "bytes one file may expand to; 0 disables")
	flags.IntVar(&mergeOpts.maxEntries, "max-entries", config.DefaultMaxEntries, "entries read per archive; 0 disables")

	RootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	c := cfg
	if len(args) == 1 {
		c.Source = args[0]
	}
	if err := applyMergeFlags(cmd, &c); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	req, err := buildRequest(c)
	if err != nil {
		return err
	}

	runLogger, runID := logging.WithRunID(logger)
	runLogger.Debug("Merge configuration",
		zap.String("source", c.Source),
		zap.String("output", c.Output),
		zap.Int("workers", c.Workers),
	)

	opts := []combine.Option{combine.WithLogger(runLogger)}
	if c.Workers > 0 {
		p := pool.New(c.Workers, runLogger)
		defer p.Shutdown()
		opts = append(opts, combine.WithPool(p))
	}

	rep, err := combine.Run(cmd.Context(), req, opts...)
	if err != nil {
		return fmt.Errorf("merge %s (run %s): %w", c.Source, runID, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Merged %d files (%d entries, %s) into %s in %s\n",
		rep.FilesProcessed,
		rep.EntriesWritten,
		progress.FormatBytes(rep.BytesWritten),
		c.Output,
		progress.FormatElapsed(rep.Elapsed),
	)
	if rep.FilesFailed > 0 || rep.EntriesFailed > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d files and %d entries could not be read; see the log\n",
			rep.FilesFailed, rep.EntriesFailed)
	}
	return nil
}

// applyMergeFlags copies explicitly set flags over c.
func applyMergeFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("output") {
		c.Output = mergeOpts.output
	}
	if flags.Changed("tree") {
		c.Tree = mergeOpts.tree
	}
	if flags.Changed("workers") {
		c.Workers = mergeOpts.workers
	}
	if flags.Changed("global-ignore") {
		c.Ignore.GlobalFile = mergeOpts.globalIgnore
	}

	// List flags add to the configured lists.
	c.Ignore.Dirs = slices.Concat(c.Ignore.Dirs, mergeOpts.ignoreDirs)
	c.Ignore.Files = slices.Concat(c.Ignore.Files, mergeOpts.ignoreFiles)
	c.Ignore.Suffixes = slices.Concat(c.Ignore.Suffixes, mergeOpts.ignoreSuffixes)
	c.Ignore.Patterns = slices.Concat(c.Ignore.Patterns, mergeOpts.ignorePatterns)
	c.Ignore.Magic = slices.Concat(c.Ignore.Magic, mergeOpts.ignoreMagic)

	if flags.Changed("max-depth") {
		c.Limits.MaxDepth = mergeOpts.maxDepth
	}
	if flags.Changed("max-entries") {
		c.Limits.MaxEntries = mergeOpts.maxEntries
	}
	if flags.Changed("max-entry-size") {
		n, err := progress.ParseBytes(mergeOpts.maxEntrySize)
		if err != nil {
			return fmt.Errorf("--max-entry-size: %w", err)
		}
		c.Limits.MaxEntrySize = config.Size(n)
	}
	if flags.Changed("max-total-size") {
		n, err := progress.ParseBytes(mergeOpts.maxTotalSize)
		if err != nil {
			return fmt.Errorf("--max-total-size: %w", err)
		}
		c.Limits.MaxTotalSize = config.Size(n)
	}
	return nil
}

func buildRequest(c config.Config) (combine.Request, error) {
	sigs, err := detect.ParseSignatures(c.Ignore.Magic)
	if err != nil {
		return combine.Request{}, err
	}

	return combine.Request{
		SourceRoot:       c.Source,
		TargetFile:       c.Output,
		TreeFile:         c.Tree,
		IgnoredSuffixes:  c.Ignore.Suffixes,
		IgnoredDirs:      c.Ignore.Dirs,
		IgnoredFiles:     c.Ignore.Files,
		IgnorePatterns:   c.Ignore.Patterns,
		GlobalIgnoreFile: c.Ignore.GlobalFile,
		IgnoredMagic:     sigs,
		Limits: combine.Limits{
			MaxDepth:     c.Limits.MaxDepth,
			MaxEntrySize: int64(c.Limits.MaxEntrySize),
			MaxTotalSize: int64(c.Limits.MaxTotalSize),
			MaxEntries:   c.Limits.MaxEntries,
		},
	}, nil
}
