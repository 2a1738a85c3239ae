// Package combine flattens a directory into a single text file.
//
// Every regular file under the source root is written as a delimited block:
//
//	----------<entry-path>----------
//	<line 1>
//	...
//	<blank line>
//
// Zip and tar archives and gzip, bzip2, zstd and lz4 streams are opened and
// their members merged recursively under "<container path>/<member name>".
// PDF and Office Open XML documents are skipped. Formats are detected from
// content, never from file names.
package combine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"go.uber.org/zap"

	"github.com/drengskapur/omnivex/pkg/detect"
	"github.com/drengskapur/omnivex/pkg/ignore"
	"github.com/drengskapur/omnivex/pkg/progress"
)

// Run merges req.SourceRoot into req.TargetFile.
//
// It fails with ErrNotADirectory before creating any output when the source
// root is unusable. Failures reading individual files are logged and
// counted in the Report. A write failure or cancellation of ctx ends the
// run; what was written so far is flushed and kept.
func Run(ctx context.Context, req Request, opts ...Option) (Report, error) {
	startTime := time.Now()
	o := newOptions(opts)
	logger := o.logger
	logger.Info("Starting merge", zap.String("sourceRoot", req.SourceRoot), zap.String("targetFile", req.TargetFile))

	root, err := filepath.Abs(req.SourceRoot)
	if err != nil {
		return Report{}, newMergeError(KindNotADirectory, "collect", req.SourceRoot, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return Report{}, newMergeError(KindNotADirectory, "collect", req.SourceRoot, err)
	}
	if !info.IsDir() {
		return Report{}, newMergeError(KindNotADirectory, "collect", req.SourceRoot, ErrNotADirectory)
	}

	fsys := o.fsys
	if fsys == nil {
		fsys = osfs.New(root)
	}

	gi, err := ignore.LoadIgnoreFiles(fsys, req.GlobalIgnoreFile, logger)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load ignore patterns: %w", err)
	}
	if len(req.IgnorePatterns) > 0 {
		gi.CompileIgnoreLines(req.IgnorePatterns...)
		logger.Debug("Added command-line ignore patterns", zap.Int("count", len(req.IgnorePatterns)))
	}

	filters := Filters{
		Dirs:     req.IgnoredDirs,
		Files:    req.IgnoredFiles,
		Suffixes: req.IgnoredSuffixes,
		Patterns: gi,
		Exclude:  []string{relativeInside(root, req.TargetFile), relativeInside(root, req.TreeFile)},
	}
	tree, err := Collect(fsys, filters, logger)
	if err != nil {
		return Report{}, newMergeError(KindNotADirectory, "collect", req.SourceRoot, err)
	}
	if tree.Len() == 0 {
		logger.Warn("No files to merge after filtering")
	}

	if err := ensureDirectory(filepath.Dir(req.TargetFile), logger); err != nil {
		return Report{}, newMergeError(KindOutputWrite, "create", req.TargetFile, err)
	}
	out, err := os.Create(req.TargetFile)
	if err != nil {
		logger.Error("Failed to create output file", zap.String("file", req.TargetFile), zap.Error(err))
		return Report{}, newMergeError(KindOutputWrite, "create", req.TargetFile, err)
	}

	mergerOpts := append([]Option{}, opts...)
	mergerOpts = append(mergerOpts, WithLimits(req.Limits))
	if len(req.IgnoredMagic) > 0 {
		mergerOpts = append(mergerOpts, WithClassifier(detect.New(detect.WithIgnoredSignatures(req.IgnoredMagic...))))
	}
	rep, mergeErr := NewMerger(fsys, mergerOpts...).Merge(ctx, tree, out)

	if err := out.Close(); err != nil && mergeErr == nil {
		mergeErr = newMergeError(KindOutputWrite, "close", req.TargetFile, err)
	}

	if req.TreeFile != "" && !isFatal(mergeErr) {
		if err := writeTree(req.TreeFile, filepath.Base(root), tree, logger); err != nil {
			logger.Warn("Failed to write tree structure", zap.String("file", req.TreeFile), zap.Error(err))
		}
	}

	rep.Elapsed = time.Since(startTime)
	fields := []zap.Field{
		zap.Object("report", rep),
		zap.String("outputSize", progress.FormatBytes(rep.BytesWritten)),
		zap.String("elapsedTime", progress.FormatElapsed(rep.Elapsed)),
	}
	switch {
	case mergeErr == nil:
		logger.Info("Merge completed", fields...)
	case errors.Is(mergeErr, context.Canceled), errors.Is(mergeErr, context.DeadlineExceeded):
		logger.Warn("Merge cancelled", append(fields, zap.Error(mergeErr))...)
	default:
		logger.Error("Merge failed", append(fields, zap.Error(mergeErr))...)
	}
	return rep, mergeErr
}

func writeTree(name, rootName string, tree *DirectoryTree, logger *zap.Logger) error {
	if err := ensureDirectory(filepath.Dir(name), logger); err != nil {
		return err
	}
	return writeToFile(name, []byte(tree.Render(rootName)), 0o644, logger)
}

// relativeInside returns target relative to root, slash-separated, or "" if
// target lies outside root.
func relativeInside(root, target string) string {
	if target == "" {
		return ""
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return ""
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return filepath.ToSlash(rel)
}
