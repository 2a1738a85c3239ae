package combine

import (
	"fmt"
	"path"

	"github.com/go-git/go-billy/v5"
	"go.uber.org/zap"
)

// Collect walks fsys from its root and returns the regular files that pass
// filters. The root itself is never part of the result. Symlinks, devices
// and other special files are skipped. Unreadable subdirectories are logged
// and skipped; an unreadable root is an error.
func Collect(fsys billy.Filesystem, filters Filters, logger *zap.Logger) (*DirectoryTree, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("Starting file collection")

	tree := newDirectoryTree()
	if err := collectDir(fsys, "", filters, tree, logger); err != nil {
		return nil, err
	}
	tree.sort()

	logger.Debug("Completed file collection",
		zap.Int("directories", len(tree.dirs)),
		zap.Int("files", tree.Len()))
	return tree, nil
}

func collectDir(fsys billy.Filesystem, dir string, filters Filters, tree *DirectoryTree, logger *zap.Logger) error {
	name := dir
	if name == "" {
		name = "."
	}

	infos, err := fsys.ReadDir(name)
	if err != nil {
		if dir == "" {
			return fmt.Errorf("read source root: %w", err)
		}
		logger.Warn("Error accessing directory during traversal", zap.String("directory", dir), zap.Error(err))
		return nil
	}

	for _, info := range infos {
		rel := path.Join(dir, info.Name())

		switch {
		case info.IsDir():
			if skip, reason := filters.skipDir(rel); skip {
				logger.Debug("Skipping ignored directory during traversal",
					zap.String("directory", rel), zap.String("reason", reason))
				continue
			}
			if err := collectDir(fsys, rel, filters, tree, logger); err != nil {
				return err
			}
		case info.Mode().IsRegular():
			if skip, reason := filters.skipFile(rel); skip {
				logger.Debug("Skipping ignored file during traversal",
					zap.String("filePath", rel), zap.String("reason", reason))
				continue
			}
			tree.add(rel)
		default:
			logger.Debug("Skipping non-regular file during traversal",
				zap.String("filePath", rel), zap.Stringer("mode", info.Mode()))
		}
	}
	return nil
}
