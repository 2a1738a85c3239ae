package combine

import (
	"os"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/drengskapur/omnivex/pkg/ignore"
)

// Filters decides which paths under the source root are merged. Every
// predicate must pass for a file to be kept.
type Filters struct {
	// A directory whose name contains any of these is pruned. Each directory
	// name is matched on its own, so an entry containing "/" never matches.
	Dirs     []string
	Files    []string       // Base names excluded exactly.
	Suffixes []string       // Relative paths ending with any of these, ignoring case, are excluded.
	Patterns ignore.Matcher // Optional gitignore-style matcher.
	Exclude  []string       // Relative paths always excluded, normally the run's own outputs.
}

// skipDir reports whether the directory rel, and everything below it, is
// excluded.
func (f Filters) skipDir(rel string) (bool, string) {
	if f.ignoredDirName(path.Base(rel)) {
		return true, "ignoredDir"
	}
	if f.Patterns != nil && f.Patterns.Match(rel, true) {
		return true, "pattern"
	}
	return false, ""
}

// skipFile reports whether the regular file rel is excluded.
func (f Filters) skipFile(rel string) (bool, string) {
	for _, ex := range f.Exclude {
		if ex != "" && rel == ex {
			return true, "output"
		}
	}
	if dir := path.Dir(rel); dir != "." {
		for _, segment := range strings.Split(dir, "/") {
			if f.ignoredDirName(segment) {
				return true, "ignoredDir"
			}
		}
	}
	base := path.Base(rel)
	for _, name := range f.Files {
		if name != "" && base == name {
			return true, "ignoredFile"
		}
	}
	lower := strings.ToLower(rel)
	for _, suffix := range f.Suffixes {
		if suffix != "" && strings.HasSuffix(lower, strings.ToLower(suffix)) {
			return true, "ignoredSuffix"
		}
	}
	if f.Patterns != nil && f.Patterns.Match(rel, false) {
		return true, "pattern"
	}
	return false, ""
}

func (f Filters) ignoredDirName(name string) bool {
	for _, sub := range f.Dirs {
		if sub != "" && strings.Contains(name, sub) {
			return true
		}
	}
	return false
}

// ensureDirectory ensures a directory exists, creating it if necessary.
func ensureDirectory(dir string, logger *zap.Logger) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error("Failed to create directory", zap.String("path", dir), zap.Error(err))
		return err
	}
	logger.Debug("Ensured directory exists", zap.String("path", dir))
	return nil
}

// writeToFile writes data to a file and logs the operation.
func writeToFile(name string, data []byte, perm os.FileMode, logger *zap.Logger) error {
	if err := os.WriteFile(name, data, perm); err != nil {
		logger.Error("Failed to write file", zap.String("path", name), zap.Error(err))
		return err
	}
	logger.Debug("Successfully wrote file", zap.String("path", name))
	return nil
}
