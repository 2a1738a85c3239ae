// Package ignore matches slash-separated relative paths against
// gitignore-style pattern files.
package ignore

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/gobwas/glob"
	"go.uber.org/zap"
)

// FileName is the per-root pattern file picked up automatically.
const FileName = ".mergeignore"

// Matcher reports whether a relative path is excluded.
type Matcher interface {
	Match(path string, isDir bool) bool
}

// IgnorePattern is one compiled pattern line.
type IgnorePattern struct {
	Negate  bool   // Pattern started with '!'.
	DirOnly bool   // Pattern ended with '/'.
	Line    string // Original pattern line.
	LineNo  int    // Line number in the source (1-based).
	Source  string // File the line came from, empty for inline patterns.

	globs []glob.Glob
}

func (p *IgnorePattern) matches(rel string) bool {
	for _, g := range p.globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// GitIgnore is an ordered collection of patterns. Later patterns override
// earlier ones, so a negation re-includes a previously excluded path.
type GitIgnore struct {
	Patterns []*IgnorePattern
	logger   *zap.Logger
}

// NewGitIgnore returns an empty pattern set.
func NewGitIgnore(logger *zap.Logger) *GitIgnore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitIgnore{logger: logger}
}

// LoadIgnoreFiles compiles the global pattern file, if any, followed by
// FileName at the root of fsys. Missing files are not an error.
func LoadIgnoreFiles(fsys billy.Filesystem, globalPath string, logger *zap.Logger) (*GitIgnore, error) {
	gi := NewGitIgnore(logger)

	if globalPath != "" {
		abs, err := filepath.Abs(globalPath)
		if err != nil {
			return nil, err
		}
		global := osfs.New(filepath.Dir(abs))
		if err := gi.CompileIgnoreFile(global, filepath.Base(abs)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := gi.CompileIgnoreFile(fsys, FileName); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	return gi, nil
}

// CompileIgnoreFile reads name from fsys and compiles its lines.
func (gi *GitIgnore) CompileIgnoreFile(fsys billy.Filesystem, name string) error {
	content, err := util.ReadFile(fsys, name)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			gi.logger.Error("Failed to read ignore file", zap.String("filePath", name), zap.Error(err))
		}
		return err
	}

	lines := strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")
	before := len(gi.Patterns)
	gi.compile(fsys.Join(fsys.Root(), name), lines)
	gi.logger.Debug("Compiled ignore patterns",
		zap.String("filePath", name),
		zap.Int("patternCount", len(gi.Patterns)-before))
	return nil
}

// CompileIgnoreLines compiles inline pattern lines.
func (gi *GitIgnore) CompileIgnoreLines(lines ...string) {
	gi.compile("", lines)
}

func (gi *GitIgnore) compile(source string, lines []string) {
	for i, line := range lines {
		p, err := parsePatternLine(line)
		if err != nil {
			gi.logger.Warn("Skipping invalid ignore pattern",
				zap.String("source", source),
				zap.Int("lineNo", i+1),
				zap.String("line", line),
				zap.Error(err))
			continue
		}
		if p == nil {
			continue
		}
		p.LineNo = i + 1
		p.Source = source
		gi.Patterns = append(gi.Patterns, p)
	}
}

// Match implements Matcher.
func (gi *GitIgnore) Match(rel string, isDir bool) bool {
	matched, _ := gi.MatchesPathWithPattern(rel, isDir)
	return matched
}

// MatchesPath reports whether a file path is excluded.
func (gi *GitIgnore) MatchesPath(rel string) bool {
	return gi.Match(rel, false)
}

// MatchesPathWithPattern reports whether rel is excluded and returns the last
// pattern that decided it. A path inside an excluded directory is excluded.
func (gi *GitIgnore) MatchesPathWithPattern(rel string, isDir bool) (bool, *IgnorePattern) {
	rel = normalizePath(rel)
	if rel == "" {
		return false, nil
	}

	segments := strings.Split(rel, "/")
	for i := 1; i < len(segments); i++ {
		if matched, p := gi.match(strings.Join(segments[:i], "/"), true); matched {
			return true, p
		}
	}
	return gi.match(rel, isDir)
}

func (gi *GitIgnore) match(rel string, isDir bool) (bool, *IgnorePattern) {
	var matched bool
	var last *IgnorePattern
	for _, p := range gi.Patterns {
		if p.DirOnly && !isDir {
			continue
		}
		if p.matches(rel) {
			matched = !p.Negate
			last = p
		}
	}
	return matched, last
}

func normalizePath(p string) string {
	p = filepath.ToSlash(p)
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

// parsePatternLine compiles one line. It returns nil for blank lines and
// comments.
func parsePatternLine(line string) (*IgnorePattern, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil, nil
	}

	p := &IgnorePattern{Line: line}
	if strings.HasPrefix(trimmed, "!") {
		p.Negate = true
		trimmed = trimmed[1:]
	}
	if strings.HasPrefix(trimmed, `\#`) || strings.HasPrefix(trimmed, `\!`) {
		trimmed = trimmed[1:]
	}
	if strings.HasSuffix(trimmed, "/") {
		p.DirOnly = true
		trimmed = strings.TrimRight(trimmed, "/")
	}

	// A slash anywhere but the end anchors the pattern to the root.
	anchored := strings.Contains(trimmed, "/")
	trimmed = strings.TrimPrefix(trimmed, "/")
	if trimmed == "" {
		return nil, nil
	}

	exprs := []string{trimmed}
	switch {
	case strings.HasPrefix(trimmed, "**/"):
		exprs = append(exprs, trimmed[len("**/"):])
	case !anchored:
		exprs = append(exprs, "**/"+trimmed)
	}
	for _, expr := range exprs {
		g, err := glob.Compile(expr, '/')
		if err != nil {
			return nil, err
		}
		p.globs = append(p.globs, g)
	}
	return p, nil
}
