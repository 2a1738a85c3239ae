package combine

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drengskapur/omnivex/pkg/ignore"
)

func TestFiltersSkipFile(t *testing.T) {
	gi := ignore.NewGitIgnore(nil)
	gi.CompileIgnoreLines("*.bak")

	f := Filters{
		Dirs:     []string{"cache", "", "src/gen"},
		Files:    []string{"Makefile", ""},
		Suffixes: []string{".Class", ""},
		Patterns: gi,
		Exclude:  []string{"out/merged.txt", "", "out/tree.txt"},
	}

	tests := []struct {
		rel    string
		skip   bool
		reason string
	}{
		{"main.go", false, ""},
		{"Makefile", true, "ignoredFile"},
		{"sub/Makefile", true, "ignoredFile"},
		{"makefile", false, ""},
		{"A.CLASS", true, "ignoredSuffix"},
		{"pkg/B.class", true, "ignoredSuffix"},
		{"mycache/x.txt", true, "ignoredDir"},
		{"a/cache-v2/b/x.txt", true, "ignoredDir"},
		{"cachefile.txt", false, ""},
		{"old.bak", true, "pattern"},
		{"out/merged.txt", true, "output"},
		{"out/tree.txt", true, "output"},
		{"src/gen/x.go", false, ""},
		{"out/other.txt", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			skip, reason := f.skipFile(tt.rel)
			assert.Equal(t, tt.skip, skip)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestFiltersSkipDir(t *testing.T) {
	gi := ignore.NewGitIgnore(nil)
	gi.CompileIgnoreLines("build/")

	f := Filters{Dirs: []string{".git"}, Patterns: gi}

	skip, _ := f.skipDir("src/.git")
	assert.True(t, skip)
	skip, _ = f.skipDir(".github")
	assert.True(t, skip, "substring match")
	skip, _ = f.skipDir("build")
	assert.True(t, skip)
	skip, _ = f.skipDir("src")
	assert.False(t, skip)
}

func TestCollect(t *testing.T) {
	fsys := memfs.New()
	for name, body := range map[string]string{
		"z.txt":            "z",
		"a.txt":            "a",
		"lib/b.txt":        "b",
		"lib/a.txt":        "a",
		"lib/sub/c.txt":    "c",
		"vendor/dep/d.txt": "d",
	} {
		require.NoError(t, util.WriteFile(fsys, name, []byte(body), 0o644))
	}
	require.NoError(t, fsys.MkdirAll("empty/dir", 0o755))
	require.NoError(t, fsys.Symlink("a.txt", "link.txt"))

	tree, err := Collect(fsys, Filters{Dirs: []string{"vendor"}}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"", "lib", "lib/sub"}, tree.Dirs())
	assert.Equal(t, []string{"a.txt", "z.txt"}, tree.FilesIn(""))
	assert.Equal(t, []string{"lib/a.txt", "lib/b.txt"}, tree.FilesIn("lib"))
	assert.Equal(t, []string{"a.txt", "z.txt", "lib/a.txt", "lib/b.txt", "lib/sub/c.txt"}, tree.Files())
	assert.Equal(t, 5, tree.Len())
}
