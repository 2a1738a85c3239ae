package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drengskapur/omnivex/internal/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	resetFlags(t, RootCmd)

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetArgs(append([]string{"--log-level", "error", "--log-format", "json"}, args...))
	t.Cleanup(func() { RootCmd.SetArgs(nil) })

	err := RootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// resetFlags restores every flag of c and its subcommands to its default so
// runs do not leak state into each other.
func resetFlags(t *testing.T, c *cobra.Command) {
	t.Helper()

	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			require.NoError(t, sv.Replace(nil))
		} else {
			require.NoError(t, f.Value.Set(f.DefValue))
		}
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(t, sub)
	}
}

func TestMergeCommand(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "docs"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "vendor"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "docs", "a.md"), []byte("alpha\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "vendor", "v.go"), []byte("package v\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "b.log"), []byte("noise\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "pkg.zip"),
		testutil.Zip(t, testutil.File{Name: "inner.txt", Body: "inside"}), 0o644))

	cfgFile := filepath.Join(t.TempDir(), "omnivex.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("ignore:\n  dirs: [vendor]\n"), 0o644))

	outDir := t.TempDir()
	target := filepath.Join(outDir, "nested", "merged.txt")
	treeFile := filepath.Join(outDir, "tree.txt")

	stdout, err := execute(t, "merge", src,
		"--config", cfgFile,
		"-o", target,
		"--tree", treeFile,
		"--ignore-suffix", ".LOG",
		"--workers", "2",
		"--max-entry-size", "1MiB",
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Merged 2 files (2 entries")

	merged, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t,
		"----------pkg.zip/inner.txt----------\ninside\n\n"+
			"----------docs/a.md----------\nalpha\n\n",
		string(merged))

	tree, err := os.ReadFile(treeFile)
	require.NoError(t, err)
	assert.Contains(t, string(tree), "a.md")
	assert.NotContains(t, string(tree), "v.go")
}

func TestMergeCommandRejectsBadSize(t *testing.T) {
	_, err := execute(t, "merge", t.TempDir(), "-o", filepath.Join(t.TempDir(), "out.txt"), "--max-total-size", "lots")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--max-total-size")
}

func TestDetectCommand(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "notes.txt")
	jar := filepath.Join(dir, "lib.jar")
	gz := filepath.Join(dir, "notes.txt.gz")
	require.NoError(t, os.WriteFile(plain, []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(jar, testutil.Jar(t), 0o644))
	require.NoError(t, os.WriteFile(gz, testutil.Gzip(t, []byte("hello")), 0o644))

	stdout, err := execute(t, "detect", "--entries", plain, jar, gz)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], plain+"\tplain/plain\t"), lines[0])
	assert.Contains(t, stdout, jar+"\tarchive/zip\t")
	assert.Contains(t, stdout, "  META-INF/MANIFEST.MF\t")
	assert.Contains(t, stdout, gz+"\tcompressed/gzip\t")
	assert.Contains(t, stdout, "  (gzip payload)\t?")
}

func TestDetectCommandMissingFile(t *testing.T) {
	_, err := execute(t, "detect", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 files")
}

func TestVersionCommand(t *testing.T) {
	stdout, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "omnivex version "), stdout)
}
