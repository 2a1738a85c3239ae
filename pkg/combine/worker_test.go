package combine

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/drengskapur/omnivex/internal/testutil"
	"github.com/drengskapur/omnivex/pkg/pool"
)

func populate(t *testing.T) billy.Filesystem {
	t.Helper()

	fsys := memfs.New()
	for i := 0; i < 40; i++ {
		name := fmt.Sprintf("dir%02d/file%02d.txt", i%7, i)
		require.NoError(t, util.WriteFile(fsys, name, []byte(fmt.Sprintf("content %d\nline two\n", i)), 0o644))
	}
	require.NoError(t, util.WriteFile(fsys, "archives/a.zip",
		testutil.Zip(t, testutil.File{Name: "x.txt", Body: "zipped"}), 0o644))
	require.NoError(t, util.WriteFile(fsys, "archives/b.tar.gz",
		testutil.TarGz(t, testutil.File{Name: "y.txt", Body: "tarred"}), 0o644))
	require.NoError(t, util.WriteFile(fsys, "archives/empty.txt", nil, 0o644))
	return fsys
}

func merge(t *testing.T, fsys billy.Filesystem, opts ...Option) (string, Report) {
	t.Helper()

	tree, err := Collect(fsys, Filters{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	rep, err := NewMerger(fsys, opts...).Merge(context.Background(), tree, &buf)
	require.NoError(t, err)
	return buf.String(), rep
}

func TestParallelMatchesSequential(t *testing.T) {
	fsys := populate(t)

	sequential, seqRep := merge(t, fsys)

	for _, workers := range []int{1, 3, 16} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			p := pool.New(workers, zaptest.NewLogger(t))
			defer p.Shutdown()

			parallel, parRep := merge(t, fsys, WithPool(p))
			assert.Equal(t, sequential, parallel)
			assert.Equal(t, seqRep.EntriesWritten, parRep.EntriesWritten)
			assert.Equal(t, seqRep.FilesSkipped, parRep.FilesSkipped)
		})
	}

	assert.Equal(t, 42, seqRep.EntriesWritten)
	assert.Equal(t, 1, seqRep.FilesSkipped)
}

func TestParallelWithClosedPool(t *testing.T) {
	fsys := populate(t)
	sequential, _ := merge(t, fsys)

	p := pool.New(2, nil)
	p.Shutdown()

	parallel, _ := merge(t, fsys, WithPool(p))
	assert.Equal(t, sequential, parallel)
}

func TestParallelCancelled(t *testing.T) {
	fsys := populate(t)
	tree, err := Collect(fsys, Filters{}, nil)
	require.NoError(t, err)

	p := pool.New(2, nil)
	defer p.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	_, err = NewMerger(fsys, WithPool(p)).Merge(ctx, tree, &buf)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, buf.String())
}
