package combine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-git/go-billy/v5"
	"go.uber.org/zap"

	"github.com/drengskapur/omnivex/pkg/archive"
	"github.com/drengskapur/omnivex/pkg/detect"
)

// Merger writes the files of a DirectoryTree to a single output, descending
// into archives and compressed files.
type Merger struct {
	fsys       billy.Filesystem
	logger     *zap.Logger
	limits     Limits
	classifier *detect.Classifier
	opts       options
}

// NewMerger returns a Merger reading files from fsys.
func NewMerger(fsys billy.Filesystem, opts ...Option) *Merger {
	o := newOptions(opts)
	return &Merger{
		fsys:       fsys,
		logger:     o.logger,
		limits:     o.limits,
		classifier: o.classifier,
		opts:       o,
	}
}

// Merge writes every file of tree to w in tree order. Per-file failures are
// logged, counted and skipped. A write failure on w ends the merge, as does
// cancellation of ctx, which is checked between top-level files. Buffered
// output is flushed to w before Merge returns in every case.
func (m *Merger) Merge(ctx context.Context, tree *DirectoryTree, w io.Writer) (Report, error) {
	start := time.Now()
	s := newSink(w)

	var rep Report
	var err error
	if m.opts.pool != nil {
		err = m.mergeParallel(ctx, tree.Files(), s, &rep)
	} else {
		err = m.mergeSequential(ctx, tree.Files(), s, &rep)
	}
	if flushErr := s.flush(); err == nil {
		err = flushErr
	}

	rep.BytesWritten = s.written()
	rep.Elapsed = time.Since(start)
	return rep, err
}

func (m *Merger) mergeSequential(ctx context.Context, files []string, s *sink, rep *Report) error {
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.emit(m.load(rel), s, rep); err != nil {
			return err
		}
	}
	return nil
}

// load reads and classifies one top-level file.
func (m *Merger) load(rel string) fileContent {
	f, err := m.fsys.Open(rel)
	if err != nil {
		return fileContent{Path: rel, Err: err}
	}
	defer f.Close()

	data, err := readBounded(f, m.limits.MaxEntrySize)
	if err != nil {
		return fileContent{Path: rel, Err: err}
	}
	return fileContent{Path: rel, Data: data, Format: m.classifier.Classify(data)}
}

// emit merges one loaded top-level file. Only fatal errors are returned.
func (m *Merger) emit(fc fileContent, s *sink, rep *Report) error {
	if fc.Err != nil {
		rep.FilesFailed++
		m.logger.Error("Failed to read file", zap.Error(newMergeError(KindEntryRead, "read", fc.Path, fc.Err)))
		return nil
	}
	if len(fc.Data) == 0 {
		rep.FilesSkipped++
		m.logger.Debug("Skipping empty file", zap.String("filePath", fc.Path))
		return nil
	}
	if fc.Format.Class == detect.Ignored {
		rep.FilesSkipped++
		m.logger.Debug("Skipping ignored format", fc.fields()...)
		return nil
	}

	b := newBudget(m.limits.MaxTotalSize)
	if err := b.charge(len(fc.Data)); err != nil {
		rep.FilesSkipped++
		m.logger.Warn("Skipping file over size budget", append(fc.fields(), zap.Error(err))...)
		return nil
	}

	m.logger.Debug("Merging file", fc.fields()...)
	written, failed := rep.EntriesWritten, rep.EntriesFailed
	if err := m.mergeBuffer(fc.Path, fc.Data, fc.Format, 0, b, s, rep); err != nil {
		if isFatal(err) {
			return err
		}
		rep.FilesFailed++
		m.logger.Error("Failed to merge file", zap.String("filePath", fc.Path), zap.Error(err))
		return nil
	}
	if rep.EntriesWritten == written && rep.EntriesFailed > failed {
		rep.FilesFailed++
		m.logger.Error("No entry of container could be read", fc.fields()...)
		return nil
	}
	rep.FilesProcessed++
	return nil
}

// mergeBuffer writes data, an owned buffer already classified as format,
// under entryPath. depth counts the containers already opened above it.
func (m *Merger) mergeBuffer(entryPath string, data []byte, format detect.Result, depth int, b *budget, s *sink, rep *Report) error {
	switch format.Class {
	case detect.Ignored:
		rep.EntriesSkipped++
		m.logger.Debug("Skipping ignored entry", zap.String("entryPath", entryPath), zap.Stringer("format", format))
		return nil

	case detect.PlainContent:
		if err := s.writeBlock(entryPath, data); err != nil {
			return err
		}
		rep.EntriesWritten++
		return nil
	}

	if m.limits.MaxDepth > 0 && depth >= m.limits.MaxDepth {
		rep.EntriesSkipped++
		m.logger.Warn("Skipping nested container",
			zap.String("entryPath", entryPath),
			zap.Int("depth", depth),
			zap.Error(newMergeError(KindLimit, "open", entryPath, ErrDepthExceeded)))
		return nil
	}

	r, err := m.open(data, format)
	if err != nil {
		return newMergeError(KindEntryRead, "open", entryPath, err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			m.logger.Warn("Failed to close container", zap.String("entryPath", entryPath), zap.Error(err))
		}
	}()

	m.logger.Debug("Descending into container",
		zap.String("entryPath", entryPath),
		zap.String("kind", r.Kind()),
		zap.Int("depth", depth))
	return m.mergeEntries(entryPath, r, depth, b, s, rep)
}

func (m *Merger) open(data []byte, format detect.Result) (archive.Reader, error) {
	limit := archive.WithMaxEntrySize(m.limits.MaxEntrySize)
	if format.Class == detect.Compressed {
		return archive.OpenCompressed(data, format.Format, limit)
	}
	return archive.Open(data, format.Format, limit)
}

func (m *Merger) mergeEntries(entryPath string, r archive.Reader, depth int, b *budget, s *sink, rep *Report) error {
	count := 0
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			rep.EntriesFailed++
			m.logger.Warn("Failed to read container entry",
				zap.Error(newMergeError(KindEntryRead, "read", entryPath, err)))
			return nil
		}
		if e.IsDir || e.Size == 0 {
			continue
		}

		child := joinEntryPath(entryPath, e.Name)
		count++
		if m.limits.MaxEntries > 0 && count > m.limits.MaxEntries {
			rep.EntriesSkipped++
			m.logger.Warn("Container entry limit reached",
				zap.String("entryPath", entryPath),
				zap.Int("maxEntries", m.limits.MaxEntries))
			return nil
		}

		data, err := r.ReadEntry()
		if err != nil {
			if errors.Is(err, archive.ErrEntryTooLarge) {
				rep.EntriesSkipped++
			} else {
				rep.EntriesFailed++
			}
			m.logger.Warn("Failed to read container entry",
				zap.Error(newMergeError(KindEntryRead, "read", child, err)))
			continue
		}
		if len(data) == 0 {
			continue
		}

		if err := b.charge(len(data)); err != nil {
			rep.EntriesSkipped++
			m.logger.Warn("Skipping rest of container",
				zap.String("entryPath", child),
				zap.Error(newMergeError(KindLimit, "read", child, err)))
			return nil
		}

		if err := m.mergeBuffer(child, data, m.classifier.Classify(data), depth+1, b, s, rep); err != nil {
			if isFatal(err) {
				return err
			}
			rep.EntriesFailed++
			m.logger.Warn("Failed to merge container entry", zap.String("entryPath", child), zap.Error(err))
		}
	}
}

// joinEntryPath names a container member. The unnamed payload of a
// compression envelope keeps the envelope's name.
func joinEntryPath(parent, name string) string {
	if name == "" {
		return parent
	}
	return parent + "/" + name
}

// budget caps the bytes one top-level file may expand to. Once exceeded it
// stays exhausted.
type budget struct {
	limit     int64
	used      int64
	exhausted bool
}

func newBudget(limit int64) *budget {
	return &budget{limit: limit}
}

func (b *budget) charge(n int) error {
	if b.limit <= 0 {
		return nil
	}
	if b.exhausted {
		return ErrBudgetExceeded
	}
	b.used += int64(n)
	if b.used > b.limit {
		b.exhausted = true
		return fmt.Errorf("%w: %d of %d bytes", ErrBudgetExceeded, b.used, b.limit)
	}
	return nil
}

// readBounded reads r to the end, failing when it holds more than limit
// bytes. A limit of zero or less reads everything.
func readBounded(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", archive.ErrEntryTooLarge, limit)
	}
	return data, nil
}
