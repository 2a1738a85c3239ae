package combine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/drengskapur/omnivex/pkg/pool"
)

// mergeParallel loads top-level files on the pool while writing them in tree
// order. Each file gets a one-slot channel; slots are queued in order and the
// queue length bounds how many loaded files wait in memory.
func (m *Merger) mergeParallel(ctx context.Context, files []string, s *sink, rep *Report) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	window := 2 * m.opts.pool.Size()
	slots := make(chan chan fileContent, window)

	m.logger.Debug("Distributing files to workers",
		zap.Int("files", len(files)),
		zap.Int("workers", m.opts.pool.Size()),
		zap.Int("window", window))

	go func() {
		defer close(slots)
		for _, rel := range files {
			slot := make(chan fileContent, 1)
			select {
			case slots <- slot:
			case <-ctx.Done():
				return
			}

			err := m.opts.pool.Submit(ctx, func() { slot <- m.load(rel) })
			switch {
			case err == nil:
			case errors.Is(err, pool.ErrClosed):
				m.logger.Warn("Worker pool closed, loading inline", zap.String("filePath", rel))
				slot <- m.load(rel)
			default:
				slot <- fileContent{Path: rel, Err: err}
				return
			}
		}
	}()

	n := 0
	for slot := range slots {
		if err := ctx.Err(); err != nil {
			return err
		}
		fc := <-slot
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.emit(fc, s, rep); err != nil {
			return err
		}
		n++
	}
	if n < len(files) {
		return ctx.Err()
	}
	return nil
}
