package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPoolBoundsConcurrency(t *testing.T) {
	p := New(2, zaptest.NewLogger(t))
	assert.Equal(t, 2, p.Size())

	var running, peak atomic.Int32
	var done atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(context.Background(), func() {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			done.Add(1)
		}))
	}
	p.Shutdown()

	assert.Equal(t, int32(10), done.Load())
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPoolSubmitAfterShutdown(t *testing.T) {
	p := New(1, nil)
	p.Shutdown()
	p.Shutdown()

	err := p.Submit(context.Background(), func() {})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPoolSubmitCancelled(t *testing.T) {
	p := New(1, nil)
	defer p.Shutdown()

	release := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func() { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := p.Submit(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}

func TestPoolRecoversPanics(t *testing.T) {
	p := New(1, zaptest.NewLogger(t))

	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, p.Submit(context.Background(), func() { panic("boom") }))
	require.NoError(t, p.Submit(context.Background(), func() { wg.Done() }))

	wg.Wait()
	p.Shutdown()
}

func TestPoolDefaultSize(t *testing.T) {
	p := New(0, nil)
	defer p.Shutdown()
	assert.Positive(t, p.Size())
}
