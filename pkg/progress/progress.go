// Package progress counts bytes flowing to the merge output and formats
// sizes and durations for log lines.
package progress

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Writer counts the bytes successfully written through it.
type Writer struct {
	W io.Writer
	n atomic.Uint64
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{W: w}
}

// Write implements io.Writer and tracks bytes written.
func (pw *Writer) Write(p []byte) (n int, err error) {
	n, err = pw.W.Write(p)
	if n > 0 {
		pw.n.Add(uint64(n))
	}
	return
}

// Count returns the number of bytes written so far.
func (pw *Writer) Count() uint64 {
	return pw.n.Load()
}

// FormatBytes renders a byte count with binary units, e.g. "1.5 MiB".
func FormatBytes(n uint64) string {
	return humanize.IBytes(n)
}

// ParseBytes parses sizes such as "64MiB", "512 MB" or "1024".
func ParseBytes(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", s, err)
	}
	if n > uint64(1<<63-1) {
		return 0, fmt.Errorf("parse size %q: too large", s)
	}
	return int64(n), nil
}

// FormatElapsed renders a duration at a precision suited to its magnitude.
func FormatElapsed(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%d µs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%d ms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1f seconds", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.1f minutes", d.Minutes())
	default:
		return fmt.Sprintf("%.1f hours", d.Hours())
	}
}
