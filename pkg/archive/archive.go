// Package archive iterates the entries of zip and tar containers and peels
// single-stream compression envelopes.
//
// Every Reader works over bytes that are already in memory or over a
// decompressor fed from such bytes. Entry contents are returned as owned
// buffers so callers can classify them and hand them on intact.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/drengskapur/omnivex/pkg/detect"
)

var (
	// ErrNoCurrentEntry is returned by ReadEntry when there is no entry to
	// read: before the first Next, after Next returned io.EOF, or when the
	// current entry was already read.
	ErrNoCurrentEntry = errors.New("no current archive entry")

	// ErrEntryTooLarge is returned when an entry exceeds the configured
	// maximum entry size.
	ErrEntryTooLarge = errors.New("archive entry exceeds size limit")

	// ErrUnsupportedFormat is returned for a format this package cannot open.
	ErrUnsupportedFormat = errors.New("unsupported archive format")
)

// Entry describes one member of a container.
type Entry struct {
	// Name is the member path as recorded in the container. It is empty for
	// the payload of a single-stream envelope, which has no name of its own.
	Name  string
	IsDir bool
	// Size is the uncompressed size, or -1 when unknown.
	Size int64
}

// Reader iterates the entries of one container.
type Reader interface {
	// Next advances to the next entry. It returns io.EOF when the container
	// is exhausted.
	Next() (Entry, error)
	// ReadEntry returns the full content of the current entry.
	ReadEntry() ([]byte, error)
	// Kind names the container, for logs.
	Kind() string
	io.Closer
}

type options struct {
	maxEntrySize int64
}

// Option configures a Reader.
type Option func(*options)

// WithMaxEntrySize bounds the bytes ReadEntry will return. Zero means no limit.
func WithMaxEntrySize(n int64) Option {
	return func(o *options) {
		o.maxEntrySize = n
	}
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open returns a Reader for an archive buffer of the given detect format.
func Open(data []byte, format string, opts ...Option) (Reader, error) {
	switch format {
	case detect.FormatZip:
		return NewZipReader(data, opts...)
	case detect.FormatTar:
		return NewTarReader(bytes.NewReader(data), nil, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// readLimited reads r to the end, failing with ErrEntryTooLarge when more
// than limit bytes are available.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrEntryTooLarge, limit)
	}
	return data, nil
}
