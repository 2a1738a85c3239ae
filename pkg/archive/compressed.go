package archive

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"go.uber.org/multierr"

	"github.com/drengskapur/omnivex/pkg/detect"
)

const peekSize = 512

// Decompress wraps r in the decoder for a detect compression format.
func Decompress(format string, r io.Reader) (io.ReadCloser, error) {
	switch format {
	case detect.FormatGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open gzip: %w", err)
		}
		return zr, nil
	case detect.FormatBzip2:
		return io.NopCloser(bzip2.NewReader(r)), nil
	case detect.FormatZstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("open zstd: %w", err)
		}
		return zr.IOReadCloser(), nil
	case detect.FormatLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// OpenCompressed peels a compression envelope off data. When the decoded
// stream is a tar archive the result iterates its entries; otherwise the
// result yields the decoded payload as a single unnamed entry.
//
// The decompressor is always applied before the tar reader.
func OpenCompressed(data []byte, format string, opts ...Option) (Reader, error) {
	rc, err := Decompress(format, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	br := bufio.NewReaderSize(rc, peekSize*8)
	head, err := br.Peek(peekSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, multierr.Append(fmt.Errorf("decode %s: %w", format, err), rc.Close())
	}

	if detect.Classify(head).Format == detect.FormatTar {
		return NewTarReader(br, rc, opts...), nil
	}
	return newStreamReader(br, rc, opts...), nil
}

// StreamReader yields one decompressed payload as a single entry.
type StreamReader struct {
	r      io.Reader
	closer io.Closer
	state  int
	limit  int64
}

const (
	streamBefore = iota
	streamCurrent
	streamDone
)

func newStreamReader(r io.Reader, closer io.Closer, opts ...Option) *StreamReader {
	o := newOptions(opts)
	return &StreamReader{r: r, closer: closer, limit: o.maxEntrySize}
}

func (s *StreamReader) Next() (Entry, error) {
	if s.state != streamBefore {
		s.state = streamDone
		return Entry{}, io.EOF
	}
	s.state = streamCurrent
	return Entry{Size: -1}, nil
}

func (s *StreamReader) ReadEntry() ([]byte, error) {
	if s.state != streamCurrent {
		return nil, ErrNoCurrentEntry
	}
	s.state = streamDone

	data, err := readLimited(s.r, s.limit)
	if err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}
	return data, nil
}

func (s *StreamReader) Kind() string { return "stream" }

func (s *StreamReader) Close() error {
	s.state = streamDone
	if s.closer == nil {
		return nil
	}
	c := s.closer
	s.closer = nil
	return c.Close()
}
