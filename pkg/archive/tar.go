package archive

import (
	"archive/tar"
	"fmt"
	"io"
)

// TarReader iterates a tar stream sequentially. Only regular files and
// directories are surfaced; links, devices and extended headers are skipped.
type TarReader struct {
	tr     *tar.Reader
	cur    *tar.Header
	done   bool
	limit  int64
	closer io.Closer
}

// NewTarReader reads tar records from r. closer, when non-nil, is closed by
// Close and normally releases the decompressor feeding r.
func NewTarReader(r io.Reader, closer io.Closer, opts ...Option) *TarReader {
	o := newOptions(opts)
	return &TarReader{tr: tar.NewReader(r), limit: o.maxEntrySize, closer: closer}
}

func (t *TarReader) Next() (Entry, error) {
	t.cur = nil
	if t.done {
		return Entry{}, io.EOF
	}

	for {
		hdr, err := t.tr.Next()
		if err == io.EOF {
			t.done = true
			return Entry{}, io.EOF
		}
		if err != nil {
			t.done = true
			return Entry{}, fmt.Errorf("read tar header: %w", err)
		}

		switch hdr.Typeflag {
		case tar.TypeReg:
			t.cur = hdr
			return Entry{Name: hdr.Name, Size: hdr.Size}, nil
		case tar.TypeDir:
			return Entry{Name: hdr.Name, IsDir: true}, nil
		default:
			continue
		}
	}
}

func (t *TarReader) ReadEntry() ([]byte, error) {
	if t.cur == nil {
		return nil, ErrNoCurrentEntry
	}
	hdr := t.cur
	t.cur = nil

	if t.limit > 0 && hdr.Size > t.limit {
		return nil, fmt.Errorf("%w: %s declares %d bytes", ErrEntryTooLarge, hdr.Name, hdr.Size)
	}

	data, err := readLimited(t.tr, t.limit)
	if err != nil {
		return nil, fmt.Errorf("read tar entry %s: %w", hdr.Name, err)
	}
	return data, nil
}

func (t *TarReader) Kind() string { return "tar" }

func (t *TarReader) Close() error {
	t.done = true
	t.cur = nil
	if t.closer == nil {
		return nil
	}
	c := t.closer
	t.closer = nil
	return c.Close()
}
