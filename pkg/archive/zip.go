package archive

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
)

// ZipReader iterates a zip archive in central-directory order.
type ZipReader struct {
	files []*zip.File
	pos   int
	read  bool
	limit int64
}

// NewZipReader parses the central directory of data.
func NewZipReader(data []byte, opts ...Option) (*ZipReader, error) {
	o := newOptions(opts)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	return &ZipReader{files: zr.File, pos: -1, limit: o.maxEntrySize}, nil
}

func (z *ZipReader) Next() (Entry, error) {
	if z.pos >= len(z.files) {
		return Entry{}, io.EOF
	}
	z.pos++
	z.read = false
	if z.pos >= len(z.files) {
		return Entry{}, io.EOF
	}

	f := z.files[z.pos]
	return Entry{
		Name:  f.Name,
		IsDir: strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir(),
		Size:  int64(f.UncompressedSize64),
	}, nil
}

func (z *ZipReader) ReadEntry() ([]byte, error) {
	if z.pos < 0 || z.pos >= len(z.files) || z.read {
		return nil, ErrNoCurrentEntry
	}
	z.read = true

	f := z.files[z.pos]
	if z.limit > 0 && f.UncompressedSize64 > uint64(z.limit) {
		return nil, fmt.Errorf("%w: %s declares %d bytes", ErrEntryTooLarge, f.Name, f.UncompressedSize64)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := readLimited(rc, z.limit)
	if err != nil {
		return nil, fmt.Errorf("read zip entry %s: %w", f.Name, err)
	}
	return data, nil
}

func (z *ZipReader) Kind() string { return "zip" }

// Close releases the entry list. The backing buffer is owned by the caller.
func (z *ZipReader) Close() error {
	z.files = nil
	z.pos = 0
	return nil
}
