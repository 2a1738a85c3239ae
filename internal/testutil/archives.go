// Package testutil builds in-memory archives and compressed streams for tests.
package testutil

import (
	"archive/tar"
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"
)

// File is an archive member. A Name ending in "/" is written as a directory.
type File struct {
	Name string
	Body string
}

var modTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// Zip returns a zip archive holding files in the given order.
func Zip(tb testing.TB, files ...File) []byte {
	tb.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		hdr := &zip.FileHeader{Name: f.Name, Method: zip.Deflate, Modified: modTime}
		if strings.HasSuffix(f.Name, "/") {
			hdr.Method = zip.Store
		}
		w, err := zw.CreateHeader(hdr)
		require.NoError(tb, err)
		if !strings.HasSuffix(f.Name, "/") {
			_, err = w.Write([]byte(f.Body))
			require.NoError(tb, err)
		}
	}
	require.NoError(tb, zw.Close())
	return buf.Bytes()
}

// Tar returns an uncompressed tar archive holding files in the given order.
func Tar(tb testing.TB, files ...File) []byte {
	tb.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, f := range files {
		hdr := &tar.Header{Name: f.Name, Mode: 0o644, ModTime: modTime, Size: int64(len(f.Body))}
		if strings.HasSuffix(f.Name, "/") {
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0o755
			hdr.Size = 0
		}
		require.NoError(tb, tw.WriteHeader(hdr))
		if hdr.Typeflag != tar.TypeDir {
			_, err := tw.Write([]byte(f.Body))
			require.NoError(tb, err)
		}
	}
	require.NoError(tb, tw.Close())
	return buf.Bytes()
}

// TarSymlink returns a tar archive with a symlink entry followed by files.
func TarSymlink(tb testing.TB, link, target string, files ...File) []byte {
	tb.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(tb, tw.WriteHeader(&tar.Header{
		Name: link, Linkname: target, Typeflag: tar.TypeSymlink, Mode: 0o777, ModTime: modTime,
	}))
	for _, f := range files {
		require.NoError(tb, tw.WriteHeader(&tar.Header{
			Name: f.Name, Mode: 0o644, ModTime: modTime, Size: int64(len(f.Body)),
		}))
		_, err := tw.Write([]byte(f.Body))
		require.NoError(tb, err)
	}
	require.NoError(tb, tw.Close())
	return buf.Bytes()
}

// Gzip compresses data as a single gzip member.
func Gzip(tb testing.TB, data []byte) []byte {
	tb.Helper()

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write(data)
	require.NoError(tb, err)
	require.NoError(tb, gw.Close())
	return buf.Bytes()
}

// TarGz is Gzip(Tar(files...)).
func TarGz(tb testing.TB, files ...File) []byte {
	tb.Helper()
	return Gzip(tb, Tar(tb, files...))
}

// Zstd compresses data as a zstd frame.
func Zstd(tb testing.TB, data []byte) []byte {
	tb.Helper()

	enc, err := zstd.NewWriter(nil)
	require.NoError(tb, err)
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

// LZ4 compresses data as an lz4 frame.
func LZ4(tb testing.TB, data []byte) []byte {
	tb.Helper()

	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(tb, err)
	require.NoError(tb, zw.Close())
	return buf.Bytes()
}

// Bzip2Text is the plain text held by Bzip2.
const Bzip2Text = "hello bz\nline2\n"

// The standard library only decodes bzip2, so the fixture is stored encoded.
const bzip2Hex = "425a68393141592653592ccf98ab000003d98000104000100012658010200022000f508069a6870ba3706a718f1772453850902ccf98ab"

// Bzip2 returns Bzip2Text compressed with bzip2 -9.
func Bzip2(tb testing.TB) []byte {
	tb.Helper()

	data, err := hex.DecodeString(bzip2Hex)
	require.NoError(tb, err)
	return data
}

// Docx returns a minimal Office Open XML word document.
func Docx(tb testing.TB) []byte {
	tb.Helper()

	return Zip(tb,
		File{Name: "[Content_Types].xml", Body: `<?xml version="1.0"?><Types/>`},
		File{Name: "_rels/.rels", Body: `<Relationships/>`},
		File{Name: "word/document.xml", Body: `<w:document>secret</w:document>`},
	)
}

// Jar returns a zip laid out like a java archive.
func Jar(tb testing.TB, files ...File) []byte {
	tb.Helper()

	all := append([]File{{Name: "META-INF/MANIFEST.MF", Body: "Manifest-Version: 1.0\n"}}, files...)
	return Zip(tb, all...)
}
