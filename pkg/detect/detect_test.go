package detect

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drengskapur/omnivex/internal/testutil"
)

func TestClassify(t *testing.T) {
	hello := []byte("hello world\n")

	tests := []struct {
		name string
		data []byte
		want Result
	}{
		{"empty", nil, Result{PlainContent, FormatPlain}},
		{"text", hello, Result{PlainContent, FormatPlain}},
		{"pdf", []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n"), Result{Ignored, FormatPDF}},
		{"docx", testutil.Docx(t), Result{Ignored, FormatOOXML}},
		{"vsdx", testutil.Zip(t,
			testutil.File{Name: "[Content_Types].xml", Body: "<Types/>"},
			testutil.File{Name: "visio/document.xml", Body: "<VisioDocument/>"},
		), Result{Ignored, FormatOOXML}},
		{"opc package", testutil.Zip(t,
			testutil.File{Name: "[Content_Types].xml", Body: "<Types/>"},
			testutil.File{Name: "lib/net8.0/a.txt", Body: "a"},
		), Result{Archive, FormatZip}},
		{"zip", testutil.Zip(t, testutil.File{Name: "a.txt", Body: "a"}), Result{Archive, FormatZip}},
		{"jar", testutil.Jar(t, testutil.File{Name: "A.class", Body: "\xca\xfe\xba\xbe"}), Result{Archive, FormatZip}},
		{"empty zip", testutil.Zip(t), Result{Archive, FormatZip}},
		{"tar", testutil.Tar(t, testutil.File{Name: "a.txt", Body: "a"}), Result{Archive, FormatTar}},
		{"v7 tar", v7Tar(t), Result{Archive, FormatTar}},
		{"gzip", testutil.Gzip(t, hello), Result{Compressed, FormatGzip}},
		{"tar.gz", testutil.TarGz(t, testutil.File{Name: "a.txt", Body: "a"}), Result{Compressed, FormatGzip}},
		{"bzip2", []byte("BZh91AY&SY\x00\x00"), Result{Compressed, FormatBzip2}},
		{"bzip2 stream", testutil.Bzip2(t), Result{Compressed, FormatBzip2}},
		{"bzip2 bad level", []byte("BZh0 not really"), Result{PlainContent, FormatPlain}},
		{"zstd", testutil.Zstd(t, hello), Result{Compressed, FormatZstd}},
		{"lz4", testutil.LZ4(t, hello), Result{Compressed, FormatLZ4}},
		{"short pk", []byte("PK"), Result{PlainContent, FormatPlain}},
		{"long text", bytes.Repeat([]byte("0123456789abcdef"), 64), Result{PlainContent, FormatPlain}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.data))
		})
	}
}

func TestClassifyDoesNotMutate(t *testing.T) {
	inputs := [][]byte{
		testutil.Docx(t),
		testutil.TarGz(t, testutil.File{Name: "x", Body: "y"}),
		testutil.Tar(t, testutil.File{Name: "x", Body: "y"}),
		[]byte("plain text"),
	}

	for i, data := range inputs {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			orig := bytes.Clone(data)
			first := Classify(data)
			second := Classify(data)

			assert.Equal(t, first, second)
			assert.Equal(t, orig, data)
		})
	}
}

func TestClassifierIgnoredSignatures(t *testing.T) {
	ole, err := ParseSignature("ole2:0:d0cf11e0a1b11ae1")
	require.NoError(t, err)
	gzipDenied, err := ParseSignature("nogz:0:1f8b")
	require.NoError(t, err)

	c := New(WithIgnoredSignatures(ole, gzipDenied))

	doc := append([]byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}, make([]byte, 64)...)
	assert.Equal(t, Result{Ignored, "ole2"}, c.Classify(doc))
	assert.Equal(t, Result{Ignored, "nogz"}, c.Classify(testutil.Gzip(t, []byte("x"))))
	assert.Equal(t, Result{PlainContent, FormatPlain}, c.Classify([]byte("text")))

	// The package-level classifier is unaffected.
	assert.Equal(t, Result{PlainContent, FormatPlain}, Classify(doc))
}

func TestClassString(t *testing.T) {
	assert.Equal(t, "archive/zip", Result{Archive, FormatZip}.String())
	assert.Equal(t, "class(42)", Class(42).String())
}

// v7Tar returns a tar header block without the ustar magic and with a
// recomputed checksum.
func v7Tar(t *testing.T) []byte {
	t.Helper()

	data := testutil.Tar(t, testutil.File{Name: "old.txt", Body: "old"})
	hdr := data[:tarBlockSize]
	for i := tarMagicOffset; i < 265; i++ {
		hdr[i] = 0
	}
	for i := 148; i < 156; i++ {
		hdr[i] = ' '
	}
	var sum int64
	for _, b := range hdr {
		sum += int64(b)
	}
	copy(hdr[148:156], fmt.Sprintf("%06o\x00 ", sum))
	return data
}
