// Package detect classifies byte buffers by content signature.
//
// Classification never looks at file names or extensions. A buffer is
// inspected for magic numbers in a fixed priority order: formats that must
// be excluded from a text merge first, then containers, then compression
// envelopes. Anything unrecognised is plain content.
package detect

import (
	"bytes"
	"fmt"
)

// Class is the coarse category a buffer falls into.
type Class int

const (
	// PlainContent is written to the merge output line by line.
	PlainContent Class = iota
	// Ignored formats are skipped without being opened.
	Ignored
	// Compressed buffers are a single compressed stream (gzip, bzip2, zstd, lz4).
	Compressed
	// Archive buffers hold multiple named entries (zip, tar).
	Archive
)

func (c Class) String() string {
	switch c {
	case PlainContent:
		return "plain"
	case Ignored:
		return "ignored"
	case Compressed:
		return "compressed"
	case Archive:
		return "archive"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Format names reported in Result.Format.
const (
	FormatPlain = "plain"
	FormatZip   = "zip"
	FormatTar   = "tar"
	FormatGzip  = "gzip"
	FormatBzip2 = "bzip2"
	FormatZstd  = "zstd"
	FormatLZ4   = "lz4"
	FormatPDF   = "pdf"
	FormatOOXML = "ooxml"
)

// Result is the outcome of classifying a buffer.
type Result struct {
	Class  Class
	Format string
}

func (r Result) String() string {
	return r.Class.String() + "/" + r.Format
}

var (
	magicPDF     = []byte("%PDF")
	magicZip     = []byte("PK\x03\x04")
	magicZipEnd  = []byte("PK\x05\x06")
	magicZipSpan = []byte("PK\x07\x08")
	magicGzip    = []byte{0x1f, 0x8b}
	magicBzip2   = []byte("BZh")
	magicZstd    = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicLZ4     = []byte{0x04, 0x22, 0x4d, 0x18}
	magicUstar   = []byte("ustar")
)

const (
	tarBlockSize   = 512
	tarMagicOffset = 257
)

// Classifier inspects buffers. The zero value is usable and recognises only
// the built-in signatures.
type Classifier struct {
	ignored []Signature
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithIgnoredSignatures adds operator supplied signatures that classify a
// buffer as Ignored. They are checked before every built-in signature.
func WithIgnoredSignatures(sigs ...Signature) Option {
	return func(c *Classifier) {
		c.ignored = append(c.ignored, sigs...)
	}
}

// New returns a Classifier configured with opts.
func New(opts ...Option) *Classifier {
	c := &Classifier{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultClassifier = New()

// Classify classifies data using only the built-in signatures.
func Classify(data []byte) Result {
	return defaultClassifier.Classify(data)
}

// Classify returns the category of data. It performs no I/O and never
// modifies data. Empty input is plain content.
func (c *Classifier) Classify(data []byte) Result {
	if len(data) == 0 {
		return Result{Class: PlainContent, Format: FormatPlain}
	}

	for _, sig := range c.ignored {
		if sig.Match(data) {
			return Result{Class: Ignored, Format: sig.Name}
		}
	}
	if bytes.HasPrefix(data, magicPDF) {
		return Result{Class: Ignored, Format: FormatPDF}
	}

	if isZip(data) {
		if isOOXML(data) {
			return Result{Class: Ignored, Format: FormatOOXML}
		}
		return Result{Class: Archive, Format: FormatZip}
	}
	if isTar(data) {
		return Result{Class: Archive, Format: FormatTar}
	}

	switch {
	case bytes.HasPrefix(data, magicGzip):
		return Result{Class: Compressed, Format: FormatGzip}
	case isBzip2(data):
		return Result{Class: Compressed, Format: FormatBzip2}
	case bytes.HasPrefix(data, magicZstd):
		return Result{Class: Compressed, Format: FormatZstd}
	case bytes.HasPrefix(data, magicLZ4):
		return Result{Class: Compressed, Format: FormatLZ4}
	}

	return Result{Class: PlainContent, Format: FormatPlain}
}

func isZip(data []byte) bool {
	return bytes.HasPrefix(data, magicZip) ||
		bytes.HasPrefix(data, magicZipEnd) ||
		bytes.HasPrefix(data, magicZipSpan)
}

func isBzip2(data []byte) bool {
	return len(data) >= 4 && bytes.HasPrefix(data, magicBzip2) && data[3] >= '1' && data[3] <= '9'
}

// isTar accepts POSIX/GNU headers by their ustar magic and falls back to
// verifying the header checksum for old v7 archives.
func isTar(data []byte) bool {
	if len(data) < tarBlockSize {
		return false
	}
	if bytes.Equal(data[tarMagicOffset:tarMagicOffset+len(magicUstar)], magicUstar) {
		return true
	}
	return validTarChecksum(data[:tarBlockSize])
}

func validTarChecksum(header []byte) bool {
	if header[0] == 0 {
		return false
	}
	want, ok := parseOctal(header[148:156])
	if !ok {
		return false
	}

	var unsigned, signed int64
	for i, b := range header {
		if i >= 148 && i < 156 {
			b = ' '
		}
		unsigned += int64(b)
		signed += int64(int8(b))
	}
	return want == unsigned || want == signed
}

func parseOctal(field []byte) (int64, bool) {
	field = bytes.Trim(field, " \x00")
	if len(field) == 0 {
		return 0, false
	}
	var n int64
	for _, b := range field {
		if b < '0' || b > '7' {
			return 0, false
		}
		n = n<<3 | int64(b-'0')
	}
	return n, true
}
