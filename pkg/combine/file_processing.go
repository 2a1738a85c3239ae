package combine

import (
	"bufio"
	"bytes"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/drengskapur/omnivex/pkg/progress"
)

const delimiter = "----------"

// sink writes delimited blocks to the merge output. The first write error
// is kept and returned by every later call.
type sink struct {
	bw      *bufio.Writer
	counter *progress.Writer
	err     error
}

func newSink(w io.Writer) *sink {
	counter := progress.NewWriter(w)
	return &sink{bw: bufio.NewWriterSize(counter, 64<<10), counter: counter}
}

// writeBlock writes the header for entryPath, content decoded as UTF-8 one
// line at a time, and a blank line.
func (s *sink) writeBlock(entryPath string, content []byte) error {
	if s.err != nil {
		return s.err
	}

	decoded, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), content)
	if err != nil {
		decoded = content
	}

	s.writeString(delimiter + entryPath + delimiter + "\n")
	forEachLine(decoded, func(line []byte) {
		s.write(line)
		s.writeString("\n")
	})
	s.writeString("\n")
	return s.err
}

func (s *sink) write(p []byte) {
	if s.err != nil {
		return
	}
	if _, err := s.bw.Write(p); err != nil {
		s.err = newMergeError(KindOutputWrite, "write", "", err)
	}
}

func (s *sink) writeString(str string) {
	if s.err != nil {
		return
	}
	if _, err := s.bw.WriteString(str); err != nil {
		s.err = newMergeError(KindOutputWrite, "write", "", err)
	}
}

// flush writes buffered output. It is safe to call after a failure.
func (s *sink) flush() error {
	if s.err != nil {
		return s.err
	}
	if err := s.bw.Flush(); err != nil {
		s.err = newMergeError(KindOutputWrite, "flush", "", err)
	}
	return s.err
}

func (s *sink) written() uint64 {
	return s.counter.Count()
}

// forEachLine calls fn for each line of data. Lines end at "\n", "\r\n" or
// a lone "\r"; terminators are not passed to fn and a trailing terminator
// does not start an extra empty line.
func forEachLine(data []byte, fn func(line []byte)) {
	for len(data) > 0 {
		i := bytes.IndexAny(data, "\r\n")
		if i < 0 {
			fn(data)
			return
		}
		fn(data[:i])
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			i++
		}
		data = data[i+1:]
	}
}
