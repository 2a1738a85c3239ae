package combine

import (
	"errors"
	"fmt"
)

// Sentinel errors for merge failure modes. Check them with errors.Is.
var (
	// ErrNotADirectory is returned before any output is created when the
	// source root is missing or is not a directory.
	ErrNotADirectory = errors.New("source root is not a directory")

	// ErrOutputWrite marks a failure writing the merge output. It ends the
	// run; output written before it is preserved.
	ErrOutputWrite = errors.New("output write failed")

	// ErrEntryRead marks a file or archive entry that could not be read.
	// Such failures are logged and the entry is skipped.
	ErrEntryRead = errors.New("entry read failed")

	// ErrDepthExceeded is reported when archives nest deeper than the
	// configured maximum depth.
	ErrDepthExceeded = errors.New("archive nesting too deep")

	// ErrBudgetExceeded is reported when a top-level file expands to more
	// bytes than the configured total size.
	ErrBudgetExceeded = errors.New("decompressed size budget exceeded")
)

// ErrorKind classifies a MergeError.
type ErrorKind int

const (
	KindNotADirectory ErrorKind = iota + 1
	KindEntryRead
	KindOutputWrite
	KindLimit
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotADirectory:
		return "NotADirectory"
	case KindEntryRead:
		return "EntryReadFailure"
	case KindOutputWrite:
		return "OutputWriteFailure"
	case KindLimit:
		return "LimitExceeded"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// MergeError gives context about a merge failure: the operation, the entry
// path being processed and the underlying error.
//
// MergeError supports errors.Is and errors.As through Unwrap.
type MergeError struct {
	Op   string // collect, read, open, write
	Path string // entry path, or the source root for KindNotADirectory
	Kind ErrorKind
	Err  error
}

func (e *MergeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *MergeError) Unwrap() error {
	return e.Err
}

func newMergeError(kind ErrorKind, op, path string, err error) *MergeError {
	var sentinel error
	switch kind {
	case KindNotADirectory:
		sentinel = ErrNotADirectory
	case KindEntryRead:
		sentinel = ErrEntryRead
	case KindOutputWrite:
		sentinel = ErrOutputWrite
	}
	if sentinel != nil && !errors.Is(err, sentinel) {
		err = fmt.Errorf("%w: %w", sentinel, err)
	}
	return &MergeError{Op: op, Path: path, Kind: kind, Err: err}
}

// isFatal reports whether err must end the whole merge rather than the
// current entry.
func isFatal(err error) bool {
	return errors.Is(err, ErrOutputWrite)
}
