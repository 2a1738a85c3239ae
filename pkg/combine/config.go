package combine

import (
	"github.com/go-git/go-billy/v5"
	"go.uber.org/zap"

	"github.com/drengskapur/omnivex/pkg/detect"
	"github.com/drengskapur/omnivex/pkg/pool"
)

// Request holds the options for one merge. The engine never mutates it.
type Request struct {
	SourceRoot string // Directory to merge.
	TargetFile string // Destination of the merged text; excluded when inside SourceRoot.
	TreeFile   string // Optional destination of the directory tree listing.

	IgnoredSuffixes []string // Case-insensitive path suffixes.
	IgnoredDirs     []string // Substrings matched against each directory name.
	IgnoredFiles    []string // Exact base names.

	IgnorePatterns   []string           // Inline gitignore-style patterns.
	GlobalIgnoreFile string             // Optional gitignore-style pattern file.
	IgnoredMagic     []detect.Signature // Extra signatures classified as ignored.

	Limits Limits
}

// Limits bounds recursion and memory while descending into containers. A
// zero field disables that limit.
type Limits struct {
	MaxDepth     int   // Containers nested deeper than this are skipped.
	MaxEntrySize int64 // Largest buffer read for any file or entry.
	MaxTotalSize int64 // Bytes one top-level file may expand to.
	MaxEntries   int   // Entries read from a single container.
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:     8,
		MaxEntrySize: 64 << 20,
		MaxTotalSize: 512 << 20,
		MaxEntries:   10000,
	}
}

type options struct {
	logger     *zap.Logger
	pool       *pool.Pool
	limits     Limits
	classifier *detect.Classifier
	fsys       billy.Filesystem
}

// Option configures Run and NewMerger.
type Option func(*options)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPool reads and classifies top-level files on p. Output is still written
// in tree order on the calling goroutine. The caller owns p.
func WithPool(p *pool.Pool) Option {
	return func(o *options) {
		o.pool = p
	}
}

// WithLimits overrides the limits of NewMerger. Run takes them from the Request.
func WithLimits(l Limits) Option {
	return func(o *options) {
		o.limits = l
	}
}

// WithClassifier overrides the format classifier of NewMerger.
func WithClassifier(c *detect.Classifier) Option {
	return func(o *options) {
		o.classifier = c
	}
}

// WithFilesystem makes Run read files through fsys, which must be rooted at
// SourceRoot. SourceRoot is still validated on the operating system.
func WithFilesystem(fsys billy.Filesystem) Option {
	return func(o *options) {
		o.fsys = fsys
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:     zap.NewNop(),
		limits:     DefaultLimits(),
		classifier: detect.New(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
