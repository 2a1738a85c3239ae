package combine

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/drengskapur/omnivex/pkg/detect"
)

// Report summarises a merge.
type Report struct {
	FilesProcessed int           // Top-level files merged without error.
	FilesSkipped   int           // Top-level files that were empty, ignored or over a limit.
	FilesFailed    int           // Top-level files unreadable, or containers that wrote nothing because entries failed.
	EntriesWritten int           // Delimited blocks written to the output.
	EntriesSkipped int           // Nested entries skipped as ignored or over a limit.
	EntriesFailed  int           // Nested entries that could not be read.
	BytesWritten   uint64        // Size of the output.
	Elapsed        time.Duration // Wall time of the merge.
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (r Report) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("filesProcessed", r.FilesProcessed)
	enc.AddInt("filesSkipped", r.FilesSkipped)
	enc.AddInt("filesFailed", r.FilesFailed)
	enc.AddInt("entriesWritten", r.EntriesWritten)
	enc.AddInt("entriesSkipped", r.EntriesSkipped)
	enc.AddInt("entriesFailed", r.EntriesFailed)
	enc.AddUint64("bytesWritten", r.BytesWritten)
	enc.AddDuration("elapsed", r.Elapsed)
	return nil
}

var _ zapcore.ObjectMarshaler = Report{}

// fileContent is a top-level file after reading and classification.
type fileContent struct {
	Path   string        // Slash-separated path relative to the source root.
	Data   []byte        // Full content.
	Format detect.Result // Classification of Data.
	Err    error         // Read failure, if any.
}

func (f fileContent) fields() []zap.Field {
	return []zap.Field{
		zap.String("filePath", f.Path),
		zap.Int("sizeBytes", len(f.Data)),
		zap.Stringer("format", f.Format),
	}
}
