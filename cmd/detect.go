package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/drengskapur/omnivex/pkg/archive"
	"github.com/drengskapur/omnivex/pkg/detect"
	"github.com/drengskapur/omnivex/pkg/progress"
)

var detectEntries bool

var detectCmd = &cobra.Command{
	Use:   "detect FILE...",
	Short: "Print how each file would be treated by merge",
	Long: `Classify each FILE the way merge does and print one line per file, e.g.
"notes.txt  plain/plain" or "lib.jar  archive/zip". With --entries the members
of archives and compressed files are listed too.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().BoolVarP(&detectEntries, "entries", "e", false, "list the entries of containers")
	RootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	sigs, err := detect.ParseSignatures(cfg.Ignore.Magic)
	if err != nil {
		return err
	}
	classifier := detect.New(detect.WithIgnoredSignatures(sigs...))
	out := cmd.OutOrStdout()

	var failed int
	for _, name := range args {
		data, err := os.ReadFile(name)
		if err != nil {
			logger.Warn("Cannot read file", zap.String("path", name), zap.Error(err))
			failed++
			continue
		}

		res := classifier.Classify(data)
		fmt.Fprintf(out, "%s\t%s\t%s\n", name, res, progress.FormatBytes(uint64(len(data))))

		if detectEntries && (res.Class == detect.Archive || res.Class == detect.Compressed) {
			if err := listEntries(out, data, res); err != nil {
				logger.Warn("Cannot list entries", zap.String("path", name), zap.Error(err))
				failed++
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be inspected", failed, len(args))
	}
	return nil
}

func listEntries(w io.Writer, data []byte, res detect.Result) error {
	var (
		r   archive.Reader
		err error
	)
	if res.Class == detect.Archive {
		r, err = archive.Open(data, res.Format)
	} else {
		r, err = archive.OpenCompressed(data, res.Format)
	}
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if e.IsDir {
			continue
		}

		name := e.Name
		if name == "" {
			name = "(" + res.Format + " payload)"
		}
		size := "?"
		if e.Size >= 0 {
			size = progress.FormatBytes(uint64(e.Size))
		}
		fmt.Fprintf(w, "  %s\t%s\n", name, size)
	}
}
