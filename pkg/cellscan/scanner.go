// Package cellscan walks a processing directory for XDS output files and
// records their space group and unit cell lengths in a summary log.
package cellscan

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sumatoshi-tech/xdsref/pkg/xds"
)

// MaxDepth is the deepest directory level below the root that is visited.
// Deeper directories are pruned from the walk.
const MaxDepth = 2

const (
	summaryPrefix = "cell_param_"
	summarySuffix = ".log"

	// unitCellFields is the number of values following the unit cell marker.
	unitCellFields = 6
	// lengthFields is the number of leading unit cell values that are lengths.
	lengthFields = 3

	maxLineBytes = 1 << 20
)

// Result describes a completed scan.
type Result struct {
	// SummaryPath is the summary log that was written.
	SummaryPath string
	// Processed counts matching files that were read to completion.
	Processed int
	// Failed lists matching files that could not be read.
	Failed []FileError
}

// FileError records a per-file read failure.
type FileError struct {
	Path string
	Err  error
}

func (fe FileError) Error() string {
	return fmt.Sprintf("%s: %v", fe.Path, fe.Err)
}

func (fe FileError) Unwrap() error {
	return fe.Err
}

// Scanner walks directories and writes summary logs.
type Scanner struct {
	// Logger receives per-file warnings. Nil uses slog.Default().
	Logger *slog.Logger
}

// SummaryPath returns the summary log location for a root and file name.
func SummaryPath(root, target string) string {
	return filepath.Join(root, summaryPrefix+target+summarySuffix)
}

// Scan runs a scan with the default scanner.
func Scan(ctx context.Context, root, target string) (Result, error) {
	return (&Scanner{}).Scan(ctx, root, target)
}

// Scan walks root up to MaxDepth, reads every file named target and rewrites
// the summary log with one line per file. Unreadable files are logged and
// skipped; the summary log is always rewritten in full.
func (s *Scanner) Scan(ctx context.Context, root, target string) (Result, error) {
	logger := s.logger()

	info, statErr := os.Stat(root)
	if statErr != nil {
		return Result{}, fmt.Errorf("%w: scan root: %w", xds.ErrIO, statErr)
	}

	if !info.IsDir() {
		return Result{}, fmt.Errorf("%w: scan root %s is not a directory", xds.ErrIO, root)
	}

	result := Result{SummaryPath: SummaryPath(root, target)}

	out, createErr := os.Create(result.SummaryPath)
	if createErr != nil {
		return Result{}, fmt.Errorf("%w: create summary log: %w", xds.ErrIO, createErr)
	}

	writer := bufio.NewWriter(out)

	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if path == root {
				return err
			}

			logger.Warn("skipping unreadable path", "path", path, "error", err)

			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}

			return nil
		}

		if entry.IsDir() {
			if dirDepth(root, path) > MaxDepth {
				return fs.SkipDir
			}

			return nil
		}

		if entry.Name() != target || !entry.Type().IsRegular() {
			return nil
		}

		spaceGroup, lengths, readErr := readMarkers(path)
		if readErr != nil {
			logger.Warn("cannot read dataset", "path", path, "error", readErr)
			result.Failed = append(result.Failed, FileError{Path: path, Err: readErr})

			return nil
		}

		if spaceGroup == "" || len(lengths) < lengthFields {
			logger.Warn("dataset is missing header markers", "path", path,
				"space_group", spaceGroup != "", "unit_cell", len(lengths) >= lengthFields)
		}

		writeErr := WriteRecordLine(writer, path, spaceGroup, lengths)
		if writeErr != nil {
			return writeErr
		}

		result.Processed++

		return nil
	})

	flushErr := writer.Flush()
	closeErr := out.Close()

	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return result, fmt.Errorf("scan %s: %w", root, walkErr)
		}

		return result, fmt.Errorf("%w: scan %s: %w", xds.ErrIO, root, walkErr)
	}

	if err := errors.Join(flushErr, closeErr); err != nil {
		return result, fmt.Errorf("%w: write summary log: %w", xds.ErrIO, err)
	}

	logger.Debug("scan finished", "root", root, "target", target,
		"processed", result.Processed, "failed", len(result.Failed))

	return result, nil
}

func (s *Scanner) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}

	return slog.Default()
}

// dirDepth returns how many levels path lies below root.
func dirDepth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}

	return strings.Count(rel, string(filepath.Separator)) + 1
}

// readMarkers returns the first space group token and the unit cell lengths of
// the first unit cell line. Reading stops once both have been seen.
func readMarkers(path string) (spaceGroup string, lengths []string, err error) {
	file, openErr := os.Open(path)
	if openErr != nil {
		return "", nil, fmt.Errorf("%w: %w", xds.ErrIO, openErr)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineBytes)

	var haveCell bool

	for scanner.Scan() {
		line := scanner.Text()

		if spaceGroup == "" {
			if fields := xds.SpaceGroupMarker.Fields(line); len(fields) > 0 {
				spaceGroup = fields[0]
			}
		}

		if !haveCell && xds.UnitCellMarker.Match(line) {
			fields := xds.UnitCellMarker.Fields(line)
			if len(fields) > unitCellFields {
				fields = fields[:unitCellFields]
			}

			lengths = fields[:min(len(fields), lengthFields)]
			haveCell = true
		}

		if spaceGroup != "" && haveCell {
			break
		}
	}

	scanErr := scanner.Err()
	if scanErr != nil {
		return "", nil, fmt.Errorf("%w: %w", xds.ErrIO, scanErr)
	}

	return spaceGroup, lengths, nil
}
