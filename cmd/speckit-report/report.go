//nolint:wrapcheck
package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/semaphore"

	speckit "github.com/airnub/speckit-internal-sub001"
	"github.com/airnub/speckit-internal-sub001/internal/rules"
	"github.com/airnub/speckit-internal-sub001/internal/source"
)

const defaultOutputFile = "speckit-report.jsonl"

var (
	errNotDirectory = errors.New("not a directory")
	errNoLogFiles   = errors.New("no .log, .txt, .json, .jsonl or .ndjson files found")
	errReportArgs   = errors.New("expected exactly one argument: folder path")
)

//nolint:gochecknoglobals // configuration data, effectively const
var logExtensions = []string{".log", ".txt", ".json", ".jsonl", ".ndjson"}

type reportConfig struct {
	folder   string
	output   string
	rules    []rules.Rule
	redact   bool
	useMtime bool
	compress bool
	workers  int
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Analyze every run log in a folder and write a JSONL report",
		ArgsUsage: "<folder>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rules",
				Aliases: []string{"r"},
				Usage:   "Failure rule document (YAML or JSON)",
				Sources: cli.EnvVars("SPECKIT_RULES"),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Report file path",
				Value:   defaultOutputFile,
			},
			&cli.BoolFlag{
				Name:  "redact-path",
				Usage: "Strip file paths from the report",
			},
			&cli.BoolFlag{
				Name:  "mtime",
				Usage: "Date each run by the modification time of its log instead of the analysis time",
			},
			&cli.BoolFlag{
				Name:  "gzip",
				Usage: "Also write a gzip-compressed copy of the report",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"j"},
				Usage:   "Number of concurrent workers",
				Value:   runtime.NumCPU(),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return errReportArgs
			}

			config := reportConfig{
				folder:   cmd.Args().First(),
				output:   cmd.String("output"),
				redact:   cmd.Bool("redact-path"),
				useMtime: cmd.Bool("mtime"),
				compress: cmd.Bool("gzip"),
				workers:  max(cmd.Int("workers"), 1),
			}

			if path := cmd.String("rules"); path != "" {
				config.rules = rules.Load(path)
			}

			return runReport(ctx, config)
		},
	}
}

func runReport(ctx context.Context, config reportConfig) error {
	info, err := os.Stat(config.folder)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%q: %w", config.folder, errNotDirectory)
	}

	files, err := collectLogFiles(config.folder, config.output)
	if err != nil {
		return fmt.Errorf("scanning folder: %w", err)
	}

	if len(files) == 0 {
		return fmt.Errorf("%q: %w", config.folder, errNoLogFiles)
	}

	fmt.Fprintf(os.Stderr, "Found %d logs to analyze (%d workers)\n", len(files), config.workers)

	startTime := time.Now()
	results := make([]Record, len(files))

	var progress atomic.Int64

	sem := semaphore.NewWeighted(int64(config.workers))

	var waitGroup sync.WaitGroup

	for idx, filePath := range files {
		waitGroup.Add(1)

		go func(idx int, filePath string) {
			defer waitGroup.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				results[idx] = Record{File: filePath, Error: fmt.Sprintf("canceled: %v", err)}

				return
			}
			defer sem.Release(1)

			results[idx] = processFile(ctx, idx, filePath, config)

			done := progress.Add(1)
			fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", done, len(files), filePath)
		}(idx, filePath)
	}

	waitGroup.Wait()

	// Write results in file order.
	out, err := os.Create(config.output)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	failed := 0

	var totalRead, totalAnalyze time.Duration

	for idx := range results {
		record := &results[idx]

		if record.Error != "" {
			failed++
		}

		if record.Timing != nil {
			totalRead += millisToDuration(record.Timing.ReadMs)
			totalAnalyze += millisToDuration(record.Timing.AnalyzeMs)
		}

		if config.redact {
			record.File = ""
		}

		if err := enc.Encode(record); err != nil {
			slog.Error("writing record", "file", files[idx], "error", err)
		}
	}

	out.Close()

	if config.compress {
		if err := compressFile(config.output); err != nil {
			slog.Error("compressing report", "error", err)
		}
	}

	elapsed := time.Since(startTime)

	fmt.Fprintf(os.Stderr, "\nDone: %d logs in %s (%d failed)\n", len(files), elapsed.Truncate(time.Millisecond), failed)
	fmt.Fprintf(os.Stderr, "Report written to %s\n", config.output)

	fmt.Fprintf(os.Stderr, "\n--- Timing ---\n")
	fmt.Fprintf(os.Stderr, "  read:      %s (cumulative)\n", totalRead.Truncate(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  analysis:  %s (cumulative)\n", totalAnalyze.Truncate(time.Millisecond))

	fmt.Fprintln(os.Stderr)

	return runDigest(config.output, "", config.rules)
}

func processFile(ctx context.Context, idx int, filePath string, config reportConfig) Record {
	fileStart := time.Now()
	timing := &RecordTiming{}

	src, err := source.LoadFile(filePath)

	timing.ReadMs = durationMs(time.Since(fileStart))

	if err != nil {
		return Record{File: filePath, Error: fmt.Sprintf("read failed: %v", err), Timing: timing}
	}

	if config.redact {
		// Event ids embed the source id.
		src.ID = fmt.Sprintf("log-%d", idx+1)
	}

	opts := speckit.DefaultOptions()
	opts.Rules = config.rules
	opts.Sources = append(opts.Sources, src)

	if config.useMtime {
		if info, err := os.Stat(filePath); err == nil {
			modified := info.ModTime()
			opts.Clock = func() time.Time { return modified }
		}
	}

	analyzeStart := time.Now()

	result, err := speckit.Analyze(ctx, opts)

	timing.AnalyzeMs = durationMs(time.Since(analyzeStart))
	timing.TotalMs = durationMs(time.Since(fileStart))

	if err != nil {
		return Record{File: filePath, Error: fmt.Sprintf("analysis failed: %v", err), Timing: timing}
	}

	return Record{
		File:     filePath,
		Artifact: result.Artifact,
		Checks:   result.Checks,
		Timing:   timing,
	}
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func millisToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// collectLogFiles lists log files under root, skipping the report being written.
func collectLogFiles(root, exclude string) ([]string, error) {
	var files []string

	excluded, _ := filepath.Abs(exclude)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		if !slices.Contains(logExtensions, strings.ToLower(filepath.Ext(path))) {
			return nil
		}

		if abs, _ := filepath.Abs(path); abs == excluded {
			return nil
		}

		files = append(files, path)

		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)

	return files, nil
}

func compressFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // reading our own output file
	if err != nil {
		return err
	}

	gzFile, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer gzFile.Close()

	gzWriter := gzip.NewWriter(gzFile)

	if _, err := gzWriter.Write(data); err != nil {
		return err
	}

	return gzWriter.Close()
}
