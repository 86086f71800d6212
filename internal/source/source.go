// Package source reads log files into log sources for the analyzer.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/farcloser/primordium/fault"
	"golang.org/x/sync/errgroup"

	"github.com/airnub/speckit-internal-sub001/internal/types"
)

// Stdin is the path that reads standard input.
const Stdin = "-"

// FormatFor guesses the format hint from the file extension.
func FormatFor(path string) types.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return types.FormatJSON
	case ".ndjson", ".jsonl":
		return types.FormatNDJSON
	case ".log", ".txt", ".md":
		return types.FormatText
	default:
		return types.FormatAuto
	}
}

// LoadFile reads one log. The path doubles as the source id.
func LoadFile(path string) (types.RawLogSource, error) {
	var (
		data []byte
		err  error
	)

	if path == Stdin {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}

	if err != nil {
		return types.RawLogSource{}, fmt.Errorf("%w: %s: %w", fault.ErrReadFailure, path, err)
	}

	id := path
	if path == Stdin {
		id = "stdin"
	}

	return types.RawLogSource{ID: id, Content: string(data), Format: FormatFor(path)}, nil
}

// LoadFiles reads paths with at most workers reads in flight (unbounded when workers <= 0). The
// result keeps the order of paths. The first failure cancels the remaining reads.
func LoadFiles(ctx context.Context, paths []string, workers int) ([]types.LogSource, error) {
	sources := make([]types.LogSource, len(paths))

	group, groupCtx := errgroup.WithContext(ctx)
	if workers > 0 {
		group.SetLimit(workers)
	}

	for idx, path := range paths {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			src, err := LoadFile(path)
			if err != nil {
				return err
			}

			sources[idx] = src

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return sources, nil
}

// Stream reads paths in the background and sends each source as soon as it is read, in completion
// order. The channel is closed once every read finished or failed. wait blocks until then and
// returns the first error. Canceling ctx stops pending sends.
func Stream(ctx context.Context, paths []string, workers int) (<-chan types.LogSource, func() error) {
	out := make(chan types.LogSource)
	done := make(chan struct{})

	var err error

	group, groupCtx := errgroup.WithContext(ctx)
	if workers > 0 {
		group.SetLimit(workers)
	}

	go func() {
		defer close(done)
		defer close(out)

		for _, path := range paths {
			group.Go(func() error {
				src, err := LoadFile(path)
				if err != nil {
					return err
				}

				select {
				case out <- src:
					return nil
				case <-groupCtx.Done():
					return groupCtx.Err()
				}
			})
		}

		err = group.Wait()
	}()

	return out, func() error {
		<-done

		return err
	}
}
