// Package speckit analyzes coding-agent run logs into schema-versioned run artifacts.
package speckit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/airnub/speckit-internal-sub001/internal/metrics"
	"github.com/airnub/speckit-internal-sub001/internal/requirement"
	"github.com/airnub/speckit-internal-sub001/internal/rules"
	"github.com/airnub/speckit-internal-sub001/internal/types"
)

/*
Usage:

opts := speckit.DefaultOptions()
opts.Sources = []types.LogSource{types.RawLogSource{ID: "agent", Content: content}}
result, err := speckit.Analyze(ctx, opts)
fmt.Println(result.Artifact.Metrics.ReqCoverage)

// Labels from a rule document
opts.Rules = rules.Load("rules.yaml")

// Progressive
for event, err := range speckit.AnalyzeStream(ctx, opts) {
    if err != nil {
        return err
    }

    fmt.Println(event.Stage)
}

// Sources produced while analysis waits
ch := make(chan types.LogSource)
opts.Stream = ch
go func() {
    defer close(ch)
    ch <- types.RawLogSource{ID: "late", Content: content}
}()
result, err := speckit.Analyze(ctx, opts)

*/

var (
	// ErrNoSources is returned when no source was supplied and AllowEmpty is not set.
	ErrNoSources = errors.New("no log sources supplied")
	// ErrIncomplete is returned when a stream ends without a complete event.
	ErrIncomplete = errors.New("analysis ended without a result")
)

// Options configures the analysis.
type Options struct {
	// Sources are analyzed in order; sources received on Stream follow them.
	Sources []types.LogSource
	// Stream is drained until closed. Nil means no streamed sources.
	Stream <-chan types.LogSource

	Rules []rules.Rule

	RunID    string // default: random UUID
	Prompt   string // default: detected from the log
	Metadata map[string]string

	Clock func() time.Time // default: time.Now

	Commands   requirement.CommandTable // default: requirement.DefaultCommandTable
	Thresholds metrics.Thresholds       // default: metrics.DefaultThresholds
	Extras     []metrics.Extra

	// AllowEmpty produces an artifact for an empty run instead of ErrNoSources.
	AllowEmpty bool
}

// DefaultOptions returns options with the built-in command and threshold tables.
func DefaultOptions() Options {
	return Options{
		Clock:      time.Now,
		Commands:   requirement.DefaultCommandTable(),
		Thresholds: metrics.DefaultThresholds(),
	}
}

// Result contains the artifact and its derived views.
type Result struct {
	Artifact *types.RunArtifact
	// Checks holds one verification line per requirement, in requirement order.
	Checks []string
	// Rows is the metric summary table.
	Rows []metrics.Row
}

// Analyze runs the whole pipeline and returns its result.
func Analyze(ctx context.Context, opts Options) (*Result, error) {
	for event, err := range AnalyzeStream(ctx, opts) {
		if err != nil {
			return nil, err
		}

		if event.Stage == StageComplete {
			return event.Result, nil
		}
	}

	return nil, ErrIncomplete
}

func applyDefaults(opts *Options) {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	if opts.RunID == "" {
		opts.RunID = uuid.New().String()
	}

	if opts.Commands == nil {
		opts.Commands = requirement.DefaultCommandTable()
	}

	if opts.Thresholds == nil {
		opts.Thresholds = metrics.DefaultThresholds()
	}
}
