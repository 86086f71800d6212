package speckit

import (
	"cmp"
	"context"
	"fmt"
	"iter"

	"github.com/airnub/speckit-internal-sub001/internal/metrics"
	"github.com/airnub/speckit-internal-sub001/internal/normalize"
	"github.com/airnub/speckit-internal-sub001/internal/requirement"
	"github.com/airnub/speckit-internal-sub001/internal/rules"
	"github.com/airnub/speckit-internal-sub001/internal/types"
)

// AnalyzeStream runs the pipeline and yields one event per finished stage, then a single complete
// event carrying the result. An error is yielded at most once and ends the sequence. Breaking out
// of the loop stops the remaining stages.
func AnalyzeStream(ctx context.Context, opts Options) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		opts := opts
		applyDefaults(&opts)

		startedAt := opts.Clock()

		sources, err := gather(ctx, opts)
		if err != nil {
			yield(Event{}, err)

			return
		}

		if len(sources) == 0 && !opts.AllowEmpty {
			yield(Event{}, ErrNoSources)

			return
		}

		sourceIDs := make([]string, 0, len(sources))
		logs := make([]types.NormalizedLog, 0, len(sources))

		for _, src := range sources {
			sourceIDs = append(sourceIDs, src.SourceID())
			logs = append(logs, normalize.Source(src))
		}

		log := normalize.Merge(logs...)

		progress := Event{Sources: len(sources), Events: len(log.Events)}

		progress.Stage = StageNormalizing
		if !yield(progress, nil) {
			return
		}

		prompt := opts.Prompt
		if prompt == "" {
			prompt = normalize.DetectPrompt(log)
		}

		reqs := requirement.AttachEvidenceWith(requirement.Derive(log, prompt), log.Events, opts.Commands)

		progress.Stage = StageDerivingRequirements
		progress.Requirements = len(reqs)

		if !yield(progress, nil) {
			return
		}

		labels := rules.Apply(log, opts.Rules)
		hints := rules.Hints(labels, opts.Rules)

		progress.Stage = StageLabeling
		progress.Labels = len(labels)

		if !yield(progress, nil) {
			return
		}

		computed := metrics.Compute(log, reqs)
		rows := metrics.Summarize(computed, opts.Extras, opts.Thresholds)

		progress.Stage = StageComputingMetrics
		if !yield(progress, nil) {
			return
		}

		artifact := &types.RunArtifact{
			SchemaVersion: types.SchemaVersion,
			Run: types.RunInfo{
				RunID:      opts.RunID,
				SourceLogs: sourceIDs,
				StartedAt:  startedAt,
				FinishedAt: opts.Clock(),
				Events:     log.Events,
			},
			Requirements: reqs,
			Metrics:      computed,
			Labels:       orEmpty(labels),
			Hints:        orEmpty(hints),
			Normalized:   log,
			Prompt:       prompt,
			Metadata:     opts.Metadata,
		}

		progress.Stage = StageComplete
		progress.Result = &Result{
			Artifact: artifact,
			Checks:   requirement.Checks(reqs, opts.Commands),
			Rows:     rows,
		}

		yield(progress, nil)
	}
}

// gather collects the listed sources followed by everything received on the stream until it is
// closed. Sources without an id are named after their position.
func gather(ctx context.Context, opts Options) ([]types.LogSource, error) {
	sources := make([]types.LogSource, 0, len(opts.Sources))

	add := func(src types.LogSource) {
		if named, ok := withID(src, len(sources)+1); ok {
			sources = append(sources, named)
		}
	}

	for _, src := range opts.Sources {
		add(src)
	}

	if opts.Stream == nil {
		return sources, nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for log sources: %w", ctx.Err())
		case src, ok := <-opts.Stream:
			if !ok {
				return sources, nil
			}

			add(src)
		}
	}
}

// withID returns src as a value, named after its position when it has no id. Nil sources are
// reported as not ok.
func withID(src types.LogSource, position int) (types.LogSource, bool) {
	fallback := fmt.Sprintf("source-%d", position)

	switch val := src.(type) {
	case types.RawLogSource:
		val.ID = cmp.Or(val.ID, fallback)

		return val, true
	case *types.RawLogSource:
		if val == nil {
			return nil, false
		}

		return types.RawLogSource{ID: cmp.Or(val.ID, fallback), Content: val.Content, Format: val.Format}, true
	case types.EventsLogSource:
		val.ID = cmp.Or(val.ID, fallback)

		return val, true
	case *types.EventsLogSource:
		if val == nil {
			return nil, false
		}

		return types.EventsLogSource{ID: cmp.Or(val.ID, fallback), Events: val.Events}, true
	case types.NormalizedLogSource:
		val.ID = cmp.Or(val.ID, fallback)

		return val, true
	case *types.NormalizedLogSource:
		if val == nil {
			return nil, false
		}

		return types.NormalizedLogSource{ID: cmp.Or(val.ID, fallback), Log: val.Log}, true
	}

	return src, src != nil
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}

	return values
}
