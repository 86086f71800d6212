package speckit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	speckit "github.com/airnub/speckit-internal-sub001"
	"github.com/airnub/speckit-internal-sub001/internal/rules"
	"github.com/airnub/speckit-internal-sub001/internal/types"
)

func fixedClock() func() time.Time {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	return func() time.Time {
		at = at.Add(time.Second)

		return at
	}
}

func testOptions(t *testing.T) speckit.Options {
	t.Helper()

	rule, err := rules.New(`exit code 1`, "i", "test-failure", "Inspect the failing test.", rules.ScopeAll)
	require.NoError(t, err)

	opts := speckit.DefaultOptions()
	opts.RunID = "run-1"
	opts.Clock = fixedClock()
	opts.Prompt = "Run `pnpm test`.\nEnsure lint passes."
	opts.Rules = []rules.Rule{rule}
	opts.Sources = []types.LogSource{
		types.EventsLogSource{ID: "agent", Events: []types.RunEvent{
			{ID: "a", Kind: types.KindToolCall, Payload: map[string]any{"command": "pnpm test"}},
			{ID: "b", Kind: types.KindToolResult, Payload: map[string]any{"success": true}},
		}},
	}

	return opts
}

func TestAnalyze(t *testing.T) {
	result, err := speckit.Analyze(context.Background(), testOptions(t))
	require.NoError(t, err)

	artifact := result.Artifact
	assert.Equal(t, types.SchemaVersion, artifact.SchemaVersion)
	assert.Equal(t, "run-1", artifact.Run.RunID)
	assert.Equal(t, []string{"agent"}, artifact.Run.SourceLogs)
	assert.True(t, artifact.Run.FinishedAt.After(artifact.Run.StartedAt))
	assert.Len(t, artifact.Run.Events, 2)

	require.Len(t, artifact.Requirements, 2)
	assert.Equal(t, types.StatusSatisfied, artifact.Requirements[0].Status)
	assert.Equal(t, []string{"a", "b"}, artifact.Requirements[0].Evidence)
	assert.Equal(t, types.StatusUnknown, artifact.Requirements[1].Status)
	assert.InDelta(t, 0.5, artifact.Metrics.ReqCoverage, 1e-9)

	assert.Empty(t, artifact.Labels)
	assert.Empty(t, artifact.Hints)
	assert.NotNil(t, artifact.Labels)

	assert.Equal(t, []string{
		"Regression guard: run `pnpm test` to reconfirm. Evidence: a, b.",
		"Plan check: run `pnpm lint` to establish coverage. No run evidence captured yet.",
	}, result.Checks)
	require.NotEmpty(t, result.Rows)
	assert.Equal(t, "50%", result.Rows[0].Value)
}

func TestAnalyzeLabels(t *testing.T) {
	opts := testOptions(t)
	opts.Sources = append(opts.Sources, types.RawLogSource{Content: "$ pnpm test\nexit code 1\n"})

	result, err := speckit.Analyze(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"agent", "source-2"}, result.Artifact.Run.SourceLogs)
	assert.Equal(t, []string{"test-failure"}, result.Artifact.Labels)
	assert.Equal(t, []string{"Inspect the failing test."}, result.Artifact.Hints)
	assert.Equal(t, types.StatusViolated, result.Artifact.Requirements[0].Status)
}

func TestAnalyzeNoSources(t *testing.T) {
	_, err := speckit.Analyze(context.Background(), speckit.DefaultOptions())
	require.ErrorIs(t, err, speckit.ErrNoSources)

	opts := speckit.DefaultOptions()
	opts.AllowEmpty = true

	result, err := speckit.Analyze(context.Background(), opts)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Artifact.Run.RunID)
	assert.Empty(t, result.Artifact.Run.Events)
	assert.Zero(t, result.Artifact.Metrics.ReqCoverage)
	assert.Nil(t, result.Artifact.Metrics.TTFPSeconds)
}

func TestAnalyzeStreamStages(t *testing.T) {
	var stages []speckit.Stage

	var last speckit.Event

	for event, err := range speckit.AnalyzeStream(context.Background(), testOptions(t)) {
		require.NoError(t, err)

		if event.Stage != speckit.StageComplete {
			assert.Nil(t, event.Result)
		}

		stages = append(stages, event.Stage)
		last = event
	}

	assert.Equal(t, []speckit.Stage{
		speckit.StageNormalizing,
		speckit.StageDerivingRequirements,
		speckit.StageLabeling,
		speckit.StageComputingMetrics,
		speckit.StageComplete,
	}, stages)
	assert.Equal(t, "deriving-requirements", speckit.StageDerivingRequirements.String())

	require.NotNil(t, last.Result)

	batch, err := speckit.Analyze(context.Background(), testOptions(t))
	require.NoError(t, err)
	assert.Equal(t, batch, last.Result)
}

func TestAnalyzeStreamBreak(t *testing.T) {
	count := 0

	for range speckit.AnalyzeStream(context.Background(), testOptions(t)) {
		count++

		break
	}

	assert.Equal(t, 1, count)
}

func TestAnalyzeStreamedSources(t *testing.T) {
	ch := make(chan types.LogSource)

	go func() {
		defer close(ch)

		ch <- &types.RawLogSource{ID: "late", Content: "$ pnpm lint\nexit code 0\n"}
		ch <- (*types.RawLogSource)(nil)
	}()

	opts := testOptions(t)
	opts.Stream = ch

	result, err := speckit.Analyze(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"agent", "late"}, result.Artifact.Run.SourceLogs)
	assert.Len(t, result.Artifact.Run.Events, 4)
}

func TestAnalyzeCanceledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := testOptions(t)
	opts.Stream = make(chan types.LogSource)

	_, err := speckit.Analyze(ctx, opts)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeTaskBlockRequirements(t *testing.T) {
	opts := speckit.DefaultOptions()
	opts.Clock = fixedClock()
	opts.Sources = []types.LogSource{types.RawLogSource{
		ID: "run",
		Content: "Task: Update the parser.\n" +
			"- Ensure lint passes.\n" +
			"- Run `go test ./...` before shipping.\n" +
			"\n" +
			"$ pnpm lint\n" +
			"exit code 1\n",
	}}

	result, err := speckit.Analyze(context.Background(), opts)
	require.NoError(t, err)

	reqs := result.Artifact.Requirements
	require.Len(t, reqs, 3)
	assert.Equal(t, "Update the parser.", reqs[0].Text)
	assert.Equal(t, types.StatusUnknown, reqs[0].Status)

	assert.Equal(t, "Ensure lint passes.", reqs[1].Text)
	assert.Equal(t, types.StatusViolated, reqs[1].Status)
	assert.Equal(t, []string{"run#4", "run#5"}, reqs[1].Evidence)

	assert.Equal(t, "Run `go test ./...` before shipping.", reqs[2].Text)
	assert.Empty(t, reqs[2].Evidence, "the prompt itself is not evidence")
}

func TestAnalyzeEvidenceIDsAreUniqueAcrossSources(t *testing.T) {
	opts := speckit.DefaultOptions()
	opts.Clock = fixedClock()
	opts.Prompt = "Run `pnpm test`."
	opts.Sources = []types.LogSource{
		types.RawLogSource{ID: "a", Content: `[{"id":"1","kind":"tool_call","command":"pnpm test"},` +
			`{"id":"2","kind":"tool_result","exit_code":0}]`},
		types.RawLogSource{ID: "b", Content: `[{"id":"1","kind":"tool_call","command":"ls"},` +
			`{"id":"2","kind":"tool_result","exit_code":1}]`},
	}

	result, err := speckit.Analyze(context.Background(), opts)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, event := range result.Artifact.Run.Events {
		assert.False(t, seen[event.ID], "duplicate event id %s", event.ID)
		seen[event.ID] = true
	}

	require.Len(t, result.Artifact.Requirements, 1)
	assert.Equal(t, types.StatusSatisfied, result.Artifact.Requirements[0].Status)
	assert.Equal(t, []string{"a:1", "a:2"}, result.Artifact.Requirements[0].Evidence)
}

func TestAnalyzeLiteralRulesAndIntegerExitCodes(t *testing.T) {
	opts := speckit.DefaultOptions()
	opts.Clock = fixedClock()
	opts.Prompt = "Run `pnpm build`."
	opts.Rules = []rules.Rule{{Pattern: "heap out of memory", Label: "oom", Hint: "Lower concurrency."}}
	opts.Sources = []types.LogSource{types.EventsLogSource{ID: "agent", Events: []types.RunEvent{
		{Kind: types.KindToolCall, Payload: map[string]any{"command": "pnpm build"}},
		{Kind: types.KindToolResult, Payload: map[string]any{"output": "JavaScript heap out of memory", "exit_code": 0}},
	}}}

	result, err := speckit.Analyze(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"oom"}, result.Artifact.Labels)
	assert.Equal(t, []string{"Lower concurrency."}, result.Artifact.Hints)
	require.Len(t, result.Artifact.Requirements, 1)
	assert.Equal(t, types.StatusSatisfied, result.Artifact.Requirements[0].Status)
}
