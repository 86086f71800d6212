package requirement_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airnub/speckit-internal-sub001/internal/requirement"
	"github.com/airnub/speckit-internal-sub001/internal/types"
)

func TestCheckMessages(t *testing.T) {
	table := requirement.DefaultCommandTable()

	testCases := []struct {
		description string
		req         types.Requirement
		want        string
	}{
		{
			description: "backtick literal, satisfied with evidence",
			req: types.Requirement{
				Text:     "Run `pnpm test --filter unit` before merging.",
				Status:   types.StatusSatisfied,
				Evidence: []string{"event-42"},
			},
			want: "Regression guard: run `pnpm test --filter unit` to reconfirm. Evidence: event-42.",
		},
		{
			description: "keyword table, violated without evidence",
			req: types.Requirement{
				Text:   "Ensure lint passes before shipping the patch.",
				Status: types.StatusViolated,
			},
			want: "Remediate failure and re-run `pnpm lint`. No run evidence captured yet.",
		},
		{
			description: "file fallback, unknown",
			req: types.Requirement{
				Text:   "Document the behavior change in README.md and changelog.",
				Status: types.StatusUnknown,
			},
			want: "Plan check: run `git diff --stat README.md` to establish coverage. No run evidence captured yet.",
		},
		{
			description: "nothing recognizable",
			req: types.Requirement{
				Text:     "Make it nicer.",
				Status:   types.StatusUnknown,
				Evidence: []string{"a", "b"},
			},
			want: "Plan check: run `git diff --stat` to establish coverage. Evidence: a, b.",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			assert.Equal(t, tc.want, requirement.Check(tc.req, table))
		})
	}
}

func TestCommandTableOrderAndOverride(t *testing.T) {
	table := requirement.DefaultCommandTable()

	assert.Equal(t, "pnpm lint", requirement.Command("Run tests and lint everything.", table))
	assert.Equal(t, "pnpm test", requirement.Command("All tests must pass.", table))

	custom := requirement.CommandTable{{Keyword: "test", Command: "go test ./..."}}
	assert.Equal(t, "go test ./...", requirement.Command("All tests must pass.", custom))
}

func TestExtractImperative(t *testing.T) {
	text := "Task: Ensure lint passes before shipping the patch.\n" +
		"The current build is flaky. You must run `pnpm test --filter unit`.\n" +
		"- Document the behavior change in README.md and changelog.\n" +
		"Some context without obligations.\n" +
		"ensure   LINT passes before shipping the patch\n"

	assert.Equal(t, []string{
		"Ensure lint passes before shipping the patch.",
		"You must run `pnpm test --filter unit`.",
		"Document the behavior change in README.md and changelog.",
	}, requirement.ExtractImperative(text))

	assert.Empty(t, requirement.ExtractImperative(""))
}

func TestExtractKeepsCodeSpansIntact(t *testing.T) {
	got := requirement.ExtractImperative("Run `make a. b` now. Done.")

	assert.Equal(t, []string{"Run `make a. b` now."}, got)
}

func TestDeriveIsDeterministic(t *testing.T) {
	log := types.NormalizedLog{PlainText: "Ensure lint passes.\nVerify the build."}

	first := requirement.Derive(log, "")
	second := requirement.Derive(log, "")

	require.Len(t, first, 2)
	assert.Equal(t, first, second)
	assert.Equal(t, types.StatusUnknown, first[0].Status)
	assert.Regexp(t, `^REQ-[0-9a-f]{8}$`, first[0].ID)
	assert.Equal(t, requirement.ID("ensure  LINT passes"), first[0].ID)
}

func TestDerivePrefersExplicitPrompt(t *testing.T) {
	log := types.NormalizedLog{PlainText: "Ensure lint passes."}

	reqs := requirement.Derive(log, "Verify the build.")

	require.Len(t, reqs, 1)
	assert.Equal(t, "Verify the build.", reqs[0].Text)
}

func TestAttachEvidence(t *testing.T) {
	reqs := []types.Requirement{
		{ID: "r1", Text: "Run `pnpm test`.", Status: types.StatusUnknown},
		{ID: "r2", Text: "Ensure lint passes.", Status: types.StatusUnknown},
		{ID: "r3", Text: "Update config.yaml.", Status: types.StatusUnknown},
		{ID: "r4", Text: "Be nice.", Status: types.StatusUnknown},
	}
	events := []types.RunEvent{
		{ID: "e1", Kind: types.KindMessage, Payload: map[string]any{"role": "user", "content": "Run `pnpm test`."}},
		{ID: "e2", Kind: types.KindToolCall, Payload: map[string]any{"command": "pnpm test"}},
		{ID: "e3", Kind: types.KindToolResult, Payload: map[string]any{"exit_code": float64(0)}},
		{ID: "e4", Kind: types.KindToolCall, Payload: map[string]any{"command": "npm run lint", "id": "call-9"}},
		{ID: "e5", Kind: types.KindToolResult, Payload: map[string]any{"call_id": "other", "output": "ok"}},
		{ID: "e6", Kind: types.KindToolResult, Payload: map[string]any{"call_id": "call-9", "status": "failed"}},
		{ID: "e7", Kind: types.KindEdit, Payload: map[string]any{"path": "config.yaml"}},
		{ID: "e8", Kind: types.KindToolCall, Payload: map[string]any{"command": "pnpm test"}},
		{ID: "e9", Kind: types.KindToolResult, Payload: map[string]any{"output": "1 failed"}},
		{ID: "e10", Kind: types.EventKind("future-kind"), Payload: map[string]any{"content": "touch config.yaml"}},
	}

	got := requirement.AttachEvidence(reqs, events)

	assert.Equal(t, []string{"e2", "e3", "e8", "e9"}, got[0].Evidence)
	assert.Equal(t, types.StatusViolated, got[0].Status)

	assert.Equal(t, []string{"e4", "e6"}, got[1].Evidence)
	assert.Equal(t, types.StatusViolated, got[1].Status)

	assert.Equal(t, []string{"e7", "e10"}, got[2].Evidence)
	assert.Equal(t, types.StatusUnknown, got[2].Status)

	assert.Empty(t, got[3].Evidence)
	assert.Equal(t, types.StatusUnknown, got[3].Status)

	// Inputs are not mutated.
	assert.Empty(t, reqs[0].Evidence)
}

func TestAttachEvidenceSatisfied(t *testing.T) {
	reqs := []types.Requirement{{ID: "r", Text: "Run `go vet`.", Status: types.StatusUnknown}}
	events := []types.RunEvent{
		{ID: "a", Kind: types.KindToolCall, Payload: map[string]any{"command": "go vet ./..."}},
		{ID: "b", Kind: types.KindToolResult, Payload: map[string]any{"success": true}},
	}

	got := requirement.AttachEvidence(reqs, events)

	assert.Equal(t, types.StatusSatisfied, got[0].Status)
	assert.Equal(t, []string{"a", "b"}, got[0].Evidence)
}

func TestCombinePrecedence(t *testing.T) {
	first := []types.Requirement{
		{ID: "x", Text: "Ensure lint passes.", Status: types.StatusViolated, Evidence: []string{"e1"}},
		{ID: "y", Text: "Verify build.", Status: types.StatusUnknown},
	}
	second := []types.Requirement{
		{ID: "z", Text: "  ensure LINT passes ", Status: types.StatusSatisfied, Evidence: []string{"e2", "e1"}},
		{ID: "w", Text: "Verify build", Status: types.StatusSatisfied},
		{ID: "v", Text: "Write docs.", Status: types.StatusUnknown},
	}

	merged := requirement.Combine(first, second)

	require.Len(t, merged, 3)
	assert.Equal(t, "x", merged[0].ID)
	assert.Equal(t, types.StatusViolated, merged[0].Status)
	assert.Equal(t, []string{"e1", "e2"}, merged[0].Evidence)
	assert.Equal(t, types.StatusSatisfied, merged[1].Status)
	assert.Equal(t, "v", merged[2].ID)

	reversed := requirement.Combine(second, first)
	assert.Equal(t, types.StatusViolated, reversed[0].Status)

	assert.Empty(t, requirement.Combine())
}
