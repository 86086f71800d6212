package rules_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airnub/speckit-internal-sub001/internal/rules"
	"github.com/airnub/speckit-internal-sub001/internal/types"
)

const ruleYAML = `
rules:
  - pattern: "ERR_PNPM_\\w+"
    label: pnpm-failure
    hint: Reinstall dependencies with pnpm install.
  - pattern: "timed out"
    flags: gi
    label: timeout
    hint: Raise the step timeout.
  - pattern: "(?<=lookbehind)x"
    label: unsupported
    hint: never compiled
  - label: no-pattern
    hint: dropped
  - pattern: "orphan"
  - pattern: "segfault"
    flags: z
    label: bad-flag
  - pattern: "Traceback"
    label: python-crash
    hint: Reinstall dependencies with pnpm install.
    scope: events
`

func TestParseDropsInvalidRules(t *testing.T) {
	parsed, err := rules.Parse([]byte(ruleYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"pnpm-failure", "timeout", "python-crash"}, rules.Labels(parsed))
	assert.Equal(t, rules.ScopeText, parsed[0].Scope)
	assert.Equal(t, rules.ScopeEvents, parsed[2].Scope)
}

func TestParseJSONList(t *testing.T) {
	parsed, err := rules.Parse([]byte(`[
  {"pattern": "EADDRINUSE", "flags": "", "label": "port-in-use", "hint": "Free the port."},
  "not a rule",
  {"pattern": "[", "label": "broken", "hint": "x"}
]`))
	require.NoError(t, err)

	require.Len(t, parsed, 1)
	assert.Equal(t, "port-in-use", parsed[0].Label)
	assert.True(t, parsed[0].MatchString("listen EADDRINUSE :3000"))
}

func TestParseDocumentErrors(t *testing.T) {
	_, err := rules.Parse([]byte("rules: [unterminated"))
	require.Error(t, err)

	_, err = rules.Parse([]byte("just a scalar"))
	require.Error(t, err)

	empty, err := rules.Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLoadUnreadableFileYieldsEmptySet(t *testing.T) {
	assert.Empty(t, rules.Load(filepath.Join(t.TempDir(), "missing.yaml")))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules: [unterminated"), 0o600))
	assert.Empty(t, rules.Load(path))

	path = filepath.Join(t.TempDir(), "good.yaml")
	require.NoError(t, os.WriteFile(path, []byte(ruleYAML), 0o600))
	assert.Len(t, rules.Load(path), 3)
}

func TestApplyAndHints(t *testing.T) {
	parsed, err := rules.Parse([]byte(ruleYAML))
	require.NoError(t, err)

	log := types.NormalizedLog{
		PlainText: "step TIMED OUT after 30s\nERR_PNPM_FETCH_404 something",
		Events: []types.RunEvent{
			{ID: "e1", Kind: types.KindToolResult, Payload: map[string]any{"output": "Traceback (most recent call last)"}},
		},
	}

	labels := rules.Apply(log, parsed)
	assert.Equal(t, []string{"pnpm-failure", "timeout", "python-crash"}, labels)

	assert.Equal(t, []string{
		"Reinstall dependencies with pnpm install.",
		"Raise the step timeout.",
	}, rules.Hints(labels, parsed))

	assert.Equal(t, []string{"Raise the step timeout."}, rules.Hints([]string{"timeout"}, parsed))
	assert.Empty(t, rules.Hints(nil, parsed))
}

func TestEventScopeIgnoresPlainText(t *testing.T) {
	rule, err := rules.New("Traceback", "", "python-crash", "", rules.ScopeEvents)
	require.NoError(t, err)

	log := types.NormalizedLog{PlainText: "Traceback in text only"}
	assert.Empty(t, rules.Apply(log, []rules.Rule{rule}))

	both, err := rules.New("Traceback", "", "python-crash", "", rules.ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"python-crash"}, rules.Apply(log, []rules.Rule{both}))
}

func TestLabelsAreSubsetOfConfigured(t *testing.T) {
	first, err := rules.New("a", "", "dup", "h1", "")
	require.NoError(t, err)

	second, err := rules.New("b", "", "dup", "h2", "")
	require.NoError(t, err)

	configured := []rules.Rule{first, second}
	labels := rules.Apply(types.NormalizedLog{PlainText: "a b"}, configured)

	assert.Equal(t, []string{"dup"}, labels)
	assert.Subset(t, rules.Labels(configured), labels)
	assert.Equal(t, []string{"h1", "h2"}, rules.Hints(labels, configured))
}

func TestNewRejectsInvalidRules(t *testing.T) {
	_, err := rules.New("", "", "label", "", "")
	require.Error(t, err)

	_, err = rules.New("x", "", "", "", "")
	require.Error(t, err)

	_, err = rules.New("x", "q", "l", "", "")
	require.Error(t, err)

	_, err = rules.New("x", "", "l", "", "nowhere")
	require.Error(t, err)
}

func TestApplyCompilesLiteralRules(t *testing.T) {
	log := types.NormalizedLog{PlainText: "BOOM at startup"}

	set := []rules.Rule{
		{Pattern: "boom", Flags: "i", Label: "crash", Hint: "Check the startup logs."},
		{Pattern: "(", Label: "broken"},
		{Pattern: "startup", Label: ""},
	}

	labels := rules.Apply(log, set)
	assert.Equal(t, []string{"crash"}, labels)
	assert.Equal(t, []string{"Check the startup logs."}, rules.Hints(labels, set))
	assert.True(t, set[0].MatchString("boom"))
	assert.False(t, set[1].MatchString("("))
}
