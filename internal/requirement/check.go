package requirement

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/airnub/speckit-internal-sub001/internal/types"
)

// KeywordCommand maps a keyword found in requirement text to the command that verifies it.
type KeywordCommand struct {
	Keyword string
	Command string
}

// CommandTable is checked in order; the first keyword found wins.
type CommandTable []KeywordCommand

// DefaultCommandTable returns the built-in keyword table.
func DefaultCommandTable() CommandTable {
	return CommandTable{
		{Keyword: "lint", Command: "pnpm lint"},
		{Keyword: "typecheck", Command: "pnpm typecheck"},
		{Keyword: "type check", Command: "pnpm typecheck"},
		{Keyword: "test", Command: "pnpm test"},
		{Keyword: "build", Command: "pnpm build"},
		{Keyword: "format", Command: "pnpm format"},
	}
}

// Lookup returns the first row whose keyword starts a word of text.
func (t CommandTable) Lookup(text string) (KeywordCommand, bool) {
	for _, row := range t {
		if row.Keyword == "" {
			continue
		}

		if keywordPattern(row.Keyword).MatchString(text) {
			return row, true
		}
	}

	return KeywordCommand{}, false
}

func keywordPattern(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(keyword))
}

const fallbackCommand = "git diff --stat"

// Command resolves the verification command for a requirement: a backtick literal, then the
// keyword table, then a diff of the first file mentioned.
func Command(text string, table CommandTable) string {
	if literal := firstBacktick(text); literal != "" {
		return literal
	}

	if row, ok := table.Lookup(text); ok {
		return row.Command
	}

	if files := fileTokens(text); len(files) > 0 {
		return fallbackCommand + " " + files[0]
	}

	return fallbackCommand
}

// Check renders a one-line remediation message for a requirement.
func Check(req types.Requirement, table CommandTable) string {
	cmd := Command(req.Text, table)

	evidence := "No run evidence captured yet."
	if len(req.Evidence) > 0 {
		evidence = "Evidence: " + strings.Join(req.Evidence, ", ") + "."
	}

	switch req.Status {
	case types.StatusSatisfied:
		return fmt.Sprintf("Regression guard: run `%s` to reconfirm. %s", cmd, evidence)
	case types.StatusViolated:
		return fmt.Sprintf("Remediate failure and re-run `%s`. %s", cmd, evidence)
	case types.StatusUnknown:
		return fmt.Sprintf("Plan check: run `%s` to establish coverage. %s", cmd, evidence)
	default:
		return fmt.Sprintf("Plan check: run `%s` to establish coverage. %s", cmd, evidence)
	}
}

// Checks renders one message per requirement, in order.
func Checks(reqs []types.Requirement, table CommandTable) []string {
	checks := make([]string, 0, len(reqs))
	for _, req := range reqs {
		checks = append(checks, Check(req, table))
	}

	return checks
}
