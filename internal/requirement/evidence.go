package requirement

import (
	"regexp"
	"strings"

	"github.com/airnub/speckit-internal-sub001/internal/types"
)

// matcher decides whether an event refers to a requirement.
type matcher struct {
	literals []string
	keyword  *regexp.Regexp
}

func newMatcher(text string, table CommandTable) matcher {
	match := matcher{literals: literalTokens(text)}
	if len(match.literals) > 0 {
		return match
	}

	if row, ok := table.Lookup(text); ok {
		match.literals = []string{strings.ToLower(row.Command)}
		match.keyword = keywordPattern(row.Keyword)
	}

	return match
}

func (m matcher) empty() bool {
	return len(m.literals) == 0 && m.keyword == nil
}

func (m matcher) matches(event types.RunEvent) bool {
	text := strings.ToLower(event.Text())

	for _, literal := range m.literals {
		if strings.Contains(text, literal) {
			return true
		}
	}

	// Keyword-only requirements match commands, not free text.
	if m.keyword != nil {
		return m.keyword.MatchString(event.Str("command", "cmd", "name", "tool", "input"))
	}

	return false
}

// AttachEvidence uses the default command table.
func AttachEvidence(reqs []types.Requirement, events []types.RunEvent) []types.Requirement {
	return AttachEvidenceWith(reqs, events, DefaultCommandTable())
}

// AttachEvidenceWith scans events for references to each requirement, records matching event ids
// and upgrades statuses: a successful tool result marks satisfied, a failed result or an error
// marks violated, and violated outranks satisfied outranks unknown. A matching tool call arms
// the result that answers it (same call id, or the next result when ids are absent).
func AttachEvidenceWith(reqs []types.Requirement, events []types.RunEvent, table CommandTable) []types.Requirement {
	out := make([]types.Requirement, len(reqs))

	for idx, req := range reqs {
		req.Evidence = append([]string{}, req.Evidence...)
		if req.Status == "" {
			req.Status = types.StatusUnknown
		}

		match := newMatcher(req.Text, table)
		if !match.empty() {
			scan(&req, match, events)
		}

		out[idx] = req
	}

	return out
}

func isInstruction(event types.RunEvent) bool {
	switch strings.ToLower(event.Str("role")) {
	case "user", "system", "human":
		return true
	}

	return false
}

func scan(req *types.Requirement, match matcher, events []types.RunEvent) {
	armed := map[string]bool{}
	lastCallMatched := false

	for _, event := range events {
		matched := match.matches(event)

		switch event.Kind {
		case types.KindToolCall:
			lastCallMatched = matched
			if matched {
				req.AddEvidence(event.ID)

				if ref := event.Str("call_id", "tool_use_id", "id"); ref != "" {
					armed[ref] = true
				}
			}
		case types.KindToolResult:
			paired := lastCallMatched
			if ref := event.Str("call_id", "tool_use_id"); ref != "" {
				paired = armed[ref]
				delete(armed, ref)
			}

			lastCallMatched = false

			if !matched && !paired {
				continue
			}

			req.AddEvidence(event.ID)

			switch event.Outcome() {
			case types.OutcomeSuccess:
				req.Status = types.Worse(req.Status, types.StatusSatisfied)
			case types.OutcomeFailure:
				req.Status = types.Worse(req.Status, types.StatusViolated)
			case types.OutcomeUnknown:
			}
		case types.KindError:
			if matched {
				req.AddEvidence(event.ID)
				req.Status = types.Worse(req.Status, types.StatusViolated)
			}
		case types.KindMessage:
			// The prompt states the requirement; it is not evidence for it.
			if matched && !isInstruction(event) {
				req.AddEvidence(event.ID)
			}
		case types.KindEdit, types.KindReflection, types.KindRetry:
			if matched {
				req.AddEvidence(event.ID)
			}
		case types.KindUnknown:
			if matched {
				req.AddEvidence(event.ID)
			}
		default:
			if matched {
				req.AddEvidence(event.ID)
			}
		}
	}
}
