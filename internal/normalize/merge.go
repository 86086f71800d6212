package normalize

import (
	"slices"
	"strconv"
	"strings"

	"github.com/airnub/speckit-internal-sub001/internal/types"
)

// Merge combines normalized logs. Events are concatenated in argument order and then stably sorted
// by timestamp; events without a timestamp follow the timestamped ones in their original relative
// order. Prompt candidates are unioned in first-seen order and plain texts are newline-joined.
// Event ids are unique in the result: a repeated id gets a numeric suffix.
func Merge(logs ...types.NormalizedLog) types.NormalizedLog {
	var (
		events []types.RunEvent
		texts  []string
	)

	candidates := newOrderedSet()

	for _, log := range logs {
		events = append(events, log.Events...)
		candidates.add(log.PromptCandidates...)

		if log.PlainText != "" {
			texts = append(texts, log.PlainText)
		}
	}

	uniqueIDs(events)
	slices.SortStableFunc(events, compareEvents)

	if events == nil {
		events = []types.RunEvent{}
	}

	return types.NormalizedLog{
		Events:           events,
		PromptCandidates: candidates.items(),
		PlainText:        strings.Join(texts, "\n"),
	}
}

// uniqueIDs renames later occurrences of an id in place, keeping the first one.
func uniqueIDs(events []types.RunEvent) {
	seen := make(map[string]bool, len(events))

	for idx := range events {
		id := events[idx].ID
		if !seen[id] {
			seen[id] = true

			continue
		}

		for n := 2; ; n++ {
			candidate := id + "~" + strconv.Itoa(n)
			if !seen[candidate] {
				events[idx].ID = candidate
				seen[candidate] = true

				break
			}
		}
	}
}

func compareEvents(a, b types.RunEvent) int {
	switch {
	case a.Timestamp == nil && b.Timestamp == nil:
		return 0
	case a.Timestamp == nil:
		return 1
	case b.Timestamp == nil:
		return -1
	default:
		return a.Timestamp.Compare(*b.Timestamp)
	}
}
