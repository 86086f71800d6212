package normalize

import (
	"strings"

	"github.com/airnub/speckit-internal-sub001/internal/types"
)

// DetectPrompt makes a best-effort guess at the task prompt of a run. It returns the first prompt
// candidate, else the first user or system message, else the first paragraph of the plain text.
func DetectPrompt(log types.NormalizedLog) string {
	for _, candidate := range log.PromptCandidates {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			return candidate
		}
	}

	for _, event := range log.Events {
		if isPromptEvent(event) {
			if text := strings.TrimSpace(event.Text()); text != "" {
				return text
			}
		}
	}

	return firstParagraph(log.PlainText)
}

func isPromptEvent(event types.RunEvent) bool {
	if event.Kind != types.KindMessage && event.Kind != types.KindUnknown {
		return false
	}

	switch strings.ToLower(event.Str("role", "type", "kind")) {
	case "user", "system", "prompt", "human", "task":
		return true
	}

	return event.Str("prompt", "task") != ""
}
