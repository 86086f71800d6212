// Package normalize reduces heterogeneous log sources to one canonical event timeline.
package normalize

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/airnub/speckit-internal-sub001/internal/types"
)

const defaultSourceID = "log"

// Source normalizes any of the supported source variants.
func Source(src types.LogSource) types.NormalizedLog {
	switch val := src.(type) {
	case types.RawLogSource:
		return Content(val)
	case *types.RawLogSource:
		return Content(*val)
	case types.EventsLogSource:
		return FromEvents(val)
	case *types.EventsLogSource:
		return FromEvents(*val)
	case types.NormalizedLogSource:
		return val.Log
	case *types.NormalizedLogSource:
		return val.Log
	default:
		slog.Warn("ignoring unsupported log source", "type", fmt.Sprintf("%T", src))

		return types.NormalizedLog{}
	}
}

// Content parses a raw source. An explicit format hint wins; otherwise JSON, then NDJSON, then
// plain text are attempted. Parse failures always degrade to plain text.
func Content(src types.RawLogSource) types.NormalizedLog {
	sourceID := src.ID
	if sourceID == "" {
		sourceID = defaultSourceID
	}

	switch src.Format {
	case types.FormatJSON:
		if doc, ok := parseJSON(src.Content); ok {
			return fromDocument(doc, sourceID)
		}
	case types.FormatNDJSON:
		if objs, ok := parseNDJSON(src.Content); ok {
			return fromObjects(objs, sourceID, nil)
		}
	case types.FormatText:
		return fromText(src.Content, sourceID)
	case types.FormatAuto, "":
		if doc, ok := parseJSON(src.Content); ok {
			return fromDocument(doc, sourceID)
		}

		if objs, ok := parseNDJSON(src.Content); ok {
			return fromObjects(objs, sourceID, nil)
		}
	default:
	}

	if src.Format != types.FormatAuto && src.Format != "" {
		slog.Debug("log content did not match declared format, treating as text",
			"source", sourceID, "format", src.Format)
	}

	return fromText(src.Content, sourceID)
}

// FromEvents wraps pre-parsed events without touching their text. Missing ids and source ids
// are filled in; order is preserved.
func FromEvents(src types.EventsLogSource) types.NormalizedLog {
	sourceID := src.ID
	if sourceID == "" {
		sourceID = defaultSourceID
	}

	events := make([]types.RunEvent, 0, len(src.Events))

	for idx, event := range src.Events {
		if event.SourceID == "" {
			event.SourceID = sourceID
		}

		if event.ID == "" {
			event.ID = eventID(event.SourceID, idx)
		}

		if event.Kind == "" {
			event.Kind = types.KindUnknown
		}

		events = append(events, event)
	}

	return assemble(events, nil)
}

// assemble derives plain text and prompt candidates from a finished event list.
func assemble(events []types.RunEvent, extraCandidates []string) types.NormalizedLog {
	texts := make([]string, 0, len(events))
	candidates := newOrderedSet()
	candidates.add(extraCandidates...)

	for _, event := range events {
		if text := event.Text(); text != "" {
			texts = append(texts, text)
		}

		if isPromptEvent(event) {
			candidates.add(event.Text())
		}
	}

	return types.NormalizedLog{
		Events:           events,
		PromptCandidates: candidates.items(),
		PlainText:        strings.Join(texts, "\n"),
	}
}

func eventID(sourceID string, idx int) string {
	return fmt.Sprintf("%s#%d", sourceID, idx+1)
}

// orderedSet keeps first-seen order and drops blanks and duplicates.
type orderedSet struct {
	seen  map[string]bool
	order []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: map[string]bool{}}
}

func (s *orderedSet) add(values ...string) {
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" || s.seen[value] {
			continue
		}

		s.seen[value] = true
		s.order = append(s.order, value)
	}
}

func (s *orderedSet) items() []string {
	if len(s.order) == 0 {
		return []string{}
	}

	return s.order
}
