package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/airnub/speckit-internal-sub001/internal/types"
)

// parseJSON accepts a strict JSON document whose top level is an object or an array.
func parseJSON(content string) (any, bool) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return nil, false
	}

	var doc any
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return nil, false
	}

	return doc, true
}

// parseNDJSON requires every non-blank line to be a JSON object.
func parseNDJSON(content string) ([]map[string]any, bool) {
	var objs []map[string]any

	for line := range strings.Lines(content) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil || obj == nil {
			return nil, false
		}

		objs = append(objs, obj)
	}

	return objs, len(objs) > 0
}

func fromDocument(doc any, sourceID string) types.NormalizedLog {
	switch val := doc.(type) {
	case []any:
		return fromObjects(objectsOf(val), sourceID, nil)
	case map[string]any:
		var extra []string

		for _, key := range []string{"prompt", "task", "goal"} {
			if s, ok := val[key].(string); ok {
				extra = append(extra, s)
			}
		}

		for _, key := range []string{"events", "messages", "entries", "log"} {
			if items, ok := val[key].([]any); ok {
				return fromObjects(objectsOf(items), sourceID, extra)
			}
		}

		return fromObjects([]map[string]any{val}, sourceID, extra)
	default:
		return types.NormalizedLog{}
	}
}

func objectsOf(items []any) []map[string]any {
	objs := make([]map[string]any, 0, len(items))

	for _, item := range items {
		switch val := item.(type) {
		case map[string]any:
			objs = append(objs, val)
		case string:
			objs = append(objs, map[string]any{"kind": string(types.KindMessage), "content": val})
		default:
		}
	}

	return objs
}

func fromObjects(objs []map[string]any, sourceID string, extraCandidates []string) types.NormalizedLog {
	events := make([]types.RunEvent, 0, len(objs))
	for idx, obj := range objs {
		events = append(events, eventFromObject(obj, sourceID, idx))
	}

	return assemble(events, extraCandidates)
}

func eventFromObject(obj map[string]any, sourceID string, idx int) types.RunEvent {
	event := types.RunEvent{
		ID:        eventID(sourceID, idx),
		Kind:      types.KindUnknown,
		Timestamp: parseTimestamp(firstOf(obj, "timestamp", "ts", "time", "created_at")),
		Payload:   obj,
		SourceID:  sourceID,
	}

	// Payload ids are only unique within their source.
	switch id := firstOf(obj, "id", "event_id").(type) {
	case string:
		if id != "" {
			event.ID = sourceID + ":" + id
		}
	case float64:
		event.ID = sourceID + ":" + strconv.FormatFloat(id, 'f', -1, 64)
	default:
	}

	for _, key := range []string{"kind", "type", "event"} {
		if tag, ok := obj[key].(string); ok {
			if kind := types.ParseEventKind(tag); kind != types.KindUnknown {
				event.Kind = kind

				break
			}
		}
	}

	if event.Kind == types.KindUnknown {
		if role, ok := obj["role"].(string); ok {
			event.Kind = types.ParseEventKind(role)
			if role == "tool" {
				event.Kind = types.KindToolResult
			}
		}
	}

	return event
}

func firstOf(obj map[string]any, keys ...string) any {
	for _, key := range keys {
		if val, ok := obj[key]; ok && val != nil {
			return val
		}
	}

	return nil
}

//nolint:gochecknoglobals // layout table, effectively const
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts RFC 3339 strings and unix seconds or milliseconds.
func parseTimestamp(value any) *time.Time {
	var parsed time.Time

	switch val := value.(type) {
	case string:
		val = strings.TrimSpace(val)

		found := false

		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, val); err == nil {
				parsed = ts
				found = true

				break
			}
		}

		if !found {
			return nil
		}
	case float64:
		if val <= 0 || math.IsInf(val, 0) || math.IsNaN(val) {
			return nil
		}

		if val > 1e12 {
			parsed = time.UnixMilli(int64(val))
		} else {
			sec, frac := math.Modf(val)
			parsed = time.Unix(int64(sec), int64(frac*1e9))
		}
	default:
		return nil
	}

	parsed = parsed.UTC()

	return &parsed
}
