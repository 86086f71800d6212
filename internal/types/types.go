// Package types holds the data model shared by the analysis stages.
package types

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Format is the declared encoding of a raw log source.
type Format string

const (
	FormatAuto   Format = "auto"
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
	FormatText   Format = "text"
)

// ParseFormat converts a format hint to a Format. The empty string means auto.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "json":
		return FormatJSON, nil
	case "ndjson", "jsonl":
		return FormatNDJSON, nil
	case "text", "txt", "log":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown format %q (valid: auto, json, ndjson, text)", s)
	}
}

// EventKind discriminates run events.
type EventKind string

const (
	KindToolCall   EventKind = "tool-call"
	KindToolResult EventKind = "tool-result"
	KindEdit       EventKind = "edit"
	KindReflection EventKind = "reflection"
	KindMessage    EventKind = "message"
	KindRetry      EventKind = "retry"
	KindError      EventKind = "error"
	KindUnknown    EventKind = "unknown"
)

//nolint:gochecknoglobals // alias table, effectively const
var kindAliases = map[string]EventKind{
	"tool-call":       KindToolCall,
	"tool_call":       KindToolCall,
	"toolcall":        KindToolCall,
	"tool_use":        KindToolCall,
	"function_call":   KindToolCall,
	"command":         KindToolCall,
	"tool-result":     KindToolResult,
	"tool_result":     KindToolResult,
	"toolresult":      KindToolResult,
	"function_result": KindToolResult,
	"command_result":  KindToolResult,
	"observation":     KindToolResult,
	"edit":            KindEdit,
	"file_edit":       KindEdit,
	"file-edit":       KindEdit,
	"patch":           KindEdit,
	"write":           KindEdit,
	"reflection":      KindReflection,
	"self-correction": KindReflection,
	"self_correction": KindReflection,
	"thinking":        KindReflection,
	"thought":         KindReflection,
	"message":         KindMessage,
	"user":            KindMessage,
	"assistant":       KindMessage,
	"system":          KindMessage,
	"prompt":          KindMessage,
	"retry":           KindRetry,
	"backtrack":       KindRetry,
	"revert":          KindRetry,
	"error":           KindError,
	"failure":         KindError,
	"exception":       KindError,
}

// ParseEventKind maps a raw tag to a known kind. Unrecognized tags become KindUnknown.
func ParseEventKind(s string) EventKind {
	if kind, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return kind
	}

	return KindUnknown
}

// RunEvent is one entry of the canonical timeline.
type RunEvent struct {
	ID        string         `json:"id"`
	Kind      EventKind      `json:"kind"`
	Timestamp *time.Time     `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
	SourceID  string         `json:"sourceId"`
}

// textFields are the payload keys rendered first, in this order, by Text.
//
//nolint:gochecknoglobals // lookup table, effectively const
var textFields = []string{
	"content", "text", "message", "prompt", "command", "cmd", "input",
	"output", "stdout", "stderr", "result", "error", "path", "file", "target",
}

// Text renders the textual content of the payload. Well-known fields come first, remaining
// string fields follow in key order, so the result is stable across runs.
func (e RunEvent) Text() string {
	if len(e.Payload) == 0 {
		return ""
	}

	var parts []string

	seen := make(map[string]bool, len(textFields))

	for _, key := range textFields {
		seen[key] = true

		if s := stringify(e.Payload[key]); s != "" {
			parts = append(parts, s)
		}
	}

	keys := make([]string, 0, len(e.Payload))
	for key := range e.Payload {
		if !seen[key] {
			keys = append(keys, key)
		}
	}

	slices.Sort(keys)

	for _, key := range keys {
		if s, ok := e.Payload[key].(string); ok && s != "" && !isMetaKey(key) {
			parts = append(parts, s)
		}
	}

	return strings.Join(parts, "\n")
}

// Str returns the first non-empty string payload value among keys.
func (e RunEvent) Str(keys ...string) string {
	for _, key := range keys {
		if s, ok := e.Payload[key].(string); ok && s != "" {
			return s
		}
	}

	return ""
}

func isMetaKey(key string) bool {
	switch key {
	case "id", "event_id", "kind", "type", "event", "role", "timestamp", "ts", "time", "created_at",
		"call_id", "tool_use_id", "status":
		return true
	}

	return false
}

func stringify(value any) string {
	switch val := value.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := stringify(item); s != "" {
				parts = append(parts, s)
			}
		}

		return strings.Join(parts, " ")
	case map[string]any:
		if s := stringify(val["text"]); s != "" {
			return s
		}

		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}

		return string(data)
	case bool:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

// NormalizedLog is the format-independent representation of a run.
type NormalizedLog struct {
	Events           []RunEvent `json:"events"`
	PromptCandidates []string   `json:"promptCandidates"`
	PlainText        string     `json:"plainText"`
}

// EventIDs returns the set of event identifiers present in the log.
func (n NormalizedLog) EventIDs() map[string]bool {
	ids := make(map[string]bool, len(n.Events))
	for _, event := range n.Events {
		ids[event.ID] = true
	}

	return ids
}
