package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/airnub/speckit-internal-sub001/internal/types"
)

//nolint:gochecknoglobals // compiled once
var (
	lineStamp    = regexp.MustCompile(`^\[?(\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?)\]?\s+`)
	commandLine  = regexp.MustCompile(`^(?:\$|>|❯)\s+(.+)$`)
	exitCodeLine = regexp.MustCompile(`(?i)\bexit(?:ed with)?(?: code| status)?[:\s]+(-?\d+)\b`)
	passLine     = regexp.MustCompile(`(?i)^(?:pass(?:ed)?\b|ok\b|✓|✔|success\b|all tests passed)`)
	failLine     = regexp.MustCompile(`(?i)^(?:fail(?:ed|ure)?\b|✗|✘|not ok\b)`)
	errorLine    = regexp.MustCompile(`(?i)^(?:error|fatal|panic|exception|traceback)\b`)
	retryLine    = regexp.MustCompile(`(?i)^(?:retry(?:ing)?|backtrack(?:ing)?|reverting|undo(?:ing)?)\b`)
	editLine     = regexp.MustCompile(`(?i)^(?:edit(?:ed|ing)?|modified|wrote|write|patch(?:ed)?|created|updated)[:\s]+(\S+)`)
	reflectLine  = regexp.MustCompile(`(?i)^(?:thinking|thought|reflection|reflect(?:ing)?|self-correction|wait,|hmm\b|actually,)`)
	markerLine   = regexp.MustCompile(`(?i)^(?:#+\s*)?(?:task|prompt|goal|objective|instructions?)\s*:\s*(.+)$`)
)

func fromText(content, sourceID string) types.NormalizedLog {
	var events []types.RunEvent

	candidates := newOrderedSet()

	// A marker line opens a prompt block that runs to the next blank line.
	var block []string

	flush := func() {
		if len(block) > 0 {
			candidates.add(strings.Join(block, "\n"))
			block = nil
		}
	}

	idx := 0

	for line := range strings.Lines(content) {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()

			continue
		}

		event := classifyLine(line)
		event.ID = eventID(sourceID, idx)
		event.SourceID = sourceID
		idx++

		switch match := markerLine.FindStringSubmatch(event.Str("content")); {
		case match != nil:
			flush()

			block = []string{match[1]}
		case block != nil && event.Kind == types.KindMessage:
			event.Payload["role"] = "user"
			block = append(block, line)
		default:
			flush()
		}

		events = append(events, event)
	}

	flush()

	candidates.add(firstParagraph(content))

	if events == nil {
		events = []types.RunEvent{}
	}

	return types.NormalizedLog{
		Events:           events,
		PromptCandidates: candidates.items(),
		PlainText:        strings.TrimSpace(content),
	}
}

// classifyLine turns one line of a plain-text log into an event using line markers.
func classifyLine(line string) types.RunEvent {
	event := types.RunEvent{Kind: types.KindMessage}

	if match := lineStamp.FindStringSubmatch(line); match != nil {
		event.Timestamp = parseTimestamp(match[1])
		line = line[len(match[0]):]
	}

	switch {
	case commandLine.MatchString(line):
		event.Kind = types.KindToolCall
		event.Payload = map[string]any{"command": commandLine.FindStringSubmatch(line)[1]}
	case exitCodeLine.MatchString(line):
		code, _ := strconv.Atoi(exitCodeLine.FindStringSubmatch(line)[1])
		event.Kind = types.KindToolResult
		event.Payload = map[string]any{"output": line, "exit_code": float64(code)}
	case failLine.MatchString(line):
		event.Kind = types.KindToolResult
		event.Payload = map[string]any{"output": line, "status": "failure"}
	case passLine.MatchString(line):
		event.Kind = types.KindToolResult
		event.Payload = map[string]any{"output": line, "status": "success"}
	case errorLine.MatchString(line):
		event.Kind = types.KindError
		event.Payload = map[string]any{"error": line}
	case retryLine.MatchString(line):
		event.Kind = types.KindRetry
		event.Payload = map[string]any{"content": line}
	case editLine.MatchString(line):
		event.Kind = types.KindEdit
		event.Payload = map[string]any{"content": line, "path": editLine.FindStringSubmatch(line)[1]}
	case reflectLine.MatchString(line):
		event.Kind = types.KindReflection
		event.Payload = map[string]any{"content": line}
	case markerLine.MatchString(line):
		event.Payload = map[string]any{"content": line, "role": "user"}
	default:
		event.Payload = map[string]any{"content": line}
	}

	return event
}

// firstParagraph returns the text before the first blank line.
func firstParagraph(content string) string {
	var lines []string

	for line := range strings.Lines(strings.TrimSpace(content)) {
		if strings.TrimSpace(line) == "" {
			break
		}

		lines = append(lines, strings.TrimRight(line, "\r\n"))
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
