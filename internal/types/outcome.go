package types

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Outcome is the success signal carried by a result event.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnknown:
		return "unknown"
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	}

	return "unknown"
}

//nolint:gochecknoglobals // compiled once
var (
	zeroFailures = regexp.MustCompile(`(?i)\b0 (?:failed|failures|failing|errors?)\b`)
	failureText  = regexp.MustCompile(`(?i)\b(?:fail(?:ed|ure|ures|ing)?|errors?|exception|not ok|panic)\b`)
	successText  = regexp.MustCompile(`(?i)\b(?:pass(?:ed|es)?|ok|success(?:ful)?|succeeded)\b`)
)

// Outcome inspects explicit payload fields first (booleans, exit codes, status strings) and
// falls back to scanning the text.
func (e RunEvent) Outcome() Outcome {
	for _, key := range []string{"is_error", "isError", "failed"} {
		if flag, ok := e.Payload[key].(bool); ok {
			if flag {
				return OutcomeFailure
			}

			return OutcomeSuccess
		}
	}

	for _, key := range []string{"success", "ok", "passed"} {
		if flag, ok := e.Payload[key].(bool); ok {
			if flag {
				return OutcomeSuccess
			}

			return OutcomeFailure
		}
	}

	for _, key := range []string{"exit_code", "exitCode", "code", "returncode"} {
		if code, ok := exitCode(e.Payload[key]); ok {
			if code == 0 {
				return OutcomeSuccess
			}

			return OutcomeFailure
		}
	}

	for _, key := range []string{"status", "outcome", "conclusion"} {
		if status, ok := e.Payload[key].(string); ok {
			switch strings.ToLower(status) {
			case "success", "succeeded", "ok", "pass", "passed", "completed", "done":
				return OutcomeSuccess
			case "error", "errored", "fail", "failed", "failure", "timeout", "cancelled":
				return OutcomeFailure
			}
		}
	}

	text := zeroFailures.ReplaceAllString(e.Text(), "")

	switch {
	case failureText.MatchString(text):
		return OutcomeFailure
	case successText.MatchString(text):
		return OutcomeSuccess
	default:
		return OutcomeUnknown
	}
}

// exitCode accepts the numeric forms a payload can carry: float64 from encoding/json, json.Number
// from a decoder using UseNumber, and Go integers from events built in code.
func exitCode(value any) (float64, bool) {
	switch code := value.(type) {
	case float64:
		return code, true
	case float32:
		return float64(code), true
	case int:
		return float64(code), true
	case int32:
		return float64(code), true
	case int64:
		return float64(code), true
	case uint:
		return float64(code), true
	case uint32:
		return float64(code), true
	case uint64:
		return float64(code), true
	case json.Number:
		parsed, err := code.Float64()

		return parsed, err == nil
	default:
		return 0, false
	}
}
