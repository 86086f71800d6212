// Package metrics computes the fixed quality metrics of a run and renders them as display rows.
package metrics

import (
	"math"
	"path"
	"regexp"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/airnub/speckit-internal-sub001/internal/types"
)

//nolint:gochecknoglobals // compiled once
var verificationRe = regexp.MustCompile(
	`(?i)\b(?:test|tests|vitest|jest|pytest|lint|eslint|check|typecheck|tsc|verify|build|vet)\b`,
)

// Compute derives metrics from the timeline and the requirement set. Ratios are 0 when their
// denominator is 0.
func Compute(log types.NormalizedLog, reqs []types.Requirement) types.Metrics {
	return types.Metrics{
		ReqCoverage:       coverage(reqs),
		BacktrackRatio:    backtrackRatio(log.Events),
		ToolPrecisionAt1:  toolPrecision(log.Events),
		EditLocality:      editLocality(log.Events),
		ReflectionDensity: reflectionDensity(log.Events),
		TTFPSeconds:       timeToFirstPass(log.Events),
	}
}

func ratio(numerator, denominator int) float64 {
	if denominator <= 0 {
		return 0
	}

	value := float64(numerator) / float64(denominator)
	if math.IsNaN(value) {
		return 0
	}

	return math.Max(0, math.Min(1, value))
}

func coverage(reqs []types.Requirement) float64 {
	satisfied := 0

	for _, req := range reqs {
		if req.Status == types.StatusSatisfied {
			satisfied++
		}
	}

	return ratio(satisfied, len(reqs))
}

func countKind(events []types.RunEvent, kind types.EventKind) int {
	count := 0

	for _, event := range events {
		if event.Kind == kind {
			count++
		}
	}

	return count
}

func backtrackRatio(events []types.RunEvent) float64 {
	return ratio(countKind(events, types.KindRetry), countKind(events, types.KindToolCall))
}

// toolPrecision counts tool calls answered by a successful result as the very next event, with no
// retry since the previous call.
func toolPrecision(events []types.RunEvent) float64 {
	calls, precise := 0, 0
	retried := false

	for idx, event := range events {
		switch event.Kind {
		case types.KindRetry:
			retried = true
		case types.KindToolCall:
			calls++

			if !retried && idx+1 < len(events) {
				next := events[idx+1]
				if next.Kind == types.KindToolResult && next.Outcome() == types.OutcomeSuccess {
					precise++
				}
			}

			retried = false
		case types.KindToolResult, types.KindEdit, types.KindReflection, types.KindMessage, types.KindError,
			types.KindUnknown:
		default:
		}
	}

	return ratio(precise, calls)
}

// editLocality averages 1/(1+d) over consecutive edits, d being the directory distance between
// their targets. Repeated edits to one file score 1.
func editLocality(events []types.RunEvent) float64 {
	var targets []string

	for _, event := range events {
		if event.Kind != types.KindEdit {
			continue
		}

		if target := event.Str("path", "file", "file_path", "target", "filename"); target != "" {
			targets = append(targets, target)
		}
	}

	if len(targets) < 2 {
		return 0
	}

	scores := make([]float64, 0, len(targets)-1)
	for idx := 1; idx < len(targets); idx++ {
		scores = append(scores, 1/(1+float64(distance(targets[idx-1], targets[idx]))))
	}

	return math.Max(0, math.Min(1, stat.Mean(scores, nil)))
}

// distance is the number of tree edges between two files: 0 for the same file, 1 for siblings.
func distance(a, b string) int {
	a, b = path.Clean(strings.ReplaceAll(a, "\\", "/")), path.Clean(strings.ReplaceAll(b, "\\", "/"))
	if a == b {
		return 0
	}

	dirA := splitDir(path.Dir(a))
	dirB := splitDir(path.Dir(b))

	common := 0
	for common < len(dirA) && common < len(dirB) && dirA[common] == dirB[common] {
		common++
	}

	return len(dirA) + len(dirB) - 2*common + 1
}

func splitDir(dir string) []string {
	if dir == "." || dir == "/" || dir == "" {
		return nil
	}

	return strings.Split(strings.Trim(dir, "/"), "/")
}

func reflectionDensity(events []types.RunEvent) float64 {
	return ratio(countKind(events, types.KindReflection), len(events))
}

// timeToFirstPass measures from the first timestamped event to the first successful verification
// result. A result is a verification when it, or the call it answers, mentions a test, lint, check
// or build command.
func timeToFirstPass(events []types.RunEvent) *float64 {
	var (
		start   *time.Time
		command string
	)

	for _, event := range events {
		if start == nil && event.Timestamp != nil {
			start = event.Timestamp
		}

		switch event.Kind {
		case types.KindToolCall:
			command = event.Text()
		case types.KindToolResult:
			verifies := verificationRe.MatchString(command) || verificationRe.MatchString(event.Str("command", "cmd"))
			command = ""

			if !verifies || event.Outcome() != types.OutcomeSuccess || event.Timestamp == nil || start == nil {
				continue
			}

			elapsed := math.Max(0, event.Timestamp.Sub(*start).Seconds())

			return &elapsed
		case types.KindEdit, types.KindReflection, types.KindMessage, types.KindRetry, types.KindError,
			types.KindUnknown:
		default:
		}
	}

	return nil
}
