//nolint:wrapcheck
package main

import (
	"fmt"
	"os"

	"github.com/farcloser/primordium/format"

	speckit "github.com/airnub/speckit-internal-sub001"
	"github.com/airnub/speckit-internal-sub001/internal/output"
	"github.com/airnub/speckit-internal-sub001/internal/types"
)

func outputResult(object string, result *speckit.Result, formatName string, debug bool) error {
	formatter, err := format.GetFormatter(formatName)
	if err != nil {
		return err
	}

	var meta map[string]any
	if debug {
		meta = output.ResultToMap(result)
	} else {
		meta = buildFriendlyOutput(result)
	}

	data := &format.Data{
		Object: object,
		Meta:   meta,
	}

	return formatter.PrintAll([]*format.Data{data}, os.Stdout)
}

// buildFriendlyOutput creates a user-friendly summary of the analysis results.
func buildFriendlyOutput(result *speckit.Result) map[string]any {
	artifact := result.Artifact

	counts := map[types.Status]int{}
	for _, req := range artifact.Requirements {
		counts[req.Status]++
	}

	meta := map[string]any{
		"run": artifact.Run.RunID,
		"summary": fmt.Sprintf("%d requirements (%d satisfied, %d violated, %d unknown), %d labels",
			len(artifact.Requirements),
			counts[types.StatusSatisfied],
			counts[types.StatusViolated],
			counts[types.StatusUnknown],
			len(artifact.Labels),
		),
	}

	// Metrics in table order.
	rows := make([]any, 0, len(result.Rows))

	for _, row := range result.Rows {
		marker := "  "
		if !row.Met {
			marker = "!!"
		}

		rows = append(rows, fmt.Sprintf("%s %s: %s", marker, row.Label, row.Value))
	}

	meta["metrics"] = rows

	if len(artifact.Requirements) > 0 {
		reqs := make([]any, 0, len(artifact.Requirements))
		for idx, req := range artifact.Requirements {
			reqs = append(reqs, fmt.Sprintf("[%s] %s %s", req.Status, req.ID, req.Text))
			reqs = append(reqs, "    "+result.Checks[idx])
		}

		meta["requirements"] = reqs
	}

	if len(artifact.Labels) > 0 {
		meta["labels"] = toAny(artifact.Labels)
		meta["hints"] = toAny(artifact.Hints)
	}

	return meta
}

func toAny(values []string) []any {
	out := make([]any, 0, len(values))
	for _, value := range values {
		out = append(out, value)
	}

	return out
}
