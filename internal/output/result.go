// Package output provides shared result serialization for speckit output.
package output

import (
	speckit "github.com/airnub/speckit-internal-sub001"
	"github.com/airnub/speckit-internal-sub001/internal/metrics"
	"github.com/airnub/speckit-internal-sub001/internal/types"
)

// ResultToMap converts an analysis result into the canonical map structure used by the format
// printers and JSONL reports.
func ResultToMap(result *speckit.Result) map[string]any {
	artifact := result.Artifact

	meta := map[string]any{
		"schema_version": artifact.SchemaVersion,
		"run": map[string]any{
			"run_id":      artifact.Run.RunID,
			"source_logs": stringsToAny(artifact.Run.SourceLogs),
			"started_at":  artifact.Run.StartedAt.UTC().Format(timeLayout),
			"finished_at": artifact.Run.FinishedAt.UTC().Format(timeLayout),
			"events":      len(artifact.Run.Events),
		},
		"requirements": RequirementsToMap(artifact.Requirements),
		"metrics":      MetricsToMap(artifact.Metrics),
		"labels":       stringsToAny(artifact.Labels),
		"hints":        stringsToAny(artifact.Hints),
		"checks":       stringsToAny(result.Checks),
		"summary":      RowsToMap(result.Rows),
	}

	if artifact.Prompt != "" {
		meta["prompt"] = artifact.Prompt
	}

	if len(artifact.Metadata) > 0 {
		metadata := make(map[string]any, len(artifact.Metadata))
		for key, value := range artifact.Metadata {
			metadata[key] = value
		}

		meta["metadata"] = metadata
	}

	return meta
}

// RequirementsToMap converts requirements to a list of maps.
func RequirementsToMap(reqs []types.Requirement) []any {
	out := make([]any, 0, len(reqs))

	for _, req := range reqs {
		out = append(out, map[string]any{
			"id":       req.ID,
			"text":     req.Text,
			"status":   string(req.Status),
			"evidence": stringsToAny(req.Evidence),
		})
	}

	return out
}

// MetricsToMap converts raw metrics to a map. An absent TTFP is omitted.
func MetricsToMap(m types.Metrics) map[string]any {
	out := map[string]any{
		"req_coverage":       m.ReqCoverage,
		"backtrack_ratio":    m.BacktrackRatio,
		"tool_precision_at1": m.ToolPrecisionAt1,
		"edit_locality":      m.EditLocality,
		"reflection_density": m.ReflectionDensity,
	}

	if m.TTFPSeconds != nil {
		out["ttfp_seconds"] = *m.TTFPSeconds
	}

	return out
}

// RowsToMap converts summary rows to a list of maps.
func RowsToMap(rows []metrics.Row) []any {
	out := make([]any, 0, len(rows))

	for _, row := range rows {
		out = append(out, map[string]any{
			"key":   row.Key,
			"label": row.Label,
			"value": row.Value,
			"met":   row.Met,
		})
	}

	return out
}

func stringsToAny(values []string) []any {
	out := make([]any, 0, len(values))
	for _, value := range values {
		out = append(out, value)
	}

	return out
}
