//nolint:tagliatelle
package main

import (
	"encoding/json"

	"github.com/airnub/speckit-internal-sub001/internal/types"
)

// Record is a single line in the JSONL report file.
type Record struct {
	File     string             `json:"file,omitempty"`
	Artifact *types.RunArtifact `json:"artifact,omitempty"`
	Checks   []string           `json:"checks,omitempty"`
	Error    string             `json:"error,omitempty"`
	Timing   *RecordTiming      `json:"timing,omitempty"`
}

// RecordTiming captures per-file processing durations in milliseconds.
type RecordTiming struct {
	ReadMs    float64 `json:"read_ms"`
	AnalyzeMs float64 `json:"analyze_ms"`
	TotalMs   float64 `json:"total_ms"`
}

// rawRecord defers artifact decoding so the schema version can be checked.
type rawRecord struct {
	File     string          `json:"file,omitempty"`
	Artifact json.RawMessage `json:"artifact,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// digestRecord holds the typed fields needed by the digest and trend commands.
type digestRecord struct {
	File     string
	Artifact *types.RunArtifact
	Error    string
}

// labelBreakdown tracks how often a label matched across the report.
type labelBreakdown struct {
	Label string
	Total int
}
