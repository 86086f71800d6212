package types

import "time"

// SchemaVersion must change whenever RunArtifact changes incompatibly.
const SchemaVersion = "1"

// Metrics are the fixed quality measurements of a run. Ratios are in [0,1]. TTFPSeconds is nil when
// no passing verification was observed.
type Metrics struct {
	ReqCoverage       float64  `json:"ReqCoverage"`
	BacktrackRatio    float64  `json:"BacktrackRatio"`
	ToolPrecisionAt1  float64  `json:"ToolPrecisionAt1"`
	EditLocality      float64  `json:"EditLocality"`
	ReflectionDensity float64  `json:"ReflectionDensity"`
	TTFPSeconds       *float64 `json:"TTFPSeconds"`
}

// RunInfo describes the analyzed run.
type RunInfo struct {
	RunID      string     `json:"runId"`
	SourceLogs []string   `json:"sourceLogs"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt time.Time  `json:"finishedAt"`
	Events     []RunEvent `json:"events"`
}

// RunArtifact is the serialized outcome of one analysis.
type RunArtifact struct {
	SchemaVersion string            `json:"schemaVersion"`
	Run           RunInfo           `json:"run"`
	Requirements  []Requirement     `json:"requirements"`
	Metrics       Metrics           `json:"metrics"`
	Labels        []string          `json:"labels"`
	Hints         []string          `json:"hints"`
	Normalized    NormalizedLog     `json:"normalized"`
	Prompt        string            `json:"prompt"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}
