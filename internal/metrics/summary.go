package metrics

import (
	"fmt"
	"math"

	"github.com/airnub/speckit-internal-sub001/internal/types"
)

// Metric keys.
const (
	KeyReqCoverage       = "ReqCoverage"
	KeyBacktrackRatio    = "BacktrackRatio"
	KeyToolPrecisionAt1  = "ToolPrecisionAt1"
	KeyEditLocality      = "EditLocality"
	KeyReflectionDensity = "ReflectionDensity"
	KeyTTFPSeconds       = "TTFPSeconds"
	KeySanitizerHits     = "SanitizerHits"
)

// Unit selects how a value is printed.
type Unit int

const (
	UnitRatio Unit = iota
	UnitSeconds
	UnitCount
)

// Threshold defines when a metric is met. Direction is implicit, as with severity bands: a row is
// met when the value is at least Min (HigherIsBetter) or at most Max otherwise.
type Threshold struct {
	Key            string
	Label          string
	Unit           Unit
	HigherIsBetter bool
	Min            float64
	Max            float64
}

// Met evaluates a value against the threshold.
func (t Threshold) Met(value float64) bool {
	if math.IsNaN(value) {
		return false
	}

	if t.HigherIsBetter {
		return value >= t.Min
	}

	return value <= t.Max
}

// Thresholds is the ordered display table. Rows appear in table order.
type Thresholds []Threshold

// DefaultThresholds returns the built-in table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		{Key: KeyReqCoverage, Label: "Requirement coverage", Unit: UnitRatio, HigherIsBetter: true, Min: 0.8},
		{Key: KeyBacktrackRatio, Label: "Backtrack ratio", Unit: UnitRatio, Max: 0.2},
		{Key: KeyToolPrecisionAt1, Label: "Tool precision@1", Unit: UnitRatio, HigherIsBetter: true, Min: 0.7},
		{Key: KeyEditLocality, Label: "Edit locality", Unit: UnitRatio, HigherIsBetter: true, Min: 0.5},
		{Key: KeyReflectionDensity, Label: "Reflection density", Unit: UnitRatio, Max: 0.3},
		{Key: KeyTTFPSeconds, Label: "Time to first pass", Unit: UnitSeconds, Max: 900},
		{Key: KeySanitizerHits, Label: "Sanitizer hits", Unit: UnitCount, Max: 0},
	}
}

// Lookup finds the threshold for key.
func (t Thresholds) Lookup(key string) (Threshold, bool) {
	for _, threshold := range t {
		if threshold.Key == key {
			return threshold, true
		}
	}

	return Threshold{}, false
}

// Extra is a caller-supplied value shown next to the fixed metrics.
type Extra struct {
	Key   string
	Label string
	Value float64
}

// Row is one display line.
type Row struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
	Met   bool   `json:"met"`
}

// Summarize renders the fixed metrics followed by extras. Extras without a threshold are shown and
// counted as met. An absent TTFP renders as "n/a" and is not met.
func Summarize(m types.Metrics, extras []Extra, table Thresholds) []Row {
	if table == nil {
		table = DefaultThresholds()
	}

	values := map[string]float64{
		KeyReqCoverage:       m.ReqCoverage,
		KeyBacktrackRatio:    m.BacktrackRatio,
		KeyToolPrecisionAt1:  m.ToolPrecisionAt1,
		KeyEditLocality:      m.EditLocality,
		KeyReflectionDensity: m.ReflectionDensity,
	}

	rows := make([]Row, 0, len(values)+1+len(extras))

	for _, key := range []string{
		KeyReqCoverage, KeyBacktrackRatio, KeyToolPrecisionAt1, KeyEditLocality, KeyReflectionDensity,
	} {
		rows = append(rows, row(key, key, values[key], table))
	}

	if m.TTFPSeconds == nil {
		threshold, ok := table.Lookup(KeyTTFPSeconds)

		label := KeyTTFPSeconds
		if ok {
			label = threshold.Label
		}

		rows = append(rows, Row{Key: KeyTTFPSeconds, Label: label, Value: "n/a", Met: false})
	} else {
		rows = append(rows, row(KeyTTFPSeconds, KeyTTFPSeconds, *m.TTFPSeconds, table))
	}

	for _, extra := range extras {
		label := extra.Label
		if label == "" {
			label = extra.Key
		}

		rows = append(rows, row(extra.Key, label, extra.Value, table))
	}

	return rows
}

func row(key, fallbackLabel string, value float64, table Thresholds) Row {
	threshold, ok := table.Lookup(key)
	if !ok {
		return Row{Key: key, Label: fallbackLabel, Value: format(value, UnitCount), Met: true}
	}

	label := threshold.Label
	if label == "" {
		label = fallbackLabel
	}

	return Row{Key: key, Label: label, Value: format(value, threshold.Unit), Met: threshold.Met(value)}
}

func format(value float64, unit Unit) string {
	switch unit {
	case UnitRatio:
		return fmt.Sprintf("%.0f%%", value*100)
	case UnitSeconds:
		return fmt.Sprintf("%.1fs", value)
	case UnitCount:
		if value == math.Trunc(value) {
			return fmt.Sprintf("%d", int64(value))
		}

		return fmt.Sprintf("%.2f", value)
	}

	return fmt.Sprint(value)
}
