package trend

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Placeholder is rendered for an empty series.
const Placeholder = "·"

//nolint:gochecknoglobals // glyph table, effectively const
var levels = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders values scaled between their minimum and maximum across eight levels. A
// constant series renders at the top level. When width is positive and smaller than the input,
// evenly spaced points (first and last included) are selected.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 {
		return Placeholder
	}

	values = Downsample(values, width)

	low, high := floats.Min(values), floats.Max(values)
	span := high - low
	top := len(levels) - 1

	var out strings.Builder

	for _, value := range values {
		level := top
		if span > 0 {
			level = int(math.Round((value - low) / span * float64(top)))
		}

		out.WriteRune(levels[max(0, min(top, level))])
	}

	return out.String()
}

// Downsample picks width evenly spaced points from values. It returns values unchanged when width is
// not positive or not smaller than the input.
func Downsample(values []float64, width int) []float64 {
	if width <= 0 || width >= len(values) {
		return values
	}

	if width == 1 {
		return []float64{values[len(values)-1]}
	}

	out := make([]float64, width)
	last := len(values) - 1

	for idx := range width {
		out[idx] = values[int(math.Round(float64(idx*last)/float64(width-1)))]
	}

	return out
}
