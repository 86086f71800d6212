// Package trend turns stored per-day label counts into gap-free series, rolling averages and
// sparklines.
package trend

import (
	"maps"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/airnub/speckit-internal-sub001/internal/types"
)

const day = 24 * time.Hour

// DayCounts holds label occurrence counts for one calendar day.
type DayCounts struct {
	Day    time.Time
	Counts map[string]int
}

// Series is a set of per-label, per-day values. Values[label][i] belongs to Days[i].
type Series struct {
	Days   []time.Time
	Labels []string
	Values map[string][]float64
}

// Truncate reduces a time to its UTC calendar day.
func Truncate(at time.Time) time.Time {
	at = at.UTC()

	return time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
}

// FillGaps spans every day from the first to the last input day. Every label seen on any day gets
// a value for every day, 0 where it was absent. Counts reported twice for the same day add up.
func FillGaps(days []DayCounts) Series {
	series := Series{Days: []time.Time{}, Labels: []string{}, Values: map[string][]float64{}}
	if len(days) == 0 {
		return series
	}

	byDay := map[time.Time]map[string]int{}
	labels := map[string]bool{}

	first, last := Truncate(days[0].Day), Truncate(days[0].Day)

	for _, entry := range days {
		key := Truncate(entry.Day)
		if key.Before(first) {
			first = key
		}

		if key.After(last) {
			last = key
		}

		if byDay[key] == nil {
			byDay[key] = map[string]int{}
		}

		for label, count := range entry.Counts {
			byDay[key][label] += count
			labels[label] = true
		}
	}

	series.Labels = slices.Sorted(maps.Keys(labels))

	for current := first; !current.After(last); current = current.Add(day) {
		series.Days = append(series.Days, current)

		for _, label := range series.Labels {
			series.Values[label] = append(series.Values[label], float64(byDay[current][label]))
		}
	}

	return series
}

// RollingAverage averages each point with up to window-1 preceding points. Leading points use the
// partial window available.
func RollingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window < 1 {
		window = 1
	}

	for idx := range values {
		start := max(0, idx-window+1)
		out[idx] = stat.Mean(values[start:idx+1], nil)
	}

	return out
}

// FromArtifacts buckets label occurrences by the day each run finished, in day order.
func FromArtifacts(artifacts []types.RunArtifact) []DayCounts {
	byDay := map[time.Time]map[string]int{}

	for _, artifact := range artifacts {
		key := Truncate(artifact.Run.FinishedAt)
		if byDay[key] == nil {
			byDay[key] = map[string]int{}
		}

		for _, label := range artifact.Labels {
			byDay[key][label]++
		}
	}

	out := make([]DayCounts, 0, len(byDay))
	for _, key := range slices.SortedFunc(maps.Keys(byDay), time.Time.Compare) {
		out = append(out, DayCounts{Day: key, Counts: byDay[key]})
	}

	return out
}
