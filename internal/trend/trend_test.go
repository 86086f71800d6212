package trend_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airnub/speckit-internal-sub001/internal/trend"
	"github.com/airnub/speckit-internal-sub001/internal/types"
)

func date(day int) time.Time {
	return time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC)
}

func TestFillGaps(t *testing.T) {
	series := trend.FillGaps([]trend.DayCounts{
		{Day: date(4), Counts: map[string]int{"flaky": 1}},
		{Day: date(1).Add(13 * time.Hour), Counts: map[string]int{"flaky": 2, "lint": 1}},
		{Day: date(1), Counts: map[string]int{"lint": 1}},
	})

	require.Len(t, series.Days, 4)
	assert.Equal(t, date(1), series.Days[0])
	assert.Equal(t, date(4), series.Days[3])
	assert.Equal(t, []string{"flaky", "lint"}, series.Labels)
	assert.Equal(t, []float64{2, 0, 0, 1}, series.Values["flaky"])
	assert.Equal(t, []float64{2, 0, 0, 0}, series.Values["lint"])
}

func TestFillGapsEmpty(t *testing.T) {
	series := trend.FillGaps(nil)

	assert.Empty(t, series.Days)
	assert.Empty(t, series.Labels)
	assert.Empty(t, series.Values)
}

func TestRollingAverage(t *testing.T) {
	assert.Equal(t, []float64{4, 6, 9}, trend.RollingAverage([]float64{4, 8, 10}, 2))
	assert.Equal(t, []float64{4, 8, 10}, trend.RollingAverage([]float64{4, 8, 10}, 0))
	assert.Empty(t, trend.RollingAverage(nil, 3))
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "▁▃▅█", trend.Sparkline([]float64{0, 2, 4, 8}, 0))
	assert.Equal(t, "███", trend.Sparkline([]float64{3, 3, 3}, 0))
	assert.Equal(t, trend.Placeholder, trend.Sparkline(nil, 10))
}

func TestSparklineDownsample(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8}

	assert.Equal(t, []float64{0, 4, 8}, trend.Downsample(values, 3))
	assert.Equal(t, values, trend.Downsample(values, 20))
	assert.Equal(t, []float64{8}, trend.Downsample(values, 1))

	line := trend.Sparkline(values, 3)
	assert.Equal(t, "▁▅█", line)
}

func TestFromArtifacts(t *testing.T) {
	artifacts := []types.RunArtifact{
		{Run: types.RunInfo{FinishedAt: date(2).Add(5 * time.Hour)}, Labels: []string{"flaky", "lint"}},
		{Run: types.RunInfo{FinishedAt: date(1)}, Labels: []string{"flaky"}},
		{Run: types.RunInfo{FinishedAt: date(2)}, Labels: []string{"flaky"}},
	}

	days := trend.FromArtifacts(artifacts)

	require.Len(t, days, 2)
	assert.Equal(t, date(1), days[0].Day)
	assert.Equal(t, map[string]int{"flaky": 1}, days[0].Counts)
	assert.Equal(t, map[string]int{"flaky": 2, "lint": 1}, days[1].Counts)
}
