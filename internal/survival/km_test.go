package survival

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/brookluers/kmreport/internal/cohort"
)

func TestCurvesAllEvents(t *testing.T) {
	f := cohort.NewFrame()
	require.NoError(t, f.AddFloat("Time", []float64{1, 2, 3}))
	require.NoError(t, f.AddFloat("Status", []float64{1, 1, 1}))

	curves, err := Curves(f, "Time", "Status", "", zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, curves, 1)

	cv := curves[0]
	assert.Equal(t, "All", cv.Group)
	assert.Equal(t, 3, cv.N)
	assert.Equal(t, 3, cv.Events)

	require.Equal(t, []float64{1, 2, 3}, cv.Time)
	require.Len(t, cv.Prob, 3)
	assert.InDelta(t, 2.0/3, cv.Prob[0], 1e-8)
	assert.InDelta(t, 1.0/3, cv.Prob[1], 1e-8)
	assert.InDelta(t, 0.0, cv.Prob[2], 1e-8)

	assert.Equal(t, 2.0, cv.Median)
}

func TestCurvesCensoring(t *testing.T) {
	f := cohort.NewFrame()
	require.NoError(t, f.AddFloat("Time", []float64{1, 2, 3, 4}))
	require.NoError(t, f.AddFloat("Status", []float64{1, 0, 1, 1}))

	curves, err := Curves(f, "Time", "Status", "", zaptest.NewLogger(t))
	require.NoError(t, err)
	cv := curves[0]

	// Event times are 1, 3, 4; the censored record leaves the risk set
	// after t=2.
	require.Len(t, cv.Prob, 3)
	assert.InDelta(t, 3.0/4, cv.Prob[0], 1e-8)
	assert.InDelta(t, 3.0/8, cv.Prob[1], 1e-8)
	assert.InDelta(t, 0.0, cv.Prob[2], 1e-8)
	assert.Equal(t, 3.0, cv.Median)
}

func TestCurvesGrouped(t *testing.T) {
	f := cohort.NewFrame()
	require.NoError(t, f.AddFloat("Time", []float64{1, 2, 3, 4, 5, 6}))
	require.NoError(t, f.AddFloat("Status", []float64{1, 1, 1, 1, 0, 1}))
	require.NoError(t, f.AddStr("Arm", []string{"A", "A", "A", "B", "B", "B"}))

	curves, err := Curves(f, "Time", "Status", "Arm", zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, curves, 3)

	assert.Equal(t, "All", curves[0].Group)
	assert.Equal(t, "A", curves[1].Group)
	assert.Equal(t, "B", curves[2].Group)
	assert.Equal(t, 3, curves[1].N)
	assert.Equal(t, 2, curves[2].Events)
}

func TestCurvesDropsMissing(t *testing.T) {
	f := cohort.NewFrame()
	require.NoError(t, f.AddFloat("Time", []float64{1, 2, math.NaN(), 4}))
	require.NoError(t, f.AddFloat("Status", []float64{1, math.NaN(), 1, 1}))

	curves, err := Curves(f, "Time", "Status", "", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 2, curves[0].N)
}

func TestCurvesBadStatus(t *testing.T) {
	f := cohort.NewFrame()
	require.NoError(t, f.AddFloat("Time", []float64{1, 2}))
	require.NoError(t, f.AddFloat("Status", []float64{1, 2}))

	_, err := Curves(f, "Time", "Status", "", zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestMedianNotReached(t *testing.T) {
	f := cohort.NewFrame()
	require.NoError(t, f.AddFloat("Time", []float64{1, 2, 3, 4}))
	require.NoError(t, f.AddFloat("Status", []float64{1, 0, 0, 0}))

	curves, err := Curves(f, "Time", "Status", "", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(curves[0].Median))
}
