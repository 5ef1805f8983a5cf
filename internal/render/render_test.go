package render

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brookluers/kmreport/internal/attrition"
	"github.com/brookluers/kmreport/internal/baseline"
	"github.com/brookluers/kmreport/internal/cohort"
	"github.com/brookluers/kmreport/internal/criteria"
	"github.com/brookluers/kmreport/internal/survival"
)

func sampleResult(t *testing.T) *attrition.Result {
	t.Helper()

	f := cohort.NewFrame()
	require.NoError(t, f.AddFloat("Time", []float64{10, 20, math.NaN(), 40, 50}))
	require.NoError(t, f.AddFloat("Status", []float64{1, 0, 1, 1, math.NaN()}))

	res, err := attrition.Run(f, []criteria.Criterion{
		{Desc: "follow-up time recorded", Complement: "no follow-up time", Pred: criteria.Present{Field: "Time"}},
		{Desc: "vital status recorded", Complement: "no vital status", Pred: criteria.Present{Field: "Status"}},
	})
	require.NoError(t, err)
	return res
}

func sampleCurves() []survival.Curve {
	return []survival.Curve{
		{
			Group:  "All",
			N:      3,
			Events: 2,
			Time:   []float64{10, 40},
			Prob:   []float64{0.667, 0.333},
			SE:     []float64{0.27, 0.27},
			Median: 40,
		},
	}
}

func TestAsciiTable(t *testing.T) {
	s := asciiTable([]string{"A", "B"}, [][]string{{"x", "1"}, {"y", "2"}})
	assert.Contains(t, s, "A")
	assert.Contains(t, s, "x")
}

func TestAttritionDiagram(t *testing.T) {
	res := sampleResult(t)
	path := filepath.Join(t.TempDir(), "attrition.png")

	require.NoError(t, AttritionDiagram(res.Diagram(), path))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, fi.Size(), int64(0))
}

func TestAttritionDiagramBadDir(t *testing.T) {
	res := sampleResult(t)
	err := AttritionDiagram(res.Diagram(), filepath.Join(t.TempDir(), "missing", "attrition.png"))
	assert.Error(t, err, "unwritable output path surfaces to the caller")
}

func TestKMPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "km.png")
	require.NoError(t, KMPlot(sampleCurves(), "days", path))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, fi.Size(), int64(0))
}

func TestTrimPooled(t *testing.T) {
	pooled := survival.Curve{Group: survival.PooledGroup}
	a := survival.Curve{Group: "A"}
	b := survival.Curve{Group: "B"}

	got := trimPooled([]survival.Curve{pooled, a, b})
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Group)

	// Group-only input keeps every curve.
	got = trimPooled([]survival.Curve{a, b})
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Group)

	// A lone pooled curve is the whole figure.
	got = trimPooled([]survival.Curve{pooled})
	require.Len(t, got, 1)
	assert.Equal(t, survival.PooledGroup, got[0].Group)
}

func TestKMPlotBadDir(t *testing.T) {
	err := KMPlot(sampleCurves(), "", filepath.Join(t.TempDir(), "missing", "km.png"))
	assert.Error(t, err)
}

func TestWriteAll(t *testing.T) {
	dir := t.TempDir()

	r := &Report{
		Title:     "Study report",
		RunID:     "test-run",
		When:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Attrition: sampleResult(t),
		Baseline: &baseline.Table{
			Header: []string{"Characteristic", "Overall (N=3)"},
			Rows:   [][]string{{"Age, mean (SD)", "60.0 (10.0)"}},
		},
		Curves: sampleCurves(),
	}

	require.NoError(t, WriteAll(r, dir, "report.md", "attrition.png", "km.png"))

	body, err := os.ReadFile(filepath.Join(dir, "report.md"))
	require.NoError(t, err)
	md := string(body)
	assert.Contains(t, md, "# Study report")
	assert.Contains(t, md, "follow-up time recorded")
	assert.Contains(t, md, "![Attrition diagram](attrition.png)")
	assert.Contains(t, md, "![Kaplan-Meier curve](km.png)")
	assert.Contains(t, md, "Median survival")

	for _, fn := range []string{"attrition.png", "km.png"} {
		fi, err := os.Stat(filepath.Join(dir, fn))
		require.NoError(t, err)
		assert.Greater(t, fi.Size(), int64(0))
	}
}

func TestWriteAllFailsBeforeReport(t *testing.T) {
	dir := t.TempDir()

	r := &Report{
		Title:     "Study report",
		RunID:     "test-run",
		When:      time.Now(),
		Attrition: sampleResult(t),
	}

	// Diagram write fails, so no report file is produced at all.
	err := WriteAll(r, filepath.Join(dir, "missing"), "report.md", "attrition.png", "")
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "missing", "report.md"))
	assert.True(t, os.IsNotExist(statErr))
}
