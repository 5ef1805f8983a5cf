package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brookluers/kmreport/internal/criteria"
)

const sampleYAML = `
title: Lung study
input:
  csv: study.csv
  float_vars: [SubjectID, Time, Age]
  string_vars: [Vital, Arm]
columns:
  subject_id: SubjectID
  time: Time
  status: Status
  group: Arm
status_recode:
  from: Vital
  values:
    Dead: 1
    Alive: 0
criteria:
  - desc: follow-up time recorded
    complement: no follow-up time
    present: Time
  - desc: age 50 or older
    complement: younger than 50
    field: Age
    op: ">="
    value: 50
  - desc: assigned to arm A
    complement: other arms
    field: Arm
    equals: A
baseline:
  numeric: [Age]
  categorical: [Arm]
analysis:
  terms: [Age]
  l2: 0.2
output:
  dir: out
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "Lung study", cfg.Title)
	assert.Equal(t, "study.csv", cfg.Input.CSV)
	assert.Equal(t, "Arm", cfg.Columns.Group)
	assert.Equal(t, 1.0, cfg.Recode.Values["Dead"])
	assert.Equal(t, 0.2, cfg.Analysis.L2)

	// Defaults fill in.
	assert.Equal(t, "report.md", cfg.Output.Report)
	assert.Equal(t, int64(323849), cfg.Analysis.Seed)
	assert.Equal(t, 5, cfg.Analysis.Factors.PowerIters)

	cs, err := cfg.BuildCriteria()
	require.NoError(t, err)
	require.Len(t, cs, 3)
	assert.Equal(t, criteria.Present{Field: "Time"}, cs[0].Pred)
	assert.Equal(t, criteria.Compare{Field: "Age", Op: criteria.GE, Value: 50}, cs[1].Pred)
	assert.Equal(t, criteria.Equals{Field: "Arm", Value: "A"}, cs[2].Pred)
	assert.Equal(t, "no follow-up time", cs[0].Complement)
}

func TestLoadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "report.yaml")
	require.NoError(t, os.WriteFile(p, []byte(sampleYAML), 0o644))

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "Lung study", cfg.Title)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KMREPORT_TITLE", "Overridden study")
	t.Setenv("KMREPORT_OUTPUT__DIR", "elsewhere")
	t.Setenv("KMREPORT_STATUS_RECODE__FROM", "VitalStatus")
	t.Setenv("KMREPORT_ANALYSIS__FACTORS__NUM_FACTORS", "7")

	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "Overridden study", cfg.Title)
	assert.Equal(t, "elsewhere", cfg.Output.Dir)
	assert.Equal(t, "VitalStatus", cfg.Recode.From, "underscored top-level key reachable")
	assert.Equal(t, 7, cfg.Analysis.Factors.NumFactors, "deeply nested key reachable")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "title", envKey("KMREPORT_TITLE"))
	assert.Equal(t, "output.dir", envKey("KMREPORT_OUTPUT__DIR"))
	assert.Equal(t, "status_recode.from", envKey("KMREPORT_STATUS_RECODE__FROM"))
	assert.Equal(t, "analysis.factors.num_factors", envKey("KMREPORT_ANALYSIS__FACTORS__NUM_FACTORS"))
}

func TestValidate(t *testing.T) {
	for name, mangle := range map[string]string{
		"no input":        "input:\n  csv: \"\"",
		"both inputs":     "input:\n  csv: a.csv\n  bcols: dir",
		"missing columns": "columns:\n  time: \"\"",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(mangle + "\n"))
			assert.Error(t, err)
		})
	}
}

func TestBadCriterion(t *testing.T) {
	_, err := Parse([]byte(`
input:
  csv: a.csv
columns:
  time: Time
  status: Status
criteria:
  - desc: broken
    field: Age
    op: "=>"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}
