package criteria

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapRecord backs a Record with plain maps; NaN floats and empty strings
// count as missing, matching the dataset convention.
type mapRecord struct {
	f map[string]float64
	s map[string]string
}

func (m mapRecord) Float(name string) (float64, bool) {
	v, ok := m.f[name]
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func (m mapRecord) Str(name string) (string, bool) {
	v, ok := m.s[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func TestPresent(t *testing.T) {
	r := mapRecord{
		f: map[string]float64{"Age": 61, "Score": math.NaN()},
		s: map[string]string{"Arm": "A", "Site": ""},
	}

	assert.True(t, Present{Field: "Age"}.Holds(r))
	assert.True(t, Present{Field: "Arm"}.Holds(r))
	assert.False(t, Present{Field: "Score"}.Holds(r))
	assert.False(t, Present{Field: "Site"}.Holds(r))
	assert.False(t, Present{Field: "Nope"}.Holds(r))
}

func TestCompare(t *testing.T) {
	r := mapRecord{f: map[string]float64{"Age": 50, "Score": math.NaN()}}

	for _, tc := range []struct {
		op   Op
		val  float64
		want bool
	}{
		{GE, 50, true},
		{GE, 51, false},
		{GT, 49, true},
		{GT, 50, false},
		{LE, 50, true},
		{LT, 50, false},
		{EQ, 50, true},
		{NE, 50, false},
	} {
		got := Compare{Field: "Age", Op: tc.op, Value: tc.val}.Holds(r)
		assert.Equal(t, tc.want, got, "Age %s %v", tc.op, tc.val)
	}

	// A missing value fails the comparison rather than erroring.
	assert.False(t, Compare{Field: "Score", Op: GE, Value: 0}.Holds(r))
}

func TestEquals(t *testing.T) {
	r := mapRecord{s: map[string]string{"Arm": "A"}}
	assert.True(t, Equals{Field: "Arm", Value: "A"}.Holds(r))
	assert.False(t, Equals{Field: "Arm", Value: "B"}.Holds(r))
}

func TestCustom(t *testing.T) {
	r := mapRecord{f: map[string]float64{"Age": 61, "Score": 3}}
	p := Custom{
		Using: []string{"Age", "Score"},
		Fn: func(r Record) bool {
			a, ok1 := r.Float("Age")
			s, ok2 := r.Float("Score")
			return ok1 && ok2 && a >= 50 && s >= 2
		},
	}
	assert.Equal(t, []string{"Age", "Score"}, p.Fields())
	assert.True(t, p.Holds(r))
}

func TestParseOp(t *testing.T) {
	op, err := ParseOp(">=")
	require.NoError(t, err)
	assert.Equal(t, GE, op)

	_, err = ParseOp("=>")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	schema := []string{"Age", "Arm", "Time", "Status"}

	require.NoError(t, Validate(Present{Field: "Age"}, schema))

	err := Validate(Compare{Field: "Score", Op: GE, Value: 0}, schema)
	require.Error(t, err)
	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Score", se.Field)
}

func TestValidateAll(t *testing.T) {
	schema := []string{"Age", "Arm"}
	cs := []Criterion{
		{Desc: "age recorded", Pred: Present{Field: "Age"}},
		{Desc: "has score", Pred: Present{Field: "Score"}},
	}
	err := ValidateAll(cs, schema)
	require.Error(t, err)
	var se *SchemaError
	assert.True(t, errors.As(err, &se))
	assert.Contains(t, err.Error(), "has score")
}
