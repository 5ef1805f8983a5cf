package survival

import (
	"fmt"

	"github.com/kshedden/dstream/dstream"
	"github.com/kshedden/duration"

	"github.com/brookluers/kmreport/internal/cohort"
)

// Effect is the unadjusted group comparison: a proportional hazards model
// on the group indicators, with the concordance of its fitted risk score.
type Effect struct {
	Ref         string
	Terms       []string
	Summary     string
	Concordance float64
}

// GroupEffect fits a proportional hazards model with indicator terms for
// every group level except the reference (first) level.
func GroupEffect(f *cohort.Frame, timeVar, statusVar, group string) (*Effect, error) {

	f, _, err := completeCases(f, timeVar, statusVar)
	if err != nil {
		return nil, err
	}

	levels, err := f.Levels(group)
	if err != nil {
		return nil, fmt.Errorf("survival: group column: %w", err)
	}
	if len(levels) < 2 {
		return nil, fmt.Errorf("survival: group column %q has %d levels, need at least 2", group, len(levels))
	}

	gcol, _ := f.Str(group)

	// Drop records with a missing group assignment.
	keep := make([]bool, f.NumRec())
	for i, v := range gcol {
		keep[i] = v != ""
	}
	f = f.Subset(keep)
	gcol, _ = f.Str(group)

	// Model frame: time, status, and one indicator per non-reference level.
	mf := cohort.NewFrame()
	tcol, _ := f.Float(timeVar)
	scol, _ := f.Float(statusVar)
	if err := mf.AddFloat(timeVar, tcol); err != nil {
		return nil, err
	}
	if err := mf.AddFloat(statusVar, scol); err != nil {
		return nil, err
	}

	eff := &Effect{Ref: levels[0]}
	for _, lv := range levels[1:] {
		ind := make([]float64, f.NumRec())
		for i, v := range gcol {
			if v == lv {
				ind[i] = 1
			}
		}
		name := fmt.Sprintf("%s=%s", group, lv)
		if err := mf.AddFloat(name, ind); err != nil {
			return nil, err
		}
		eff.Terms = append(eff.Terms, name)
	}

	ds, err := mf.ToDstream()
	if err != nil {
		return nil, err
	}

	model := duration.NewPHReg(ds, timeVar, statusVar).Norm().Done()
	result, err := model.Fit()
	if err != nil {
		return nil, fmt.Errorf("survival: group model fit: %w", err)
	}
	eff.Summary = result.Summary()

	score := result.FittedValues(nil)
	eff.Concordance = concordance(ds, timeVar, statusVar, score)

	return eff, nil
}

// concordance computes the Harrell concordance of a risk score, truncated
// at the largest observed time.
func concordance(ds dstream.Dstream, timeVar, statusVar string, score []float64) float64 {

	ds.Reset()
	tim := dstream.GetCol(ds, timeVar).([]float64)
	ds.Reset()
	status := dstream.GetCol(ds, statusVar).([]float64)

	tmax := 0.0
	for _, t := range tim {
		if t > tmax {
			tmax = t
		}
	}

	c := duration.NewConcordance(tim, status, score).Done()
	return c.Concordance(tmax)
}
