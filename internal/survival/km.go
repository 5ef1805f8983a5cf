// Package survival produces the time-to-event summaries of the selected
// cohort.  Estimation is delegated: Kaplan-Meier curves and proportional
// hazards models come from the duration package, covariate screening from
// statmodel, and indicator-block reduction from dimred.
package survival

import (
	"fmt"
	"math"

	"github.com/kshedden/duration"
	"go.uber.org/zap"

	"github.com/brookluers/kmreport/internal/cohort"
)

// PooledGroup labels the curve estimated from the whole cohort.
const PooledGroup = "All"

// Curve is one Kaplan-Meier estimate with Greenwood standard errors.
type Curve struct {
	Group  string
	N      int
	Events int

	Time []float64
	Prob []float64
	SE   []float64

	// Median is the smallest time at which the estimated survival
	// probability reaches 0.5 or below; NaN when not reached.
	Median float64
}

// Curves estimates one survival curve per level of the group column, or a
// single curve labeled "All" when group is empty.  Records with a missing
// time or status are dropped and counted in the log; the selection criteria
// should normally have removed them already.
func Curves(f *cohort.Frame, timeVar, statusVar, group string, lg *zap.Logger) ([]Curve, error) {

	f, dropped, err := completeCases(f, timeVar, statusVar)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		lg.Warn("dropped records with missing time or status",
			zap.Int("dropped", dropped))
	}
	if f.NumRec() == 0 {
		return nil, fmt.Errorf("survival: no complete records to estimate from")
	}

	subsets := []struct {
		label string
		frame *cohort.Frame
	}{{PooledGroup, f}}

	if group != "" {
		levels, err := f.Levels(group)
		if err != nil {
			return nil, fmt.Errorf("survival: group column: %w", err)
		}
		gcol, _ := f.Str(group)
		for _, lv := range levels {
			keep := make([]bool, f.NumRec())
			for i, v := range gcol {
				keep[i] = v == lv
			}
			subsets = append(subsets, struct {
				label string
				frame *cohort.Frame
			}{lv, f.Subset(keep)})
		}
	}

	var curves []Curve
	for _, s := range subsets {
		cv, err := oneCurve(s.frame, timeVar, statusVar, s.label)
		if err != nil {
			return nil, err
		}
		curves = append(curves, cv)
	}

	return curves, nil
}

func oneCurve(f *cohort.Frame, timeVar, statusVar, label string) (Curve, error) {

	if f.NumRec() == 0 {
		return Curve{}, fmt.Errorf("survival: group %q has no records", label)
	}

	ds, err := f.ToDstream(timeVar, statusVar)
	if err != nil {
		return Curve{}, err
	}

	sf := duration.NewSurvfuncRight(ds, timeVar, statusVar).Done()

	cv := Curve{
		Group: label,
		N:     f.NumRec(),
		Time:  sf.Time(),
		Prob:  sf.SurvProb(),
		SE:    sf.SurvProbSE(),
	}

	status, _ := f.Float(statusVar)
	for _, v := range status {
		if v == 1 {
			cv.Events++
		}
	}

	cv.Median = math.NaN()
	for i, p := range cv.Prob {
		if p <= 0.5 {
			cv.Median = cv.Time[i]
			break
		}
	}

	return cv, nil
}

// completeCases removes records with a missing value in either column.
func completeCases(f *cohort.Frame, timeVar, statusVar string) (*cohort.Frame, int, error) {

	tcol, ok := f.Float(timeVar)
	if !ok {
		return nil, 0, fmt.Errorf("survival: time column %q is not numeric", timeVar)
	}
	scol, ok := f.Float(statusVar)
	if !ok {
		return nil, 0, fmt.Errorf("survival: status column %q is not numeric", statusVar)
	}

	keep := make([]bool, f.NumRec())
	dropped := 0
	for i := range keep {
		if math.IsNaN(tcol[i]) || math.IsNaN(scol[i]) {
			dropped++
			continue
		}
		if scol[i] != 0 && scol[i] != 1 {
			return nil, 0, fmt.Errorf("survival: status column %q has value %v, want 0 or 1", statusVar, scol[i])
		}
		keep[i] = true
	}

	return f.Subset(keep), dropped, nil
}
