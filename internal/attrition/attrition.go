// Package attrition implements the cohort-selection accounting: an ordered
// left fold of inclusion criteria over the study dataset, producing one row
// of remaining/excluded counts per criterion and the filtered cohort that
// survives all of them.
package attrition

import (
	"fmt"

	"github.com/brookluers/kmreport/internal/cohort"
	"github.com/brookluers/kmreport/internal/criteria"
)

// Row is the accounting for one criterion: the number of records remaining
// after applying all criteria up to and including this one, and the number
// this specific criterion excluded.
type Row struct {
	Desc       string
	Complement string
	Remaining  int
	Excluded   int
}

// Result is the outcome of one selection pass.  Cohort is the canonical
// filtered dataset; downstream stages consume it directly rather than
// re-deriving the filter.
type Result struct {
	Total  int
	Rows   []Row
	Cohort *cohort.Frame
}

// record adapts one frame row to the criteria.Record view.
type record struct {
	f *cohort.Frame
	i int
}

func (r record) Float(name string) (float64, bool) { return r.f.FloatAt(name, r.i) }
func (r record) Str(name string) (string, bool)    { return r.f.StrAt(name, r.i) }

// Count evaluates one predicate against every record of the frame and
// returns the number of records satisfying and failing it.  Records with a
// missing value on a referenced field fail the predicate.  A predicate
// naming a column outside the schema is a SchemaError.
func Count(f *cohort.Frame, p criteria.Predicate) (pass, fail int, err error) {

	if err := criteria.Validate(p, f.Names()); err != nil {
		return 0, 0, err
	}

	for i := 0; i < f.NumRec(); i++ {
		if p.Holds(record{f, i}) {
			pass++
		} else {
			fail++
		}
	}

	return pass, fail, nil
}

// Run applies the criteria in order as a strict left fold: each criterion is
// evaluated only against the records that passed all prior criteria.  The
// whole criteria list is validated against the schema before any record is
// touched, so a configuration mistake produces no rows at all.
func Run(f *cohort.Frame, cs []criteria.Criterion) (*Result, error) {

	if err := criteria.ValidateAll(cs, f.Names()); err != nil {
		return nil, fmt.Errorf("attrition: %w", err)
	}

	alive := make([]bool, f.NumRec())
	for i := range alive {
		alive[i] = true
	}

	res := &Result{Total: f.NumRec()}
	remaining := f.NumRec()

	for _, c := range cs {
		excluded := 0
		for i := range alive {
			if !alive[i] {
				continue
			}
			if !c.Pred.Holds(record{f, i}) {
				alive[i] = false
				excluded++
			}
		}
		remaining -= excluded
		res.Rows = append(res.Rows, Row{
			Desc:       c.Desc,
			Complement: c.Complement,
			Remaining:  remaining,
			Excluded:   excluded,
		})
	}

	res.Cohort = f.Subset(alive)

	return res, nil
}
