// Package baseline summarizes the covariates of the selected cohort:
// mean (SD) for numeric columns and count (%) per level for categorical
// columns, overall and within each level of an optional grouping column.
package baseline

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/brookluers/kmreport/internal/cohort"
)

// Table is a rendered-agnostic characteristics table.
type Table struct {
	Header []string
	Rows   [][]string
}

// Build summarizes the given numeric and categorical columns of the frame.
// When group names a categorical column, one summary column per group level
// is added after the overall column.
func Build(f *cohort.Frame, numeric, categorical []string, group string) (*Table, error) {

	for _, na := range numeric {
		if !f.IsFloat(na) {
			return nil, fmt.Errorf("baseline: %q is not a numeric column", na)
		}
	}
	for _, na := range categorical {
		if _, ok := f.Str(na); !ok {
			return nil, fmt.Errorf("baseline: %q is not a categorical column", na)
		}
	}

	// Column masks: overall first, then one per group level.
	masks := [][]bool{allMask(f.NumRec())}
	header := []string{"Characteristic", fmt.Sprintf("Overall (N=%d)", f.NumRec())}

	if group != "" {
		levels, err := f.Levels(group)
		if err != nil {
			return nil, fmt.Errorf("baseline: group column: %w", err)
		}
		gcol, _ := f.Str(group)
		for _, lv := range levels {
			m := make([]bool, f.NumRec())
			n := 0
			for i, v := range gcol {
				if v == lv {
					m[i] = true
					n++
				}
			}
			masks = append(masks, m)
			header = append(header, fmt.Sprintf("%s=%s (N=%d)", group, lv, n))
		}
	}

	t := &Table{Header: header}

	for _, na := range numeric {
		col, _ := f.Float(na)
		row := []string{fmt.Sprintf("%s, mean (SD)", na)}
		for _, m := range masks {
			row = append(row, meanSD(col, m))
		}
		t.Rows = append(t.Rows, row)
	}

	for _, na := range categorical {
		col, _ := f.Str(na)
		levels, err := f.Levels(na)
		if err != nil {
			return nil, err
		}
		for _, lv := range levels {
			row := []string{fmt.Sprintf("%s = %s, n (%%)", na, lv)}
			for _, m := range masks {
				row = append(row, countPct(col, m, lv))
			}
			t.Rows = append(t.Rows, row)
		}
	}

	return t, nil
}

func allMask(n int) []bool {
	m := make([]bool, n)
	for i := range m {
		m[i] = true
	}
	return m
}

// meanSD formats the mean and standard deviation of the non-missing masked
// values.
func meanSD(col []float64, mask []bool) string {
	var v []float64
	for i, x := range col {
		if mask[i] && !math.IsNaN(x) {
			v = append(v, x)
		}
	}
	if len(v) == 0 {
		return "-"
	}
	mn, sd := stat.MeanStdDev(v, nil)
	if len(v) == 1 {
		return fmt.Sprintf("%.1f (-)", mn)
	}
	return fmt.Sprintf("%.1f (%.1f)", mn, sd)
}

// countPct formats the count and percentage of masked records at the level.
// The denominator is the masked record count, missing values included, which
// is the usual convention for characteristics tables.
func countPct(col []string, mask []bool, level string) string {
	n, den := 0, 0
	for i, v := range col {
		if !mask[i] {
			continue
		}
		den++
		if v == level {
			n++
		}
	}
	if den == 0 {
		return "-"
	}
	return fmt.Sprintf("%d (%.1f%%)", n, 100*float64(n)/float64(den))
}
