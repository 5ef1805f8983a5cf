// Package cohort holds the in-memory representation of a study dataset.  A
// Frame materializes a dstream into named columns so the selection logic can
// make repeated row-wise passes without rewinding the stream.  Missing
// values are NaN in numeric columns and "" in categorical columns.
package cohort

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/kshedden/dstream/dstream"
)

// Frame is a column-oriented dataset with a fixed schema.  Columns are
// either float64 or string valued.  The selection core treats a Frame as
// read-only; derived cohorts are new Frames.
type Frame struct {
	names []string
	fcols map[string][]float64
	scols map[string][]string
	nrec  int
}

// NewFrame returns an empty frame with no columns.
func NewFrame() *Frame {
	return &Frame{
		fcols: make(map[string][]float64),
		scols: make(map[string][]string),
	}
}

// FromDstream materializes all variables of a dstream into a Frame.
func FromDstream(ds dstream.Dstream) (*Frame, error) {

	f := NewFrame()

	for _, na := range ds.Names() {
		ds.Reset()
		switch v := dstream.GetCol(ds, na).(type) {
		case []float64:
			if err := f.AddFloat(na, v); err != nil {
				return nil, err
			}
		case []string:
			if err := f.AddStr(na, v); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("cohort: column %q has unsupported type %T", na, v)
		}
	}

	return f, nil
}

// AddFloat appends a numeric column.  All columns must have equal length.
func (f *Frame) AddFloat(name string, vals []float64) error {
	if err := f.checkAdd(name, len(vals)); err != nil {
		return err
	}
	f.fcols[name] = vals
	f.names = append(f.names, name)
	return nil
}

// AddStr appends a categorical column.
func (f *Frame) AddStr(name string, vals []string) error {
	if err := f.checkAdd(name, len(vals)); err != nil {
		return err
	}
	f.scols[name] = vals
	f.names = append(f.names, name)
	return nil
}

func (f *Frame) checkAdd(name string, n int) error {
	if f.HasVar(name) {
		return fmt.Errorf("cohort: duplicate column %q", name)
	}
	if len(f.names) > 0 && n != f.nrec {
		return fmt.Errorf("cohort: column %q has %d records, frame has %d", name, n, f.nrec)
	}
	f.nrec = n
	return nil
}

// Names returns the schema in insertion order.
func (f *Frame) Names() []string { return f.names }

// NumRec returns the number of records.
func (f *Frame) NumRec() int { return f.nrec }

// HasVar reports whether the schema contains the column.
func (f *Frame) HasVar(name string) bool {
	_, ok := f.fcols[name]
	if !ok {
		_, ok = f.scols[name]
	}
	return ok
}

// IsFloat reports whether the column is numeric.
func (f *Frame) IsFloat(name string) bool {
	_, ok := f.fcols[name]
	return ok
}

// Float returns the numeric column, or false if absent or categorical.
func (f *Frame) Float(name string) ([]float64, bool) {
	v, ok := f.fcols[name]
	return v, ok
}

// Str returns the categorical column, or false if absent or numeric.
func (f *Frame) Str(name string) ([]string, bool) {
	v, ok := f.scols[name]
	return v, ok
}

// FloatAt returns the value of a numeric field on record i; ok is false when
// the value is missing or the column is not numeric.
func (f *Frame) FloatAt(name string, i int) (float64, bool) {
	col, ok := f.fcols[name]
	if !ok || math.IsNaN(col[i]) {
		return 0, false
	}
	return col[i], true
}

// StrAt returns the value of a categorical field on record i; ok is false
// when the value is missing or the column is not categorical.
func (f *Frame) StrAt(name string, i int) (string, bool) {
	col, ok := f.scols[name]
	if !ok || col[i] == "" {
		return "", false
	}
	return col[i], true
}

// Subset returns a new frame with the records where keep is true, preserving
// record order.
func (f *Frame) Subset(keep []bool) *Frame {

	g := NewFrame()

	for _, na := range f.names {
		if col, ok := f.fcols[na]; ok {
			var v []float64
			for i := range col {
				if keep[i] {
					v = append(v, col[i])
				}
			}
			if v == nil {
				v = []float64{}
			}
			if err := g.AddFloat(na, v); err != nil {
				// Unreachable: names are unique and lengths equal.
				panic(err)
			}
			continue
		}
		col := f.scols[na]
		var v []string
		for i := range col {
			if keep[i] {
				v = append(v, col[i])
			}
		}
		if v == nil {
			v = []string{}
		}
		if err := g.AddStr(na, v); err != nil {
			panic(err)
		}
	}

	// A frame with no surviving records still has the schema.
	if len(f.names) == 0 {
		n := 0
		for _, k := range keep {
			if k {
				n++
			}
		}
		g.nrec = n
	}

	return g
}

// Dedup returns a frame keeping the first record for each distinct value of
// the id column, and the number of records dropped.
func (f *Frame) Dedup(id string) (*Frame, int, error) {

	key, err := f.recordKeys(id)
	if err != nil {
		return nil, 0, err
	}

	seen := make(map[string]bool, f.nrec)
	keep := make([]bool, f.nrec)
	dropped := 0
	for i := 0; i < f.nrec; i++ {
		if seen[key[i]] {
			dropped++
			continue
		}
		seen[key[i]] = true
		keep[i] = true
	}

	return f.Subset(keep), dropped, nil
}

func (f *Frame) recordKeys(id string) ([]string, error) {
	if col, ok := f.scols[id]; ok {
		return col, nil
	}
	col, ok := f.fcols[id]
	if !ok {
		return nil, fmt.Errorf("cohort: id column %q is not in the schema", id)
	}
	key := make([]string, len(col))
	for i, v := range col {
		key[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return key, nil
}

// Levels returns the sorted distinct non-missing values of a categorical
// column.
func (f *Frame) Levels(name string) ([]string, error) {
	col, ok := f.scols[name]
	if !ok {
		return nil, fmt.Errorf("cohort: column %q is not categorical", name)
	}
	seen := make(map[string]bool)
	var lv []string
	for _, v := range col {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		lv = append(lv, v)
	}
	sort.Strings(lv)
	return lv, nil
}

// ToDstream converts the named columns (all columns when names is empty)
// to a single-chunk dstream for the model layer.
func (f *Frame) ToDstream(names ...string) (dstream.Dstream, error) {

	if len(names) == 0 {
		names = f.names
	}

	da := make([][]interface{}, len(names))
	for j, na := range names {
		if col, ok := f.fcols[na]; ok {
			da[j] = []interface{}{col}
		} else if col, ok := f.scols[na]; ok {
			da[j] = []interface{}{col}
		} else {
			return nil, fmt.Errorf("cohort: column %q is not in the schema", na)
		}
	}

	return dstream.NewFromArrays(da, names), nil
}

// Clone returns a shallow copy of the frame that can accept new columns
// without mutating the original schema.
func (f *Frame) Clone() *Frame {
	g := NewFrame()
	g.names = append([]string(nil), f.names...)
	for k, v := range f.fcols {
		g.fcols[k] = v
	}
	for k, v := range f.scols {
		g.scols[k] = v
	}
	g.nrec = f.nrec
	return g
}

// Append concatenates another frame with an identical schema, as when
// assembling a dataset from bucketed input directories.
func (f *Frame) Append(o *Frame) error {

	if len(f.names) != len(o.names) {
		return fmt.Errorf("cohort: appending frame with %d columns to frame with %d", len(o.names), len(f.names))
	}
	for _, na := range f.names {
		if f.IsFloat(na) != o.IsFloat(na) || !o.HasVar(na) {
			return fmt.Errorf("cohort: column %q differs between appended frames", na)
		}
	}

	for _, na := range f.names {
		if col, ok := o.fcols[na]; ok {
			f.fcols[na] = append(f.fcols[na], col...)
		} else {
			f.scols[na] = append(f.scols[na], o.scols[na]...)
		}
	}
	f.nrec += o.nrec

	return nil
}
