// Package criteria defines the typed inclusion criteria applied during
// cohort selection.  A criterion pairs a human-readable description with a
// predicate over one subject record.  Predicates name the columns they read,
// so a criteria list can be checked against the dataset schema before any
// record is evaluated.
package criteria

import (
	"fmt"
)

// Record is a read-only view of one subject's fields.  The second return
// value is false when the field is missing on this record or is not of the
// requested type.
type Record interface {
	Float(name string) (float64, bool)
	Str(name string) (string, bool)
}

// SchemaError indicates that a predicate references a column that does not
// exist in the dataset schema at all.  This is a configuration mistake, not
// a data-quality condition, and aborts the computation.
type SchemaError struct {
	Field string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("criteria: column %q is not in the dataset schema", e.Field)
}

// Predicate is one boolean condition over a record.  A missing value on a
// field referenced by the predicate makes the record fail the predicate; it
// never raises an error.
type Predicate interface {

	// Fields returns the column names the predicate reads.
	Fields() []string

	// Holds reports whether the record satisfies the predicate.
	Holds(r Record) bool
}

// Present is satisfied when the named field has a non-missing value.
type Present struct {
	Field string
}

func (p Present) Fields() []string { return []string{p.Field} }

func (p Present) Holds(r Record) bool {
	if _, ok := r.Float(p.Field); ok {
		return true
	}
	_, ok := r.Str(p.Field)
	return ok
}

// Op is a comparison operator for numeric predicates.
type Op string

const (
	GE Op = ">="
	GT Op = ">"
	LE Op = "<="
	LT Op = "<"
	EQ Op = "=="
	NE Op = "!="
)

// ParseOp converts the operator notation used in report configurations.
func ParseOp(s string) (Op, error) {
	switch Op(s) {
	case GE, GT, LE, LT, EQ, NE:
		return Op(s), nil
	}
	return "", fmt.Errorf("criteria: unknown comparison operator %q", s)
}

// Compare is satisfied when the named numeric field is present and compares
// true against the threshold.
type Compare struct {
	Field string
	Op    Op
	Value float64
}

func (c Compare) Fields() []string { return []string{c.Field} }

func (c Compare) Holds(r Record) bool {
	v, ok := r.Float(c.Field)
	if !ok {
		return false
	}
	switch c.Op {
	case GE:
		return v >= c.Value
	case GT:
		return v > c.Value
	case LE:
		return v <= c.Value
	case LT:
		return v < c.Value
	case EQ:
		return v == c.Value
	case NE:
		return v != c.Value
	}
	return false
}

// Equals is satisfied when the named categorical field is present and equal
// to the given level.
type Equals struct {
	Field string
	Value string
}

func (e Equals) Fields() []string { return []string{e.Field} }

func (e Equals) Holds(r Record) bool {
	v, ok := r.Str(e.Field)
	return ok && v == e.Value
}

// Custom wraps an arbitrary predicate function.  Using must list every
// column the function reads so schema validation stays eager.
type Custom struct {
	Using []string
	Fn    func(r Record) bool
}

func (c Custom) Fields() []string { return c.Using }

func (c Custom) Holds(r Record) bool { return c.Fn(r) }

// Criterion is one ordered step of the cohort selection.  Complement is the
// label for the excluded group, used only when rendering; it is never
// computed from the predicate.
type Criterion struct {
	Desc       string
	Complement string
	Pred       Predicate
}

// Validate checks the predicate's fields against the dataset schema,
// returning a SchemaError for the first unknown column.
func Validate(p Predicate, schema []string) error {
	known := make(map[string]bool, len(schema))
	for _, s := range schema {
		known[s] = true
	}
	for _, f := range p.Fields() {
		if !known[f] {
			return &SchemaError{Field: f}
		}
	}
	return nil
}

// ValidateAll validates every criterion in order.
func ValidateAll(cs []Criterion, schema []string) error {
	for _, c := range cs {
		if err := Validate(c.Pred, schema); err != nil {
			return fmt.Errorf("criterion %q: %w", c.Desc, err)
		}
	}
	return nil
}
