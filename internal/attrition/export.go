package attrition

import "strconv"

// TableRows projects the result into the row shape consumed by the table
// renderer: description, remaining N, excluded N.
func (r *Result) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		rows = append(rows, []string{
			row.Desc,
			strconv.Itoa(row.Remaining),
			strconv.Itoa(row.Excluded),
		})
	}
	return rows
}

// Diagram is the input shape for the flow-diagram renderer: parallel arrays
// over the ordered criteria.
type Diagram struct {
	Total     int
	Remaining []int
	Excluded  []int

	// Included and Complement are the box labels for the surviving and
	// excluded groups at each step.
	Included   []string
	Complement []string
}

// Diagram projects the result into the diagram arrays.
func (r *Result) Diagram() Diagram {
	d := Diagram{Total: r.Total}
	for _, row := range r.Rows {
		d.Remaining = append(d.Remaining, row.Remaining)
		d.Excluded = append(d.Excluded, row.Excluded)
		d.Included = append(d.Included, row.Desc)
		d.Complement = append(d.Complement, row.Complement)
	}
	return d
}
