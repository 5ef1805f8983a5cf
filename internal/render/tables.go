// Package render writes the report artifacts: the markdown report body, the
// attrition flow diagram and the Kaplan-Meier plot.  Table formatting,
// diagram drawing and plot layout are delegated; this package only marshals
// the computed results into the shapes those renderers expect.
package render

import (
	"bytes"

	"github.com/olekukonko/tablewriter"
)

// asciiTable renders a header and rows as a plain text table suitable for a
// fenced block in the markdown report.
func asciiTable(header []string, rows [][]string) string {

	var buf bytes.Buffer
	tw := tablewriter.NewWriter(&buf)
	tw.SetHeader(header)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.AppendBulk(rows)
	tw.Render()

	return buf.String()
}
