package render

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/brookluers/kmreport/internal/attrition"
	"github.com/brookluers/kmreport/internal/baseline"
	"github.com/brookluers/kmreport/internal/survival"
)

// Report collects everything that goes into the rendered document.  The
// model results are optional; nil sections are omitted.
type Report struct {
	Title string
	RunID string
	When  time.Time

	Attrition *attrition.Result
	Baseline  *baseline.Table
	Curves    []survival.Curve
	Effect    *survival.Effect
	Adjusted  *survival.Adjusted

	// Image file names as referenced from the report, relative to the
	// report's directory.
	DiagramFile string
	KMFile      string
}

// WriteMarkdown assembles the report and writes it to path, overwriting any
// existing file.
func (r *Report) WriteMarkdown(path string) error {

	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", r.Title)
	fmt.Fprintf(&b, "Generated %s (run %s)\n\n", r.When.Format("2006-01-02 15:04"), r.RunID)

	b.WriteString("## Cohort selection\n\n")
	fmt.Fprintf(&b, "Records in the full dataset: %d. ", r.Attrition.Total)
	fmt.Fprintf(&b, "Records in the analysis cohort: %d.\n\n", r.Attrition.Cohort.NumRec())
	b.WriteString("```\n")
	b.WriteString(asciiTable([]string{"Criterion", "Remaining N", "Excluded N"}, r.Attrition.TableRows()))
	b.WriteString("```\n\n")
	if r.DiagramFile != "" {
		fmt.Fprintf(&b, "![Attrition diagram](%s)\n\n", r.DiagramFile)
	}

	if r.Baseline != nil {
		b.WriteString("## Baseline characteristics\n\n")
		b.WriteString("```\n")
		b.WriteString(asciiTable(r.Baseline.Header, r.Baseline.Rows))
		b.WriteString("```\n\n")
	}

	if len(r.Curves) > 0 {
		b.WriteString("## Survival\n\n")
		b.WriteString("```\n")
		b.WriteString(asciiTable(
			[]string{"Group", "N", "Events", "Median survival"},
			curveRows(r.Curves)))
		b.WriteString("```\n\n")
		if r.KMFile != "" {
			fmt.Fprintf(&b, "![Kaplan-Meier curve](%s)\n\n", r.KMFile)
		}
	}

	if r.Effect != nil {
		b.WriteString("## Group comparison\n\n")
		fmt.Fprintf(&b, "Proportional hazards model, reference level %s=%q. Concordance %.3f.\n\n",
			strings.SplitN(r.Effect.Terms[0], "=", 2)[0], r.Effect.Ref, r.Effect.Concordance)
		b.WriteString("```\n")
		b.WriteString(r.Effect.Summary)
		b.WriteString("\n```\n\n")
	}

	if r.Adjusted != nil {
		b.WriteString("## Adjusted analysis\n\n")
		fmt.Fprintf(&b, "Model: %s. Concordance %.3f.\n\n", r.Adjusted.Formula, r.Adjusted.Concordance)
		b.WriteString("```\n")
		b.WriteString(r.Adjusted.Summary)
		b.WriteString("\n```\n\n")
		if len(r.Adjusted.Knockoff) > 0 {
			b.WriteString("Knockoff covariate screening:\n\n")
			rows := make([][]string, 0, len(r.Adjusted.Knockoff))
			for _, kr := range r.Adjusted.Knockoff {
				rows = append(rows, []string{
					kr.Name,
					fmt.Sprintf("%.4f", kr.Param),
					fmt.Sprintf("%.4f", kr.Stat),
					fmt.Sprintf("%.4f", kr.FDR),
				})
			}
			b.WriteString("```\n")
			b.WriteString(asciiTable([]string{"Covariate", "Coefficient", "Statistic", "FDR"}, rows))
			b.WriteString("```\n\n")
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("render: report: %w", err)
	}

	return nil
}

func curveRows(curves []survival.Curve) [][]string {
	rows := make([][]string, 0, len(curves))
	for _, cv := range curves {
		med := "not reached"
		if !math.IsNaN(cv.Median) {
			med = strconv.FormatFloat(cv.Median, 'g', -1, 64)
		}
		rows = append(rows, []string{cv.Group, strconv.Itoa(cv.N), strconv.Itoa(cv.Events), med})
	}
	return rows
}

// WriteAll writes the diagram, the plot and the markdown report into dir,
// in that order, stopping at the first failure so a partial report is never
// presented as complete.
func WriteAll(r *Report, dir, reportFile, diagramFile, kmFile string) error {

	if err := AttritionDiagram(r.Attrition.Diagram(), filepath.Join(dir, diagramFile)); err != nil {
		return err
	}
	r.DiagramFile = diagramFile

	if len(r.Curves) > 0 && kmFile != "" {
		if err := KMPlot(r.Curves, "", filepath.Join(dir, kmFile)); err != nil {
			return err
		}
		r.KMFile = kmFile
	}

	return r.WriteMarkdown(filepath.Join(dir, reportFile))
}
