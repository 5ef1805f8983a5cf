package render

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/brookluers/kmreport/internal/survival"
)

// KMPlot draws the Kaplan-Meier curves as a step-function PNG, with dashed
// pointwise 95% confidence bands, overwriting any existing file at path.
// When several group curves are present the pooled "All" curve is omitted
// to keep the figure readable.
func KMPlot(curves []survival.Curve, timeUnit, path string) error {

	if len(curves) == 0 {
		return fmt.Errorf("render: no survival curves to plot")
	}
	curves = trimPooled(curves)

	p := plot.New()
	p.Title.Text = "Kaplan-Meier survival estimate"
	p.X.Label.Text = "Time"
	if timeUnit != "" {
		p.X.Label.Text = fmt.Sprintf("Time (%s)", timeUnit)
	}
	p.Y.Label.Text = "Survival probability"
	p.Y.Min, p.Y.Max = 0, 1
	p.X.Min = 0
	p.Legend.Top = true

	for i, cv := range curves {

		ln, err := plotter.NewLine(stepPoints(cv.Time, cv.Prob, nil, 0))
		if err != nil {
			return fmt.Errorf("render: km plot: %w", err)
		}
		ln.StepStyle = plotter.PostStep
		ln.Color = plotutil.Color(i)
		p.Add(ln)
		p.Legend.Add(fmt.Sprintf("%s (n=%d)", cv.Group, cv.N), ln)

		for _, sign := range []float64{1.96, -1.96} {
			band, err := plotter.NewLine(stepPoints(cv.Time, cv.Prob, cv.SE, sign))
			if err != nil {
				return fmt.Errorf("render: km plot: %w", err)
			}
			band.StepStyle = plotter.PostStep
			band.Color = plotutil.Color(i)
			band.Dashes = []vg.Length{vg.Points(3), vg.Points(2)}
			band.Width = vg.Points(0.5)
			p.Add(band)
		}
	}

	if err := p.Save(6*vg.Inch, 4.5*vg.Inch, path); err != nil {
		return fmt.Errorf("render: km plot: %w", err)
	}

	return nil
}

// trimPooled drops the pooled curve when group curves are present, so the
// figure shows only the group comparison.  A curve list without a pooled
// curve is passed through unchanged.
func trimPooled(curves []survival.Curve) []survival.Curve {
	if len(curves) > 1 && curves[0].Group == survival.PooledGroup {
		return curves[1:]
	}
	return curves
}

// stepPoints prepends the (0, 1) origin and applies an optional multiple of
// the standard error, clamped to [0, 1].
func stepPoints(tim, prob, se []float64, sign float64) plotter.XYs {

	xys := make(plotter.XYs, 0, len(tim)+1)
	xys = append(xys, plotter.XY{X: 0, Y: 1})

	for i := range tim {
		y := prob[i]
		if se != nil {
			y += sign * se[i]
			if y < 0 {
				y = 0
			}
			if y > 1 {
				y = 1
			}
		}
		xys = append(xys, plotter.XY{X: tim[i], Y: y})
	}

	return xys
}
