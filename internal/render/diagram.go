package render

import (
	"fmt"
	"image/color"
	"os"

	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/font/liberation"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/brookluers/kmreport/internal/attrition"
)

const (
	diagWidth  = 6.5 * vg.Inch
	boxWidth   = 2.6 * vg.Inch
	boxHeight  = 0.62 * vg.Inch
	rowGap     = 0.45 * vg.Inch
	diagMargin = 0.3 * vg.Inch
)

// AttritionDiagram draws the cohort-selection flow diagram as a PNG at the
// given path, overwriting any existing file.  The left column shows the
// cohort surviving each criterion, the right column the records excluded by
// that criterion.  A missing or unwritable directory surfaces as an error.
func AttritionDiagram(d attrition.Diagram, path string) error {

	nrows := len(d.Remaining) + 1
	height := diagMargin*2 + vg.Length(nrows)*boxHeight + vg.Length(nrows-1)*rowGap

	c := vgimg.New(diagWidth, height)
	dc := draw.New(c)

	sty := text.Style{
		Color:   color.Black,
		Font:    font.Font{Typeface: "Liberation", Variant: "Sans", Size: 9},
		XAlign:  draw.XCenter,
		YAlign:  draw.YCenter,
		Handler: text.Plain{Fonts: font.NewCache(liberation.Collection())},
	}
	line := draw.LineStyle{Color: color.Black, Width: vg.Points(1)}

	leftX := diagMargin + boxWidth/2
	rightX := diagWidth - diagMargin - boxWidth/2

	rowY := func(i int) vg.Length {
		return height - diagMargin - boxHeight/2 - vg.Length(i)*(boxHeight+rowGap)
	}

	// Top box: the full dataset.
	box(dc, sty, line, leftX, rowY(0), fmt.Sprintf("Full dataset\nN = %d", d.Total))

	for i := range d.Remaining {
		y := rowY(i + 1)

		// Vertical arrow from the previous surviving box.
		arrow(dc, line, leftX, rowY(i)-boxHeight/2, leftX, y+boxHeight/2)

		box(dc, sty, line, leftX, y, fmt.Sprintf("%s\nN = %d", d.Included[i], d.Remaining[i]))

		// Exclusion branch between the two rows.
		my := (rowY(i) - boxHeight/2 + y + boxHeight/2) / 2
		arrow(dc, line, leftX, my, rightX-boxWidth/2, my)
		box(dc, sty, line, rightX, my, fmt.Sprintf("%s\nN = %d", d.Complement[i], d.Excluded[i]))
	}

	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render: attrition diagram: %w", err)
	}
	defer w.Close()

	png := vgimg.PngCanvas{Canvas: c}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("render: attrition diagram: %w", err)
	}

	return nil
}

// box draws a bordered box centered at (x, y) with up to two lines of text.
func box(dc draw.Canvas, sty text.Style, line draw.LineStyle, x, y vg.Length, label string) {

	x0, x1 := x-boxWidth/2, x+boxWidth/2
	y0, y1 := y-boxHeight/2, y+boxHeight/2

	pts := []vg.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
	dc.FillPolygon(color.White, pts)
	dc.StrokeLines(line, append(pts, pts[0]))

	dc.FillText(sty, vg.Point{X: x, Y: y}, label)
}

// arrow draws a line with a small head at the end point.
func arrow(dc draw.Canvas, line draw.LineStyle, x0, y0, x1, y1 vg.Length) {

	dc.StrokeLines(line, []vg.Point{{X: x0, Y: y0}, {X: x1, Y: y1}})

	h := vg.Points(3)
	if y0 == y1 {
		// horizontal, pointing right
		dc.StrokeLines(line, []vg.Point{{X: x1 - h, Y: y1 + h}, {X: x1, Y: y1}, {X: x1 - h, Y: y1 - h}})
		return
	}
	// vertical, pointing down
	dc.StrokeLines(line, []vg.Point{{X: x1 - h, Y: y1 + h}, {X: x1, Y: y1}, {X: x1 + h, Y: y1 + h}})
}
