package scope

import (
	"image/color"
	"math"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
)

const (
	marginLeft   = float32(60)
	marginRight  = float32(20)
	marginTop    = float32(30)
	marginBottom = float32(45)

	numHLines = 10
	numVLines = 10
)

var (
	colorGrid  = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	colorLabel = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	colorTitle = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)

// renderer draws the grid, the axis labels, the legend and both traces.
type renderer struct {
	scope *Widget

	bg      *canvas.Rectangle
	objects []fyne.CanvasObject

	lastSize fyne.Size
}

func (r *renderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

func (r *renderer) Layout(size fyne.Size) {
	r.bg.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

func (r *renderer) Refresh() {
	r.scope.mu.RLock()
	samples := r.scope.plot.display
	axis := r.scope.plot.axis
	t1 := segments(samples, 0)
	t2 := segments(samples, 1)
	r.scope.mu.RUnlock()

	r.objects = []fyne.CanvasObject{r.bg}

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	f := frame{
		x:    marginLeft,
		y:    marginTop,
		w:    size.Width - marginLeft - marginRight,
		h:    size.Height - marginTop - marginBottom,
		axis: axis,
	}
	if f.w <= 0 || f.h <= 0 {
		return
	}

	r.drawGrid(f)
	r.drawAxisTitles(f)
	r.drawTrace(f, t1, colorT1)
	r.drawTrace(f, t2, colorT2)
	r.drawLegend(f)
}

func (r *renderer) drawGrid(f frame) {
	a := f.axis

	yStep := tickStep(a.YMax-a.YMin, numHLines)
	for v := math.Ceil(a.YMin/yStep) * yStep; v <= a.YMax+yStep/1e6; v += yStep {
		_, y := f.pos(point{t: a.XMin, v: v})
		r.add(gridLine(f.x, y, f.x+f.w, y))

		text := canvas.NewText(formatTick(v, yStep), colorLabel)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(f.x-5, y-6))
		r.add(text)
	}

	xStep := tickStep(a.XMax-a.XMin, numVLines)
	for t := math.Ceil(a.XMin/xStep) * xStep; t <= a.XMax+xStep/1e6; t += xStep {
		x, _ := f.pos(point{t: t, v: a.YMin})
		r.add(gridLine(x, f.y, x, f.y+f.h))

		text := canvas.NewText(formatTick(t, xStep), colorLabel)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(x-20, f.y+f.h+5))
		r.add(text)
	}
}

func (r *renderer) drawAxisTitles(f frame) {
	xTitle := canvas.NewText("Time [s]", colorTitle)
	xTitle.TextSize = 12
	xTitle.Alignment = fyne.TextAlignCenter
	xTitle.Move(fyne.NewPos(f.x+f.w/2, f.y+f.h+22))
	r.add(xTitle)

	yTitle := canvas.NewText("Temperature [°C]", colorTitle)
	yTitle.TextSize = 12
	yTitle.Alignment = fyne.TextAlignLeading
	yTitle.Move(fyne.NewPos(5, 5))
	r.add(yTitle)
}

// drawTrace draws every run as connected segments; gaps between runs stay empty.
func (r *renderer) drawTrace(f frame, runs [][]point, c color.Color) {
	for _, run := range runs {
		if len(run) == 1 {
			x, y := f.pos(run[0])
			dot := canvas.NewCircle(c)
			dot.Resize(fyne.NewSize(3, 3))
			dot.Move(fyne.NewPos(x-1.5, y-1.5))
			r.add(dot)
			continue
		}
		for i := range len(run) - 1 {
			x1, y1 := f.pos(run[i])
			x2, y2 := f.pos(run[i+1])
			line := canvas.NewLine(c)
			line.Position1 = fyne.NewPos(x1, y1)
			line.Position2 = fyne.NewPos(x2, y2)
			line.StrokeWidth = 1.5
			r.add(line)
		}
	}
}

func (r *renderer) drawLegend(f frame) {
	colors := [2]color.Color{colorT1, colorT2}
	for i, name := range r.scope.names {
		y := f.y + 10 + float32(i)*16

		swatch := canvas.NewLine(colors[i])
		swatch.Position1 = fyne.NewPos(f.x+10, y+7)
		swatch.Position2 = fyne.NewPos(f.x+30, y+7)
		swatch.StrokeWidth = 2
		r.add(swatch)

		text := canvas.NewText(name, colorTitle)
		text.TextSize = 11
		text.Move(fyne.NewPos(f.x+35, y))
		r.add(text)
	}
}

func (r *renderer) add(o fyne.CanvasObject) {
	r.objects = append(r.objects, o)
}

func (r *renderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *renderer) Destroy() {}

func gridLine(x1, y1, x2, y2 float32) *canvas.Line {
	line := canvas.NewLine(colorGrid)
	line.Position1 = fyne.NewPos(x1, y1)
	line.Position2 = fyne.NewPos(x2, y2)
	line.StrokeWidth = 1
	return line
}

// formatTick prints v with as many decimals as the tick step needs.
func formatTick(v, step float64) string {
	decimals := 0
	if step < 1 {
		decimals = int(math.Ceil(-math.Log10(step)))
	}
	if math.Abs(v) < step/1e6 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

var _ fyne.WidgetRenderer = (*renderer)(nil)
