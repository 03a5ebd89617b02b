package scope

import (
	"github.com/chewxy/math32"

	"github.com/itohio/gotherm/pkg/config"
	"github.com/itohio/gotherm/pkg/sample"
)

const defaultMaxPoints = 1000

// point is a sample coordinate in data units: seconds and °C.
type point struct {
	t, v float64
}

// plot holds the display state of the widget: the full series, the
// decimated copy that is drawn and the axis bounds.
type plot struct {
	series    sample.Series
	axis      sample.Axis
	display   []sample.Sample
	maxPoints int
}

func newPlot(cfg config.DisplayConfig) plot {
	return plot{
		axis:      sample.NewAxis(cfg.TimeSpan, cfg.MinTemp, cfg.MaxTemp),
		display:   make([]sample.Sample, 0, defaultMaxPoints),
		maxPoints: defaultMaxPoints,
	}
}

func (p *plot) reset() {
	p.series.Reset()
	p.axis.Reset()
	p.display = p.display[:0]
}

// append adds s and reports whether the time axis was extended.
func (p *plot) append(s sample.Sample) bool {
	p.series.Append(s)
	extended := p.axis.Extend(s.Seconds())
	p.display = sample.DownsampleSamples(p.display, p.series.Samples(), p.maxPoints)
	return extended
}

// segments splits the trace of one probe into runs of defined values.
// An undefined temperature ends the current run, so the drawn line has a
// gap there instead of bridging it.
func segments(samples []sample.Sample, probe int) [][]point {
	var (
		out [][]point
		cur []point
	)
	for _, s := range samples {
		v, ok := s.Temperatures()[probe].Float()
		if !ok {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, point{t: s.Seconds(), v: v})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// frame maps data coordinates into the pixel rectangle of the plot area.
type frame struct {
	x, y, w, h float32
	axis       sample.Axis
}

// pos returns the pixel position of p. Temperatures outside the Y range are
// clamped to the plot edges.
func (f frame) pos(p point) (float32, float32) {
	xs := float32(f.axis.XMax - f.axis.XMin)
	ys := float32(f.axis.YMax - f.axis.YMin)
	if xs <= 0 {
		xs = 1
	}
	if ys <= 0 {
		ys = 1
	}

	px := f.x + (float32(p.t-f.axis.XMin)/xs)*f.w
	py := f.y + f.h - (float32(p.v-f.axis.YMin)/ys)*f.h

	px = math32.Max(f.x, math32.Min(f.x+f.w, px))
	py = math32.Max(f.y, math32.Min(f.y+f.h, py))
	return px, py
}

// tickStep returns a round step that splits span into at most n intervals.
func tickStep(span float64, n int) float64 {
	if span <= 0 || n <= 0 {
		return 1
	}
	raw := float32(span / float64(n))
	mag := math32.Pow(10, math32.Floor(math32.Log10(raw)))
	for _, m := range []float32{1, 2, 5, 10} {
		if raw <= m*mag {
			return float64(m * mag)
		}
	}
	return float64(10 * mag)
}
