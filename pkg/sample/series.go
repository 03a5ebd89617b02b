package sample

// Series is an append-only buffer of samples feeding a plot.
// Only its owner resets it, when a measurement starts.
type Series struct {
	samples []Sample
}

// Append adds s at the end of the series.
func (s *Series) Append(x Sample) {
	s.samples = append(s.samples, x)
}

// Reset empties the series, keeping its storage.
func (s *Series) Reset() {
	clear(s.samples)
	s.samples = s.samples[:0]
}

// Len returns the number of samples.
func (s *Series) Len() int {
	return len(s.samples)
}

// Samples returns the samples ordered first to last. The slice is shared
// with the series and must not be modified.
func (s *Series) Samples() []Sample {
	return s.samples
}

// Last returns the most recent sample.
func (s *Series) Last() (Sample, bool) {
	if len(s.samples) == 0 {
		return Sample{}, false
	}
	return s.samples[len(s.samples)-1], true
}

// Axis holds plot bounds: time in seconds on X, temperature on Y.
type Axis struct {
	XMin, XMax float64
	YMin, YMax float64

	span float64
}

// NewAxis returns bounds [0, span] x [yMin, yMax]. A non-positive span
// falls back to 10 s.
func NewAxis(span, yMin, yMax float64) Axis {
	if span <= 0 {
		span = 10
	}
	return Axis{XMin: 0, XMax: span, YMin: yMin, YMax: yMax, span: span}
}

// Extend doubles the upper time bound when t reaches it and reports
// whether the bounds changed.
func (a *Axis) Extend(t float64) bool {
	if t < a.XMax {
		return false
	}
	a.XMax *= 2
	return true
}

// Reset restores the initial time bounds.
func (a *Axis) Reset() {
	a.XMin = 0
	a.XMax = a.span
}
