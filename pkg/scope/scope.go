// Package scope provides a Fyne widget plotting both probe temperatures
// against time.
package scope

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gotherm/pkg/config"
	"github.com/itohio/gotherm/pkg/sample"
)

var (
	colorT1 = color.RGBA{R: 255, G: 165, B: 0, A: 255} // Orange
	colorT2 = color.RGBA{R: 0, G: 200, B: 80, A: 255}  // Green
)

// Widget displays the temperature series of both probes.
type Widget struct {
	widget.BaseWidget

	names [2]string

	mu   sync.RWMutex
	plot plot
}

// New creates a widget. names label the two traces in the legend.
func New(cfg config.DisplayConfig, names [2]string) *Widget {
	w := &Widget{
		names: names,
		plot:  newPlot(cfg),
	}
	w.ExtendBaseWidget(w)
	return w
}

// Reset clears the series and restores the initial time bounds.
// Must be called on the Fyne thread (fyne.Do).
func (w *Widget) Reset() {
	w.mu.Lock()
	w.plot.reset()
	w.mu.Unlock()

	w.Refresh()
}

// Append adds one sample and redraws. Must be called on the Fyne thread.
func (w *Widget) Append(s sample.Sample) {
	w.mu.Lock()
	w.plot.append(s)
	w.mu.Unlock()

	w.Refresh()
}

// Len returns the number of buffered samples.
func (w *Widget) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.plot.series.Len()
}

// Axis returns the current plot bounds.
func (w *Widget) Axis() sample.Axis {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.plot.axis
}

// CreateRenderer creates the widget renderer.
func (w *Widget) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &renderer{
		scope:   w,
		bg:      bg,
		objects: []fyne.CanvasObject{bg},
	}
}
