// Package console prints samples as styled text lines, for headless runs.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/itohio/gotherm/pkg/output"
	"github.com/itohio/gotherm/pkg/sample"
)

// Output writes one line per sample.
type Output struct {
	w     io.Writer
	names [2]string

	header    lipgloss.Style
	label     lipgloss.Style
	value     lipgloss.Style
	undefined lipgloss.Style
}

var _ output.Output = (*Output)(nil)

// New creates a console output writing to w, or stdout when w is nil.
// names label the two probes.
func New(w io.Writer, names [2]string) *Output {
	if w == nil {
		w = os.Stdout
	}
	for i, n := range names {
		if n == "" {
			names[i] = fmt.Sprintf("T%d", i+1)
		}
	}

	r := lipgloss.NewRenderer(w)
	return &Output{
		w:         w,
		names:     names,
		header:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("245")),
		label:     r.NewStyle().Foreground(lipgloss.Color("239")),
		value:     r.NewStyle().Foreground(lipgloss.Color("78")),
		undefined: r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
}

// Reset prints the column header.
func (o *Output) Reset() error {
	line := fmt.Sprintf("%10s  %10s  %10s", "time [s]", o.names[0]+" [°C]", o.names[1]+" [°C]")
	_, err := fmt.Fprintln(o.w, o.header.Render(line))
	return err
}

// Publish prints s.
func (o *Output) Publish(s sample.Sample) error {
	_, err := fmt.Fprintf(o.w, "%s  %s  %s\n",
		o.label.Render(fmt.Sprintf("%10s", sample.Of(s.Seconds()))),
		o.render(s.T1),
		o.render(s.T2),
	)
	return err
}

func (o *Output) render(v sample.Value) string {
	text := fmt.Sprintf("%10s", v)
	if !v.Defined() {
		return o.undefined.Render(text)
	}
	return o.value.Render(text)
}

func (o *Output) Close() error { return nil }
