package main

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/gotherm/pkg/board"
	"github.com/itohio/gotherm/pkg/config"
)

const settingsMessage = `Probe 1 on analog input A%d, probe 2 on A%d.
Calibration: T = 1/(A*log10(R) + B) - 273.15, T [°C], R [kOhm]`

// settingsForm is the text content of the settings dialog.
type settingsForm struct {
	LogFile      string
	TimeStep     string
	Bridge1      string
	Bridge2      string
	Calibration1 string
	Calibration2 string
	Port         string
}

func formFromConfig(cfg *config.Config) settingsForm {
	f := settingsForm{
		LogFile:      cfg.Measurement.LogFile,
		TimeStep:     strconv.FormatFloat(cfg.Measurement.Interval.Seconds(), 'f', -1, 64),
		Bridge1:      strconv.FormatFloat(cfg.Probes[0].BridgeResistance, 'f', -1, 64),
		Bridge2:      strconv.FormatFloat(cfg.Probes[1].BridgeResistance, 'f', -1, 64),
		Calibration1: cfg.Probes[0].Calibration.String(),
		Calibration2: cfg.Probes[1].Calibration.String(),
	}
	if len(cfg.Serial.Ports) > 0 {
		f.Port = cfg.Serial.Ports[0]
	}
	return f
}

// apply parses the form into cfg. cfg is left untouched unless every field
// parses and the result validates.
func (f settingsForm) apply(cfg *config.Config) error {
	c := *cfg
	var errs []error

	if step, err := parseTimeStep(f.TimeStep); err != nil {
		errs = append(errs, err)
	} else {
		c.Measurement.Interval = step
	}

	for i, text := range [2]string{f.Bridge1, f.Bridge2} {
		r, err := parseResistance(text)
		if err != nil {
			errs = append(errs, fmt.Errorf("bridge resistance %d: %w", i+1, err))
			continue
		}
		c.Probes[i].BridgeResistance = r
	}

	for i, text := range [2]string{f.Calibration1, f.Calibration2} {
		cal, err := config.ParseCalibration(text)
		if err != nil {
			errs = append(errs, fmt.Errorf("calibration %d: %w", i+1, err))
			continue
		}
		c.Probes[i].Calibration = cal
	}

	c.Measurement.LogFile = f.LogFile
	if f.Port != "" {
		c.Serial.Ports = preferPort(c.Serial.Ports, f.Port)
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	*cfg = c
	return nil
}

func parseTimeStep(s string) (time.Duration, error) {
	step, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid time step %q: %w", s, err)
	}
	if step <= 0 {
		return 0, fmt.Errorf("time step must be positive, got %g", step)
	}
	return time.Duration(step * float64(time.Second)), nil
}

func parseResistance(s string) (float64, error) {
	r, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid resistance %q: %w", s, err)
	}
	if r <= 0 {
		return 0, fmt.Errorf("resistance must be positive, got %g", r)
	}
	return r, nil
}

// portOptions lists the configured ports followed by the detected ones.
func portOptions(configured []string, detected []board.Port) []string {
	options := slices.Clone(configured)
	for _, p := range detected {
		if !slices.Contains(options, p.Name) {
			options = append(options, p.Name)
		}
	}
	return options
}

// showSettingsDialog shows the settings form. onDone runs after the form is
// confirmed with valid values or cancelled; cancelling keeps cfg unchanged.
func showSettingsDialog(state *appState, onDone func()) {
	showSettingsForm(state, formFromConfig(state.cfg), onDone)
}

// showSettingsForm shows the dialog prefilled with f.
func showSettingsForm(state *appState, f settingsForm, onDone func()) {
	cfg := state.cfg

	logEntry := newEntry(f.LogFile, nil)
	stepEntry := newEntry(f.TimeStep, func(s string) error {
		_, err := parseTimeStep(s)
		return err
	})
	resistanceValidator := func(s string) error {
		_, err := parseResistance(s)
		return err
	}
	bridge1Entry := newEntry(f.Bridge1, resistanceValidator)
	bridge2Entry := newEntry(f.Bridge2, resistanceValidator)
	calibrationValidator := func(s string) error {
		_, err := config.ParseCalibration(s)
		return err
	}
	calibration1Entry := newEntry(f.Calibration1, calibrationValidator)
	calibration2Entry := newEntry(f.Calibration2, calibrationValidator)

	message := widget.NewLabel(fmt.Sprintf(settingsMessage, cfg.Probes[0].Pin, cfg.Probes[1].Pin))

	items := []*widget.FormItem{
		widget.NewFormItem("", message),
		widget.NewFormItem("Log file", logEntry),
		widget.NewFormItem("Time step [s]", stepEntry),
		widget.NewFormItem("Bridge resistance 1 [Ω]", bridge1Entry),
		widget.NewFormItem("Bridge resistance 2 [Ω]", bridge2Entry),
		widget.NewFormItem("Calibration probe 1 (A, B)", calibration1Entry),
		widget.NewFormItem("Calibration probe 2 (A, B)", calibration2Entry),
	}

	var portSelect *widget.Select
	if cfg.Board.Type == config.BoardFirmata {
		detected, err := board.Ports()
		if err != nil {
			fmt.Printf("Failed to list serial ports: %v\n", err)
		}
		portSelect = widget.NewSelect(portOptions(cfg.Serial.Ports, detected), nil)
		if f.Port != "" {
			portSelect.SetSelected(f.Port)
		}
		items = append(items, widget.NewFormItem("Serial port", portSelect))
	}

	d := dialog.NewForm("Temperature measurement settings", "Start", "Cancel", items, func(confirmed bool) {
		if !confirmed {
			onDone()
			return
		}

		submitted := settingsForm{
			LogFile:      logEntry.Text,
			TimeStep:     stepEntry.Text,
			Bridge1:      bridge1Entry.Text,
			Bridge2:      bridge2Entry.Text,
			Calibration1: calibration1Entry.Text,
			Calibration2: calibration2Entry.Text,
		}
		if portSelect != nil {
			submitted.Port = portSelect.Selected
		}

		if err := submitted.apply(cfg); err != nil {
			e := dialog.NewError(err, state.window)
			e.SetOnClosed(func() { showSettingsForm(state, submitted, onDone) })
			e.Show()
			return
		}
		onDone()
	}, state.window)
	d.Resize(fyne.NewSize(560, 420))
	d.Show()
}

func newEntry(text string, validator fyne.StringValidator) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(text)
	e.Validator = validator
	return e
}
