package main

import (
	"context"
	"fmt"
	"log"

	"fyne.io/fyne/v2"
	"github.com/itohio/gotherm/pkg/board"
	"github.com/itohio/gotherm/pkg/config"
	"github.com/itohio/gotherm/pkg/meter"
	"github.com/itohio/gotherm/pkg/output"
	"github.com/itohio/gotherm/pkg/output/console"
	"github.com/itohio/gotherm/pkg/output/csvlog"
	"github.com/itohio/gotherm/pkg/output/mqtt"
	"github.com/itohio/gotherm/pkg/sample"
	"github.com/itohio/gotherm/pkg/scope"
)

// appState holds the window application state. It is only touched on the
// Fyne thread.
type appState struct {
	cfg    *config.Config
	window fyne.Window
	scope  *scope.Widget

	cancel context.CancelFunc
	done   chan struct{}
}

// start connects to the board and runs the measurement in the background.
func (s *appState) start() {
	if s.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		session, err := connect(s.cfg)
		if err != nil {
			log.Fatalf("Failed to connect to board: %v", err)
		}
		defer session.Close()

		out, err := newOutputs(s.cfg, &display{scope: s.scope})
		if err != nil {
			log.Fatalf("Failed to create outputs: %v", err)
		}
		defer out.Close()

		if err := session.meter.Run(ctx, s.cfg.Measurement.Interval, out); err != nil && ctx.Err() == nil {
			log.Printf("Measurement stopped: %v", err)
		}
	}()
}

// close stops the measurement and closes the window once every output has
// been flushed.
func (s *appState) close() {
	if s.done == nil {
		s.window.Close()
		return
	}

	s.cancel()
	done := s.done
	go func() {
		<-done
		fyne.Do(s.window.Close)
	}()
}

// session is a connected board and the meter reading it.
type session struct {
	board board.Board
	meter *meter.Meter
}

func (s *session) Close() error {
	if s.board == nil {
		return nil
	}
	return s.board.Close()
}

// connect opens the first board that answers and enables reporting on both
// probe pins.
func connect(cfg *config.Config) (*session, error) {
	newBoard, ports := boardFactory(cfg)

	b, _, err := board.ConnectFirst(ports, newBoard, cfg.Probes[0].Pin, cfg.Probes[1].Pin)
	if err != nil {
		return nil, err
	}

	sampler := meter.NewSampler(b, cfg.Board.ReferenceVoltage, cfg.Measurement.Repeat)
	return &session{
		board: b,
		meter: meter.New(sampler, meter.ProbesFromConfig(cfg)),
	}, nil
}

// boardFactory returns the constructor for the configured board type and
// the candidate ports to try it on.
func boardFactory(cfg *config.Config) (board.Factory, []string) {
	switch cfg.Board.Type {
	case config.BoardMock:
		return func(string) board.Board {
			return board.NewMock(&cfg.Mock, cfg.Probes)
		}, []string{"mock"}
	case config.BoardADS1115:
		return func(bus string) board.Board {
			return board.NewADS1115(bus, uint16(cfg.Board.I2CAddress), cfg.Board.DataRate, cfg.Board.ReferenceVoltage)
		}, []string{cfg.Board.I2CBus}
	default:
		return func(port string) board.Board {
			return board.NewFirmata(port, cfg.Serial.BaudRate, cfg.Serial.HandshakeTimeout, cfg.Board.SamplingInterval)
		}, cfg.Serial.Ports
	}
}

// newOutputs builds the sink chain: the log file, the broker when
// configured, then view. The log comes first so a sample is persisted
// before it is shown.
func newOutputs(cfg *config.Config, view output.Output) (output.Multi, error) {
	out := output.Multi{csvlog.New(cfg.Measurement.LogFile)}

	if cfg.MQTT.Server != "" {
		m, err := mqtt.New(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("failed to connect MQTT output: %w", err)
		}
		fmt.Printf("Publishing samples to %s on %s\n", cfg.MQTT.Server, m.Topic())
		out = append(out, m)
	}

	if view != nil {
		out = append(out, view)
	}
	return out, nil
}

func newConsole(cfg *config.Config) *console.Output {
	return console.New(nil, probeNames(cfg))
}

func probeNames(cfg *config.Config) [2]string {
	return [2]string{cfg.Probes[0].Name, cfg.Probes[1].Name}
}

// preferPort moves port to the front of ports, adding it if missing.
func preferPort(ports []string, port string) []string {
	out := []string{port}
	for _, p := range ports {
		if p != port {
			out = append(out, p)
		}
	}
	return out
}

// display feeds the scope widget from the measurement goroutine. Every call
// waits for the Fyne thread so a tick is drawn before the next one starts.
type display struct {
	scope *scope.Widget
}

var _ output.Output = (*display)(nil)

func (d *display) Reset() error {
	fyne.DoAndWait(d.scope.Reset)
	return nil
}

func (d *display) Publish(s sample.Sample) error {
	fyne.DoAndWait(func() {
		d.scope.Append(s)
	})
	return nil
}

func (d *display) Close() error { return nil }
