package meter

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/itohio/gotherm/pkg/config"
	"github.com/itohio/gotherm/pkg/output"
	"github.com/itohio/gotherm/pkg/sample"
)

// Probe is one thermistor wired into a bridge on an analog pin.
type Probe struct {
	Name             string
	Pin              int
	BridgeResistance float64 // Ohm
	Calibration      config.Calibration
}

// Meter turns the readings of two probes into timestamped temperatures.
// The first call to Next fixes the time origin; it is never reset.
type Meter struct {
	sampler *Sampler
	probes  [2]Probe

	now     func() time.Time
	start   time.Time
	started bool
}

// New creates a Meter reading both probes through the sampler.
func New(s *Sampler, probes [2]Probe) *Meter {
	return &Meter{
		sampler: s,
		probes:  probes,
		now:     time.Now,
	}
}

// ProbesFromConfig returns the probes with the calibration actually applied.
// Every probe whose configured pair differs from the built-in one is
// reported, whichever of the two wins.
func ProbesFromConfig(cfg *config.Config) [2]Probe {
	calibrations := cfg.Calibrations()

	var probes [2]Probe
	for i, p := range cfg.Probes {
		if legacy := config.LegacyCalibrations[i]; p.Calibration != legacy {
			if cfg.Measurement.LegacyCalibration {
				log.Printf("Probe %s: legacy calibration %s overrides configured %s", p.Name, legacy, p.Calibration)
			} else {
				log.Printf("Probe %s: configured calibration %s replaces built-in %s", p.Name, p.Calibration, legacy)
			}
		}
		probes[i] = Probe{
			Name:             p.Name,
			Pin:              p.Pin,
			BridgeResistance: p.BridgeResistance,
			Calibration:      calibrations[i],
		}
	}
	return probes
}

// Probes returns the probes in sample order.
func (m *Meter) Probes() [2]Probe {
	return m.probes
}

// Next measures both probes once. A probe that fails yields an undefined
// temperature without affecting the other.
func (m *Meter) Next() sample.Sample {
	now := m.now()
	if !m.started {
		m.start = now
		m.started = true
	}

	return sample.Sample{
		Elapsed: now.Sub(m.start),
		T1:      m.temperature(m.probes[0]),
		T2:      m.temperature(m.probes[1]),
	}
}

func (m *Meter) temperature(p Probe) sample.Value {
	u := m.sampler.Voltage(p.Pin)
	r := sample.Resistance(u, p.BridgeResistance, m.sampler.ReferenceVoltage())
	return sample.Temperature(r, p.Calibration)
}

// Run resets out, then publishes one sample immediately and one per
// interval until ctx is cancelled. A tick runs to completion before the
// next one starts; ticks missed meanwhile are dropped. Publish errors are
// logged and do not stop the measurement.
func (m *Meter) Run(ctx context.Context, interval time.Duration, out output.Output) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval %s", interval)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := out.Reset(); err != nil {
		return fmt.Errorf("failed to reset outputs: %w", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s := m.Next()
		if err := out.Publish(s); err != nil {
			log.Printf("Failed to publish sample at %ss: %v", sample.Of(s.Seconds()), err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
