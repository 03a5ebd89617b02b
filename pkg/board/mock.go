package board

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/itohio/gotherm/pkg/config"
)

// Mock simulates a board wired to two thermistor bridges for testing and
// development. Readings follow a slow sine around the configured
// temperatures and fail at random with the configured rate.
type Mock struct {
	cfg    *config.MockConfig
	probes [2]config.ProbeConfig

	mu        sync.RWMutex
	rng       *rand.Rand
	now       func() time.Time
	startTime time.Time
	reporting map[int]bool
	connected bool
}

// NewMock creates a new mocked board instance.
func NewMock(cfg *config.MockConfig, probes [2]config.ProbeConfig) *Mock {
	if cfg == nil {
		cfg = &config.MockConfig{
			Temperatures: [2]float64{20, 35},
			Amplitude:    5,
			Period:       2 * time.Minute,
			NoiseLevel:   0.05,
		}
	}

	return &Mock{
		cfg:       cfg,
		probes:    probes,
		rng:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x7468)),
		now:       time.Now,
		reporting: make(map[int]bool),
	}
}

// Connect simulates connecting to the board.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	m.connected = true
	m.startTime = m.now()

	return nil
}

// Close stops the mocked board.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connected = false
	clear(m.reporting)

	return nil
}

// IsConnected returns whether the board is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// EnableReporting starts simulating the pin. Only probe pins are wired.
func (m *Mock) EnableReporting(pin int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return ErrNotConnected
	}
	if m.probeIndex(pin) < 0 {
		return fmt.Errorf("no probe wired to A%d", pin)
	}

	m.reporting[pin] = true
	return nil
}

// Analog returns the simulated bridge voltage of the pin relative to the
// reference voltage.
func (m *Mock) Analog(pin int) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return 0, ErrNotConnected
	}
	if !m.reporting[pin] {
		return 0, fmt.Errorf("A%d: %w", pin, ErrNotReporting)
	}
	if m.cfg.FailureRate > 0 && m.rng.Float64() < m.cfg.FailureRate {
		return 0, fmt.Errorf("A%d: simulated dropout: %w", pin, ErrNotReporting)
	}

	i := m.probeIndex(pin)
	temp := m.temperature(i, m.now().Sub(m.startTime))

	return math.Round(bridgeRatio(temp, m.probes[i])*1e4) / 1e4, nil
}

// temperature returns the simulated temperature of probe i after elapsed.
func (m *Mock) temperature(i int, elapsed time.Duration) float64 {
	temp := m.cfg.Temperatures[i]
	if m.cfg.Period > 0 {
		// Probes drift in opposite directions
		phase := 2 * math.Pi * elapsed.Seconds() / m.cfg.Period.Seconds()
		temp += m.cfg.Amplitude * math.Sin(phase+float64(i)*math.Pi)
	}
	if m.cfg.NoiseLevel > 0 {
		temp += m.cfg.NoiseLevel * m.rng.NormFloat64()
	}
	return temp
}

func (m *Mock) probeIndex(pin int) int {
	for i, p := range m.probes {
		if p.Pin == pin {
			return i
		}
	}
	return -1
}

// bridgeRatio inverts the calibration and bridge formulas: it returns
// U/U_ref for a thermistor at temp (°C) in series with the bridge resistor.
func bridgeRatio(temp float64, probe config.ProbeConfig) float64 {
	c := probe.Calibration
	r := math.Pow(10, (1/(temp+273.15)-c.B)/c.A) // kOhm
	return r / (r + probe.BridgeResistance*1e-3)
}
