package board

import (
	"math"
	"testing"
	"time"

	"github.com/itohio/gotherm/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMock(mockCfg config.MockConfig) (*Mock, *time.Time) {
	probes := config.Default().Probes
	m := NewMock(&mockCfg, probes)
	clock := time.Unix(1000, 0)
	m.now = func() time.Time { return clock }
	return m, &clock
}

func TestMock_ConnectClose(t *testing.T) {
	m, _ := newTestMock(config.MockConfig{})

	assert.False(t, m.IsConnected())
	require.NoError(t, m.Connect())
	assert.True(t, m.IsConnected())
	assert.Error(t, m.Connect())

	require.NoError(t, m.Close())
	assert.False(t, m.IsConnected())

	_, err := m.Analog(0)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestMock_Reporting(t *testing.T) {
	m, _ := newTestMock(config.MockConfig{Temperatures: [2]float64{20, 20}})

	assert.ErrorIs(t, m.EnableReporting(0), ErrNotConnected)
	require.NoError(t, m.Connect())

	_, err := m.Analog(0)
	assert.ErrorIs(t, err, ErrNotReporting)

	assert.Error(t, m.EnableReporting(5), "no probe on A5")
	require.NoError(t, m.EnableReporting(0))

	v, err := m.Analog(0)
	require.NoError(t, err)
	assert.Greater(t, v, 0.0)
	assert.Less(t, v, 1.0)
}

func TestMock_InvertsConversion(t *testing.T) {
	probe := config.Default().Probes[0]

	for _, temp := range []float64{-10, 0, 19.8, 31.29, 60, 95} {
		ratio := bridgeRatio(temp, probe)
		require.Greater(t, ratio, 0.0)
		require.Less(t, ratio, 1.0)

		// Forward chain: U -> R (kOhm) -> T
		r := probe.BridgeResistance / (1/ratio - 1) * 1e-3
		got := 1/(probe.Calibration.A*math.Log10(r)+probe.Calibration.B) - 273.15
		assert.InDelta(t, temp, got, 1e-6)
	}
}

func TestMock_Temperature(t *testing.T) {
	m, clock := newTestMock(config.MockConfig{
		Temperatures: [2]float64{20, 40},
		Amplitude:    5,
		Period:       4 * time.Second,
	})
	require.NoError(t, m.Connect())

	assert.InDelta(t, 20, m.temperature(0, 0), 1e-9)
	assert.InDelta(t, 25, m.temperature(0, time.Second), 1e-9)
	assert.InDelta(t, 35, m.temperature(1, time.Second), 1e-9)

	require.NoError(t, m.EnableReporting(0))
	*clock = clock.Add(time.Second)
	v, err := m.Analog(0)
	require.NoError(t, err)
	assert.InDelta(t, bridgeRatio(25, m.probes[0]), v, 1e-4)
}

func TestMock_FailureRate(t *testing.T) {
	m, _ := newTestMock(config.MockConfig{Temperatures: [2]float64{20, 20}, FailureRate: 1})
	require.NoError(t, m.Connect())
	require.NoError(t, m.EnableReporting(1))

	for range 10 {
		_, err := m.Analog(1)
		assert.ErrorIs(t, err, ErrNotReporting)
	}
}
