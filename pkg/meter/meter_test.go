package meter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/itohio/gotherm/pkg/board"
	"github.com/itohio/gotherm/pkg/config"
	"github.com/itohio/gotherm/pkg/output/csvlog"
	"github.com/itohio/gotherm/pkg/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reading struct {
	v   float64
	err error
}

// fakeReader replays scripted readings per pin; the last one repeats.
type fakeReader struct {
	mu     sync.Mutex
	script map[int][]reading
	reads  map[int]int
}

func newFakeReader(script map[int][]reading) *fakeReader {
	return &fakeReader{script: script, reads: make(map[int]int)}
}

func (f *fakeReader) Analog(pin int) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	seq, ok := f.script[pin]
	if !ok || len(seq) == 0 {
		return 0, board.ErrNotReporting
	}
	i := min(f.reads[pin], len(seq)-1)
	f.reads[pin]++
	return seq[i].v, seq[i].err
}

func (f *fakeReader) Reads(pin int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[pin]
}

var errDropout = errors.New("dropout")

func TestSampler_Voltage(t *testing.T) {
	tests := []struct {
		name    string
		script  []reading
		repeat  int
		want    float64
		defined bool
	}{
		{name: "both reads fail", script: []reading{{err: errDropout}, {err: errDropout}}},
		{name: "second read fails", script: []reading{{v: 0.5}, {err: errDropout}}, want: 2.5, defined: true},
		{name: "first read fails", script: []reading{{err: errDropout}, {v: 0.25}}, want: 1.25, defined: true},
		{name: "mean of two", script: []reading{{v: 0.2}, {v: 0.4}}, want: 1.5, defined: true},
		{name: "non-finite reading", script: []reading{{v: math.NaN()}, {v: math.NaN()}}},
		{name: "zero is a reading", script: []reading{{v: 0}}, want: 0, defined: true},
		{name: "four reads", script: []reading{{v: 0.1}, {err: errDropout}, {v: 0.3}, {v: 0.2}}, repeat: 4, want: 1.0, defined: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSampler(newFakeReader(map[int][]reading{0: tt.script}), 5, tt.repeat)
			got := s.Voltage(0)
			require.Equal(t, tt.defined, got.Defined())
			if tt.defined {
				x, _ := got.Float()
				assert.InDelta(t, tt.want, x, 1e-12)
			}
		})
	}
}

func TestSampler_ExactSingleSuccess(t *testing.T) {
	s := NewSampler(newFakeReader(map[int][]reading{3: {{v: 0.4321}, {err: errDropout}}}), 5, 2)
	x, ok := s.Voltage(3).Float()
	require.True(t, ok)
	assert.Equal(t, 5*0.4321, x)
}

func TestSampler_DefaultRepeat(t *testing.T) {
	r := newFakeReader(map[int][]reading{0: {{v: 0.5}}})
	s := NewSampler(r, 5, 0)

	s.Voltage(0)
	assert.Equal(t, DefaultRepeat, r.Reads(0))
	assert.Equal(t, 5.0, s.ReferenceVoltage())
}

func testProbes() [2]Probe {
	return ProbesFromConfig(config.Default())
}

func newTestMeter(r board.Reader) (*Meter, *time.Time) {
	m := New(NewSampler(r, 5, 2), testProbes())
	clock := time.Unix(5000, 0)
	m.now = func() time.Time { return clock }
	return m, &clock
}

func TestMeter_Next(t *testing.T) {
	r := newFakeReader(map[int][]reading{
		0: {{v: 0.5}},
		1: {{v: 1.0}}, // Saturated at the reference voltage
	})
	m, _ := newTestMeter(r)

	s := m.Next()
	assert.Equal(t, time.Duration(0), s.Elapsed)

	t1, ok := s.T1.Float()
	require.True(t, ok)
	assert.InDelta(t, 1/(0.0006*math.Log10(7.49)+0.00276)-273.15, t1, 1e-9)
	assert.InDelta(t, 31.2928, t1, 1e-4)
	assert.False(t, s.T2.Defined())
}

func TestMeter_IndependentFailures(t *testing.T) {
	r := newFakeReader(map[int][]reading{
		0: {{err: errDropout}},
		1: {{v: 0.5}},
	})
	m, _ := newTestMeter(r)

	s := m.Next()
	assert.False(t, s.T1.Defined())
	t2, ok := s.T2.Float()
	require.True(t, ok)
	assert.InDelta(t, 1/(0.000581*math.Log10(7.49)+0.002954)-273.15, t2, 1e-9)
}

func TestMeter_ElapsedBaseline(t *testing.T) {
	m, clock := newTestMeter(newFakeReader(map[int][]reading{0: {{v: 0.5}}, 1: {{v: 0.5}}}))

	// Time before the first sample does not count
	*clock = clock.Add(time.Hour)
	assert.Equal(t, time.Duration(0), m.Next().Elapsed)

	*clock = clock.Add(1500 * time.Millisecond)
	assert.Equal(t, 1500*time.Millisecond, m.Next().Elapsed)

	*clock = clock.Add(time.Second)
	assert.Equal(t, 2500*time.Millisecond, m.Next().Elapsed)
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev, flags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prev)
		log.SetFlags(flags)
	})
	return &buf
}

func TestProbesFromConfig_ReportsCalibrationDivergence(t *testing.T) {
	buf := captureLog(t)

	ProbesFromConfig(config.Default())
	assert.Empty(t, buf.String(), "built-in pairs need no notice")

	cfg := config.Default()
	cfg.Probes[1].Calibration = config.Calibration{A: 0.001, B: 0.002}
	ProbesFromConfig(cfg)
	assert.Equal(t, "Probe T2: configured calibration ( 0.001, 0.002 ) replaces built-in ( 0.000581, 0.002954 )\n", buf.String())

	buf.Reset()
	cfg.Measurement.LegacyCalibration = true
	ProbesFromConfig(cfg)
	assert.Equal(t, "Probe T2: legacy calibration ( 0.000581, 0.002954 ) overrides configured ( 0.001, 0.002 )\n", buf.String())
}

func TestProbesFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Probes[0].Calibration = config.Calibration{A: 0.001, B: 0.002}
	cfg.Probes[1].BridgeResistance = 10000

	probes := ProbesFromConfig(cfg)
	assert.Equal(t, config.Calibration{A: 0.001, B: 0.002}, probes[0].Calibration)
	assert.Equal(t, 10000.0, probes[1].BridgeResistance)
	assert.Equal(t, 1, probes[1].Pin)
	assert.Equal(t, "T1", probes[0].Name)

	cfg.Measurement.LegacyCalibration = true
	probes = ProbesFromConfig(cfg)
	assert.Equal(t, config.LegacyCalibrations[0], probes[0].Calibration)
	assert.Equal(t, config.LegacyCalibrations[1], probes[1].Calibration)
}

type recorder struct {
	mu       sync.Mutex
	resets   int
	samples  []sample.Sample
	resetErr error
	pubErr   error
}

func (r *recorder) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets++
	return r.resetErr
}

func (r *recorder) Publish(s sample.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
	return r.pubErr
}

func (r *recorder) Close() error { return nil }

func (r *recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

func TestMeter_Run(t *testing.T) {
	m := New(NewSampler(newFakeReader(map[int][]reading{0: {{v: 0.5}}, 1: {{v: 0.6}}}), 5, 2), testProbes())
	out := &recorder{pubErr: errors.New("broker down")}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, 5*time.Millisecond, out) }()

	require.Eventually(t, func() bool { return out.Len() >= 3 }, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}

	out.mu.Lock()
	defer out.mu.Unlock()
	assert.Equal(t, 1, out.resets)
	assert.Equal(t, time.Duration(0), out.samples[0].Elapsed)
	for i := 1; i < len(out.samples); i++ {
		assert.GreaterOrEqual(t, out.samples[i].Elapsed, out.samples[i-1].Elapsed)
	}
}

func TestMeter_RunErrors(t *testing.T) {
	m := New(NewSampler(newFakeReader(nil), 5, 2), testProbes())

	assert.Error(t, m.Run(context.Background(), 0, &recorder{}))

	failure := errors.New("read-only file system")
	err := m.Run(context.Background(), time.Millisecond, &recorder{resetErr: failure})
	assert.ErrorIs(t, err, failure)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := &recorder{}
	assert.ErrorIs(t, m.Run(ctx, time.Millisecond, out), context.Canceled)
	assert.Equal(t, 0, out.resets)
}

func TestMeter_LogScenario(t *testing.T) {
	name := filepath.Join(t.TempDir(), "temperatures.csv")
	logFile := csvlog.New(name)
	m, clock := newTestMeter(newFakeReader(map[int][]reading{0: {{v: 0.5}}, 1: {{v: 1.0}}}))

	require.NoError(t, logFile.Reset())
	for range 3 {
		require.NoError(t, logFile.Publish(m.Next()))
		*clock = clock.Add(time.Second)
	}

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, csvlog.Header, lines[0])
	for i, line := range lines[1:] {
		assert.True(t, strings.HasPrefix(line, fmt.Sprintf("%d.0, 31.2928", i)), line)
		assert.True(t, strings.HasSuffix(line, ", nan"), line)
	}
}
