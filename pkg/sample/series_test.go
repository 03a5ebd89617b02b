package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeries(t *testing.T) {
	var s Series

	_, ok := s.Last()
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())

	s.Append(Sample{Elapsed: 0, T1: Of(20)})
	s.Append(Sample{Elapsed: time.Second, T2: Of(21)})

	assert.Equal(t, 2, s.Len())
	last, ok := s.Last()
	assert.True(t, ok)
	assert.Equal(t, time.Second, last.Elapsed)
	assert.Equal(t, Of(20), s.Samples()[0].T1)

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Samples())
}

func TestAxis_Extend(t *testing.T) {
	a := NewAxis(10, 0, 100)
	assert.Equal(t, Axis{XMin: 0, XMax: 10, YMin: 0, YMax: 100, span: 10}, a)

	assert.False(t, a.Extend(0))
	assert.False(t, a.Extend(9.99))
	assert.True(t, a.Extend(10))
	assert.Equal(t, 20.0, a.XMax)

	// One doubling per sample, even far beyond the bound
	assert.True(t, a.Extend(100))
	assert.Equal(t, 40.0, a.XMax)

	a.Reset()
	assert.Equal(t, 10.0, a.XMax)
	assert.Equal(t, 0.0, a.XMin)
}

func TestNewAxis_InvalidSpan(t *testing.T) {
	a := NewAxis(0, -10, 50)
	assert.Equal(t, 10.0, a.XMax)
	assert.Equal(t, -10.0, a.YMin)
	assert.Equal(t, 50.0, a.YMax)
}
