package sample

import (
	"log"
	"math"
	"time"

	"github.com/itohio/gotherm/pkg/config"
)

// KelvinOffset converts absolute temperature to degrees Celsius.
const KelvinOffset = 273.15

// Sample represents one tick of the measurement loop.
type Sample struct {
	Elapsed time.Duration // Time since the loop produced its first sample
	T1      Value         // Probe 1 temperature (°C)
	T2      Value         // Probe 2 temperature (°C)
}

// Seconds returns the elapsed time in seconds.
func (s Sample) Seconds() float64 {
	return s.Elapsed.Seconds()
}

// Temperatures returns both probe temperatures in probe order.
func (s Sample) Temperatures() [2]Value {
	return [2]Value{s.T1, s.T2}
}

// Resistance converts the thermistor voltage u of a bridge fed with uRef
// into the thermistor resistance in kOhm:
//
//	R = rBridge / (uRef/u - 1) * 1e-3
//
// rBridge is in Ohm. The result is Undefined when u is undefined, zero or
// equal to uRef.
func Resistance(u Value, rBridge, uRef float64) Value {
	x, ok := u.Float()
	if !ok {
		log.Printf("Resistance nan: voltage undefined")
		return Undefined
	}
	if x == 0 {
		log.Printf("Resistance nan: zero voltage")
		return Undefined
	}

	ratio := uRef/x - 1
	if ratio == 0 {
		log.Printf("Resistance nan: voltage %gV equals reference", x)
		return Undefined
	}

	r := Of(rBridge / ratio * 1e-3)
	if !r.Defined() {
		log.Printf("Resistance nan: %g / %g overflows", rBridge, ratio)
	}
	return r
}

// Temperature converts a thermistor resistance in kOhm into degrees Celsius:
//
//	T = 1 / (A*log10(R) + B) - 273.15
//
// The result is Undefined when r is undefined or not positive, or when the
// denominator vanishes.
func Temperature(r Value, c config.Calibration) Value {
	x, ok := r.Float()
	if !ok {
		log.Printf("Temperature nan: resistance undefined")
		return Undefined
	}
	if x <= 0 {
		log.Printf("Temperature nan: non-positive resistance %gkOhm", x)
		return Undefined
	}

	den := c.A*math.Log10(x) + c.B
	if den == 0 {
		log.Printf("Temperature nan: calibration %s vanishes at %gkOhm", c, x)
		return Undefined
	}

	t := Of(1/den - KelvinOffset)
	if !t.Defined() {
		log.Printf("Temperature nan: calibration %s overflows at %gkOhm", c, x)
	}
	return t
}
