package sample

import (
	"math"
	"strconv"
	"strings"
)

// Value is a measured or derived quantity that may be undefined.
// The zero Value is undefined.
type Value struct {
	v  float64
	ok bool
}

// Undefined is the "no valid value" outcome of a failed stage.
var Undefined = Value{}

// Of wraps x. NaN and infinities become Undefined.
func Of(x float64) Value {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return Undefined
	}
	return Value{v: x, ok: true}
}

// Defined reports whether v holds a number.
func (v Value) Defined() bool {
	return v.ok
}

// Float returns the number and whether it is defined.
func (v Value) Float() (float64, bool) {
	return v.v, v.ok
}

// String returns the shortest decimal form of v, using an exponent only for
// very small or very large magnitudes, or "nan" when v is undefined.
func (v Value) String() string {
	if !v.ok {
		return "nan"
	}
	return formatFloat(v.v)
}

// MarshalJSON encodes an undefined value as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return []byte(formatFloat(v.v)), nil
}

func formatFloat(x float64) string {
	if a := math.Abs(x); a != 0 && (a < 1e-4 || a >= 1e16) {
		return strconv.FormatFloat(x, 'e', -1, 64)
	}
	s := strconv.FormatFloat(x, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
