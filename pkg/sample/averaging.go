package sample

// Mean returns the arithmetic mean of the defined values, ignoring the
// undefined ones. The mean of no defined values is Undefined, not zero.
func Mean(values []Value) Value {
	var sum float64
	var n int

	for _, v := range values {
		if x, ok := v.Float(); ok {
			sum += x
			n++
		}
	}

	if n == 0 {
		return Undefined
	}
	return Of(sum / float64(n))
}
