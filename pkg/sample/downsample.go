package sample

// DownsampleSamples downsamples a slice of samples to a maximum number of points.
// Uses simple decimation to reduce the number of points for display.
// Destination-based: reuses dst if it has sufficient capacity, otherwise allocates new.
// The last sample is always kept so the plotted line reaches the newest value.
func DownsampleSamples(dst []Sample, samples []Sample, maxPoints int) []Sample {
	if maxPoints <= 0 || len(samples) <= maxPoints {
		if cap(dst) >= len(samples) {
			dst = dst[:len(samples)]
			copy(dst, samples)
			return dst
		}
		result := make([]Sample, len(samples))
		copy(result, samples)
		return result
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]Sample, 0, maxPoints)
	}

	// Decimate the first len-1 samples into maxPoints-1 slots, then append the newest
	step := float64(len(samples)-1) / float64(maxPoints-1)
	for i := range maxPoints - 1 {
		dst = append(dst, samples[int(float64(i)*step)])
	}
	dst = append(dst, samples[len(samples)-1])

	return dst
}
