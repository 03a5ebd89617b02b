package meter

import (
	"log"

	"github.com/itohio/gotherm/pkg/board"
	"github.com/itohio/gotherm/pkg/sample"
)

// DefaultRepeat is the number of reads averaged per probe and tick.
const DefaultRepeat = 2

// Sampler averages repeated analog reads of one pin into a voltage.
type Sampler struct {
	reader board.Reader
	uRef   float64
	repeat int
}

// NewSampler creates a sampler scaling readings by the reference voltage
// uRef. A non-positive repeat uses DefaultRepeat.
func NewSampler(r board.Reader, uRef float64, repeat int) *Sampler {
	if repeat <= 0 {
		repeat = DefaultRepeat
	}
	return &Sampler{reader: r, uRef: uRef, repeat: repeat}
}

// ReferenceVoltage returns the voltage readings are scaled by.
func (s *Sampler) ReferenceVoltage() float64 {
	return s.uRef
}

// Voltage reads the pin repeat times and returns the mean of the successful
// reads. A failed read is logged and left out; if every read fails the
// voltage is undefined.
func (s *Sampler) Voltage(pin int) sample.Value {
	readings := make([]sample.Value, 0, s.repeat)

	for range s.repeat {
		v, err := s.reader.Analog(pin)
		if err != nil {
			log.Printf("Analog nan on A%d: %v", pin, err)
			readings = append(readings, sample.Undefined)
			continue
		}

		u := sample.Of(s.uRef * v)
		if !u.Defined() {
			log.Printf("Analog nan on A%d: non-finite reading %v", pin, v)
		}
		readings = append(readings, u)
	}

	return sample.Mean(readings)
}
