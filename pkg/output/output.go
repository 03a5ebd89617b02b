package output

import (
	"errors"

	"github.com/itohio/gotherm/pkg/sample"
)

// Output receives the samples of a measurement.
type Output interface {
	// Reset is called once when a measurement starts.
	Reset() error
	// Publish is called once per tick.
	Publish(sample.Sample) error
	Close() error
}

// Multi fans samples out to several outputs.
type Multi []Output

var _ Output = Multi(nil)

// Reset resets every output and joins their errors.
func (m Multi) Reset() error {
	var errs []error
	for _, o := range m {
		errs = append(errs, o.Reset())
	}
	return errors.Join(errs...)
}

// Publish hands s to every output, even when an earlier one fails.
func (m Multi) Publish(s sample.Sample) error {
	var errs []error
	for _, o := range m {
		errs = append(errs, o.Publish(s))
	}
	return errors.Join(errs...)
}

// Close closes every output and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, o := range m {
		errs = append(errs, o.Close())
	}
	return errors.Join(errs...)
}
