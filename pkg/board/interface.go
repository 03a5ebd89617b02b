package board

import "errors"

var (
	// ErrNotConnected is returned by operations on a board that is not connected.
	ErrNotConnected = errors.New("not connected")
	// ErrNotReporting is returned when a pin has not reported a value yet.
	ErrNotReporting = errors.New("pin not reporting")
	// ErrNoBoard is returned when no candidate port accepted a connection.
	ErrNoBoard = errors.New("no board found")
)

// Reader provides the most recent analog value of a pin, normalised to
// [0, 1] of the board reference voltage.
type Reader interface {
	Analog(pin int) (float64, error)
}

// Board defines the interface for analog front ends (real or mocked).
type Board interface {
	Reader
	Connect() error
	Close() error
	EnableReporting(pin int) error
	IsConnected() bool
}

var (
	_ Board = (*Firmata)(nil)
	_ Board = (*ADS1115)(nil)
	_ Board = (*Mock)(nil)
)
