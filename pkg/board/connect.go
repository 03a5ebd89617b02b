package board

import (
	"errors"
	"fmt"
	"log"
)

// Factory builds an unconnected board for a candidate port.
type Factory func(port string) Board

// ConnectFirst tries the ports in order and returns the first board that
// connects and accepts reporting on every pin. The error wraps ErrNoBoard
// and the failure of every attempt.
func ConnectFirst(ports []string, newBoard Factory, pins ...int) (Board, string, error) {
	if len(ports) == 0 {
		return nil, "", fmt.Errorf("%w: no candidate ports", ErrNoBoard)
	}

	var errs []error
	for _, port := range ports {
		fmt.Println("Connecting to board on port " + port)

		b := newBoard(port)
		if err := connect(b, pins); err != nil {
			log.Printf("Failed to connect to board on port %s: %v", port, err)
			errs = append(errs, fmt.Errorf("%s: %w", port, err))
			continue
		}

		fmt.Println("Connected to board on port " + port)
		return b, port, nil
	}

	return nil, "", fmt.Errorf("%w: %w", ErrNoBoard, errors.Join(errs...))
}

func connect(b Board, pins []int) error {
	if err := b.Connect(); err != nil {
		return err
	}
	for _, pin := range pins {
		if err := b.EnableReporting(pin); err != nil {
			b.Close()
			return err
		}
	}
	return nil
}
