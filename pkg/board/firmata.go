package board

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the StandardFirmata baud rate.
	DefaultBaudRate = 57600
	// DefaultHandshakeTimeout bounds the wait for the firmware version report.
	// Most boards reset when the port opens and need a couple of seconds to boot.
	DefaultHandshakeTimeout = 5 * time.Second

	analogMax  = 1023 // 10-bit ADC
	maxPins    = 16   // Analog messages carry the pin in 4 bits
	maxSysex   = 256
	sysexQuery = 0x79 // REPORT_FIRMWARE
)

// Firmata protocol command bytes.
const (
	digitalMessage   = 0x90
	analogMessage    = 0xE0
	reportAnalog     = 0xC0
	reportVersion    = 0xF9
	startSysex       = 0xF0
	endSysex         = 0xF7
	samplingInterval = 0x7A
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{Name: name, Description: name})
	}

	return result, nil
}

// Opener opens a byte stream to a board.
type Opener func(port string, baudRate int) (io.ReadWriteCloser, error)

// OpenSerial opens a serial port with 8N1 framing.
func OpenSerial(port string, baudRate int) (io.ReadWriteCloser, error) {
	return serial.Open(port, &serial.Mode{BaudRate: baudRate})
}

// Firmata talks to a board running StandardFirmata.
// A reader goroutine decodes the stream and keeps the latest value of every
// reporting analog pin.
type Firmata struct {
	port             string
	baudRate         int
	handshake        time.Duration
	samplingInterval int
	open             Opener

	mu        sync.RWMutex
	link      *link
	analog    [maxPins]uint16
	reported  [maxPins]bool
	major     byte
	minor     byte
	firmware  string
	connected bool
}

// link is one open connection. Its reader only updates the board while the
// link is current, so a reader left over from a closed connection cannot
// leak frames into the next one.
type link struct {
	conn      io.ReadWriteCloser
	done      chan struct{}
	versionCh chan struct{}
	version   sync.Once
}

// NewFirmata creates a Firmata board on the given port. A zero baud rate
// uses DefaultBaudRate; a zero handshake uses DefaultHandshakeTimeout and a
// negative one skips the handshake. A positive samplingMs changes the
// analog reporting interval of the firmware.
func NewFirmata(port string, baudRate int, handshake time.Duration, samplingMs int) *Firmata {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if handshake == 0 {
		handshake = DefaultHandshakeTimeout
	}

	return &Firmata{
		port:             port,
		baudRate:         baudRate,
		handshake:        handshake,
		samplingInterval: samplingMs,
		open:             OpenSerial,
	}
}

// WithOpener replaces the transport, e.g. to run over a pipe.
func (d *Firmata) WithOpener(open Opener) *Firmata {
	d.open = open
	return d
}

// Port returns the device path of the board.
func (d *Firmata) Port() string {
	return d.port
}

// Connect opens the port, starts decoding and waits for the version report.
func (d *Firmata) Connect() error {
	d.mu.Lock()
	if d.connected || d.link != nil {
		d.mu.Unlock()
		return fmt.Errorf("already connected")
	}

	conn, err := d.open(d.port, d.baudRate)
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	l := &link{
		conn:      conn,
		done:      make(chan struct{}),
		versionCh: make(chan struct{}),
	}
	d.link = l
	d.reported = [maxPins]bool{}
	d.mu.Unlock()

	go d.readMessages(l)

	// The reader needs the lock to store values, so wait without holding it
	if d.handshake > 0 {
		if err := d.write([]byte{reportVersion}); err != nil {
			d.Close()
			return fmt.Errorf("failed to query firmware version: %w", err)
		}
		select {
		case <-l.versionCh:
		case <-time.After(d.handshake):
			d.Close()
			return fmt.Errorf("no firmata version report from %s within %s", d.port, d.handshake)
		}
	}

	if d.samplingInterval > 0 {
		ms := d.samplingInterval
		msg := []byte{startSysex, samplingInterval, byte(ms & 0x7F), byte((ms >> 7) & 0x7F), endSysex}
		if err := d.write(msg); err != nil {
			d.Close()
			return fmt.Errorf("failed to set sampling interval: %w", err)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.link != l {
		return fmt.Errorf("connection to %s closed during handshake", d.port)
	}
	d.connected = true

	return nil
}

// Close closes the connection and stops the reader.
func (d *Firmata) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	l := d.link
	if l == nil {
		return nil
	}

	close(l.done)
	err := l.conn.Close()
	d.link = nil
	d.connected = false
	d.reported = [maxPins]bool{}

	if err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", d.port, err)
	}
	return nil
}

// IsConnected returns whether the board is currently connected.
func (d *Firmata) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Version returns the protocol version and firmware name reported by the board.
func (d *Firmata) Version() (major, minor byte, firmware string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.major, d.minor, d.firmware
}

// EnableReporting asks the firmware to stream the analog pin continuously.
func (d *Firmata) EnableReporting(pin int) error {
	if pin < 0 || pin >= maxPins {
		return fmt.Errorf("invalid analog pin %d", pin)
	}
	if !d.IsConnected() {
		return ErrNotConnected
	}
	if err := d.write([]byte{reportAnalog | byte(pin), 1}); err != nil {
		return fmt.Errorf("failed to enable reporting on A%d: %w", pin, err)
	}
	return nil
}

// Analog returns the latest reported value of the pin in [0, 1], rounded
// to 4 decimals.
func (d *Firmata) Analog(pin int) (float64, error) {
	if pin < 0 || pin >= maxPins {
		return 0, fmt.Errorf("invalid analog pin %d", pin)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return 0, ErrNotConnected
	}
	if !d.reported[pin] {
		return 0, fmt.Errorf("A%d: %w", pin, ErrNotReporting)
	}

	return math.Round(float64(d.analog[pin])/analogMax*1e4) / 1e4, nil
}

func (d *Firmata) write(msg []byte) error {
	d.mu.RLock()
	l := d.link
	d.mu.RUnlock()

	if l == nil {
		return ErrNotConnected
	}
	_, err := l.conn.Write(msg)
	return err
}

// readMessages decodes the serial stream until the connection closes.
func (d *Firmata) readMessages(l *link) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in readMessages: %v", r)
		}
	}()

	var dec decoder
	r := bufio.NewReader(l.conn)
	for {
		b, err := r.ReadByte()
		if err != nil {
			select {
			case <-l.done:
			default:
				if !errors.Is(err, io.EOF) {
					log.Printf("Error reading from serial port %s: %v", d.port, err)
				}
			}
			return
		}

		if msg, ok := dec.feed(b); ok {
			d.handle(l, msg)
		}
	}
}

// handle applies one decoded message to the board state. Messages from a
// link that is no longer current are dropped.
func (d *Firmata) handle(l *link, msg message) {
	switch {
	case msg.command&0xF0 == analogMessage:
		pin := msg.command & 0x0F
		d.mu.Lock()
		if d.link == l {
			d.analog[pin] = uint16(msg.data[0]) | uint16(msg.data[1])<<7
			d.reported[pin] = true
		}
		d.mu.Unlock()

	case msg.command == reportVersion:
		d.setVersion(l, msg.data[0], msg.data[1], "")

	case msg.command == startSysex && len(msg.data) >= 3 && msg.data[0] == sysexQuery:
		d.setVersion(l, msg.data[1], msg.data[2], decodeString(msg.data[3:]))
	}
}

func (d *Firmata) setVersion(l *link, major, minor byte, firmware string) {
	d.mu.Lock()
	current := d.link == l
	if current {
		d.major, d.minor = major, minor
		if firmware != "" {
			d.firmware = firmware
		}
	}
	d.mu.Unlock()

	if current {
		l.version.Do(func() { close(l.versionCh) })
	}
}

// decodeString decodes a sysex string sent as pairs of 7-bit bytes.
func decodeString(data []byte) string {
	buf := make([]byte, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		buf = append(buf, data[i]|data[i+1]<<7)
	}
	return string(buf)
}

// message is one decoded Firmata message. For sysex, command is startSysex
// and data holds the bytes between the start and end markers.
type message struct {
	command byte
	data    []byte
}

// decoder splits a Firmata byte stream into messages.
type decoder struct {
	command byte
	need    int
	buf     []byte
	sysex   bool
}

// feed consumes one byte and returns a message when one is complete.
// Unsupported commands are skipped along with their data bytes.
func (p *decoder) feed(b byte) (message, bool) {
	if p.sysex {
		switch {
		case b == endSysex:
			p.sysex = false
			return message{command: startSysex, data: append([]byte(nil), p.buf...)}, true
		case b&0x80 != 0:
			// A command byte inside sysex means the frame was truncated
			p.sysex = false
		case len(p.buf) < maxSysex:
			p.buf = append(p.buf, b)
			return message{}, false
		default:
			return message{}, false
		}
	}

	if b&0x80 != 0 {
		p.buf = p.buf[:0]
		p.command = b
		switch {
		case b == startSysex:
			p.sysex = true
			p.need = 0
		case b == reportVersion, b&0xF0 == analogMessage, b&0xF0 == digitalMessage:
			p.need = 2
		default:
			p.need = 0
		}
		return message{}, false
	}

	if p.need == 0 {
		return message{}, false
	}

	p.buf = append(p.buf, b)
	if len(p.buf) < p.need {
		return message{}, false
	}

	msg := message{command: p.command, data: append([]byte(nil), p.buf...)}
	p.buf = p.buf[:0]
	p.need = 0
	return msg, true
}
