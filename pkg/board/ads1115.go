package board

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	pointerConv   = 0x00
	pointerConfig = 0x01

	// ADS1115FullScale is the input range of the ±6.144 V gain setting,
	// the only one covering a 5 V bridge.
	ADS1115FullScale = 6.144
	// DefaultADS1115Address is the address with ADDR tied to ground.
	DefaultADS1115Address = 0x48
)

// ADS1115 reads single-ended conversions from a TI ADS1115 on an I²C bus.
// Every Analog call triggers one single-shot conversion.
type ADS1115 struct {
	busName  string
	addr     uint16
	dataRate int
	vref     float64

	mu        sync.Mutex
	bus       i2c.BusCloser
	dev       *i2c.Dev
	enabled   [4]bool
	connected bool
}

// NewADS1115 creates an ADS1115 board. vref is the bridge supply voltage
// that Analog normalises against.
func NewADS1115(bus string, addr uint16, dataRate int, vref float64) *ADS1115 {
	if addr == 0 {
		addr = DefaultADS1115Address
	}
	if dataRate == 0 {
		dataRate = 128
	}
	return &ADS1115{busName: bus, addr: addr, dataRate: dataRate, vref: vref}
}

// Connect initialises the host drivers and opens the bus.
func (s *ADS1115) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return fmt.Errorf("already connected")
	}
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(s.busName)
	if err != nil {
		return fmt.Errorf("open i2c %s: %w", s.busName, err)
	}

	s.bus = bus
	s.dev = &i2c.Dev{Addr: s.addr, Bus: bus}
	s.connected = true
	return nil
}

// Close closes the bus.
func (s *ADS1115) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}
	s.connected = false
	s.enabled = [4]bool{}
	s.dev = nil
	return s.bus.Close()
}

// IsConnected returns whether the bus is open.
func (s *ADS1115) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// EnableReporting marks a single-ended input (0 to 3) as in use.
func (s *ADS1115) EnableReporting(pin int) error {
	if _, _, err := configForChannel(pin, s.dataRate); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}
	s.enabled[pin] = true
	return nil
}

// Analog converts the input and returns its voltage relative to vref.
func (s *ADS1115) Analog(pin int) (float64, error) {
	msb, lsb, err := configForChannel(pin, s.dataRate)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return 0, ErrNotConnected
	}
	if !s.enabled[pin] {
		return 0, fmt.Errorf("AIN%d: %w", pin, ErrNotReporting)
	}

	if err := s.dev.Tx([]byte{pointerConfig, msb, lsb}, nil); err != nil {
		return 0, fmt.Errorf("write config: %w", err)
	}
	time.Sleep(conversionDelay(s.dataRate))

	readBuf := make([]byte, 2)
	if err := s.dev.Tx([]byte{pointerConv}, readBuf); err != nil {
		return 0, fmt.Errorf("read conv: %w", err)
	}

	return rawToVolts(readBuf) / s.vref, nil
}

// rawToVolts decodes a big-endian conversion register.
func rawToVolts(buf []byte) float64 {
	raw := int16(uint16(buf[0])<<8 | uint16(buf[1]))
	return float64(raw) * ADS1115FullScale / 32768.0
}

// conversionDelay returns the single-shot conversion time plus margin.
func conversionDelay(dataRate int) time.Duration {
	return time.Duration(1000/dataRate+2) * time.Millisecond
}

// configForChannel builds the config register for a single-shot,
// single-ended conversion on the channel.
func configForChannel(channel, dataRate int) (byte, byte, error) {
	if channel < 0 || channel > 3 {
		return 0, 0, fmt.Errorf("invalid channel %d", channel)
	}
	mux := byte(0x4 + channel) // AINx against GND

	var dr byte
	switch dataRate {
	case 8:
		dr = 0x0
	case 16:
		dr = 0x1
	case 32:
		dr = 0x2
	case 64:
		dr = 0x3
	case 128:
		dr = 0x4
	case 250:
		dr = 0x5
	case 475:
		dr = 0x6
	case 860:
		dr = 0x7
	default:
		dr = 0x4
	}

	var cfg uint16 = 0x8000 // OS = 1 (start single conversion)
	cfg |= uint16(mux) << 12
	// PGA bits 000: ±6.144 V
	cfg |= 1 << 8 // single-shot mode
	cfg |= uint16(dr) << 5
	cfg |= 0x3 // comparator disabled
	return byte(cfg >> 8), byte(cfg & 0xFF), nil
}
