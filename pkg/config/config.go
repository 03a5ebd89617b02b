package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Board kinds understood by the application.
const (
	BoardFirmata = "firmata"
	BoardADS1115 = "ads1115"
	BoardMock    = "mock"
)

// Config represents the application configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Board       BoardConfig       `yaml:"board"`
	Measurement MeasurementConfig `yaml:"measurement"`
	Probes      [2]ProbeConfig    `yaml:"probes"`
	Display     DisplayConfig     `yaml:"display"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Mock        MockConfig        `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Ports            []string      `yaml:"ports"` // Tried in order, first that connects wins
	BaudRate         int           `yaml:"baud_rate"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"` // Wait for the firmware version report
}

// BoardConfig selects and parameterises the analog front end.
type BoardConfig struct {
	Type             string  `yaml:"type"`
	ReferenceVoltage float64 `yaml:"reference_voltage"` // Volts, also feeds the resistance bridge
	SamplingInterval int     `yaml:"sampling_interval"` // Firmata reporting interval in ms (0 = firmware default)
	I2CBus           string  `yaml:"i2c_bus"`
	I2CAddress       int     `yaml:"i2c_address"`
	DataRate         int     `yaml:"data_rate"` // ADS1115 samples per second
}

// MeasurementConfig contains measurement parameters.
type MeasurementConfig struct {
	LogFile           string        `yaml:"log_file"` // Empty disables the log
	Interval          time.Duration `yaml:"interval"`
	Repeat            int           `yaml:"repeat"`             // Reads averaged per probe and tick
	LegacyCalibration bool          `yaml:"legacy_calibration"` // Ignore configured calibration, use LegacyCalibrations
}

// ProbeConfig describes one thermistor probe.
type ProbeConfig struct {
	Name             string      `yaml:"name"`
	Pin              int         `yaml:"pin"`
	BridgeResistance float64     `yaml:"bridge_resistance"` // Ohm
	Calibration      Calibration `yaml:"calibration"`
}

// Calibration holds the coefficients of T = 1/(A*log10(R) + B) - 273.15,
// with R in kOhm and T in degrees Celsius.
type Calibration struct {
	A float64 `yaml:"a"`
	B float64 `yaml:"b"`
}

// DisplayConfig contains the initial plot bounds.
type DisplayConfig struct {
	TimeSpan float64 `yaml:"time_span"` // Initial upper bound of the time axis (s)
	MinTemp  float64 `yaml:"min_temp"`
	MaxTemp  float64 `yaml:"max_temp"`
}

// MQTTConfig enables publishing samples to a broker when Server is set.
type MQTTConfig struct {
	Server   string `yaml:"server"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MockConfig contains mock board configuration.
type MockConfig struct {
	Temperatures [2]float64    `yaml:"temperatures"` // Mean simulated temperature per probe (°C)
	Amplitude    float64       `yaml:"amplitude"`    // Peak deviation (°C)
	Period       time.Duration `yaml:"period"`
	NoiseLevel   float64       `yaml:"noise_level"`  // °C
	FailureRate  float64       `yaml:"failure_rate"` // Probability that a read fails
}

// LegacyCalibrations are the coefficients of the white (T1) and black (T2)
// probes that the instrument historically used regardless of the dialog.
var LegacyCalibrations = [2]Calibration{
	{A: 0.000600, B: 0.00276},
	{A: 0.000581, B: 0.002954},
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Ports:            []string{"/dev/ttyACM0", "/dev/ttyACM1", "/dev/ttyACM2"},
			BaudRate:         57600,
			HandshakeTimeout: 5 * time.Second,
		},
		Board: BoardConfig{
			Type:             BoardFirmata,
			ReferenceVoltage: 5.0,
			SamplingInterval: 0,
			I2CBus:           "1",
			I2CAddress:       0x48,
			DataRate:         128,
		},
		Measurement: MeasurementConfig{
			LogFile:  "./temperatures_plan_solaire.csv",
			Interval: time.Second,
			Repeat:   2,
		},
		Probes: [2]ProbeConfig{
			{Name: "T1", Pin: 0, BridgeResistance: 7490, Calibration: LegacyCalibrations[0]},
			{Name: "T2", Pin: 1, BridgeResistance: 7490, Calibration: LegacyCalibrations[1]},
		},
		Display: DisplayConfig{
			TimeSpan: 10,
			MinTemp:  0,
			MaxTemp:  100,
		},
		MQTT: MQTTConfig{
			ClientID: "gotherm",
			Topic:    "gotherm/samples",
		},
		Mock: MockConfig{
			Temperatures: [2]float64{20, 35},
			Amplitude:    5,
			Period:       2 * time.Minute,
			NoiseLevel:   0.05,
			FailureRate:  0.02,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if len(c.Serial.Ports) == 0 {
		c.Serial.Ports = def.Serial.Ports
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Board.Type == "" {
		c.Board.Type = def.Board.Type
	}
	if c.Board.ReferenceVoltage == 0 {
		c.Board.ReferenceVoltage = def.Board.ReferenceVoltage
	}
	if c.Board.I2CBus == "" {
		c.Board.I2CBus = def.Board.I2CBus
	}
	if c.Board.I2CAddress == 0 {
		c.Board.I2CAddress = def.Board.I2CAddress
	}
	if c.Board.DataRate == 0 {
		c.Board.DataRate = def.Board.DataRate
	}

	if c.Measurement.Interval == 0 {
		c.Measurement.Interval = def.Measurement.Interval
	}
	if c.Measurement.Repeat == 0 {
		c.Measurement.Repeat = def.Measurement.Repeat
	}

	for i := range c.Probes {
		p := &c.Probes[i]
		if p.Name == "" {
			p.Name = def.Probes[i].Name
		}
		if p.BridgeResistance == 0 {
			p.BridgeResistance = def.Probes[i].BridgeResistance
		}
		if p.Calibration == (Calibration{}) {
			p.Calibration = def.Probes[i].Calibration
		}
	}

	if c.Display.TimeSpan == 0 {
		c.Display.TimeSpan = def.Display.TimeSpan
	}
	if c.Display.MinTemp == 0 && c.Display.MaxTemp == 0 {
		c.Display.MinTemp = def.Display.MinTemp
		c.Display.MaxTemp = def.Display.MaxTemp
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = def.MQTT.Topic
	}

	if c.Mock.Period == 0 {
		c.Mock.Period = def.Mock.Period
	}
}

// Validate reports every setting that would make the measurement meaningless.
func (c *Config) Validate() error {
	var errs []error

	switch c.Board.Type {
	case BoardFirmata, BoardADS1115, BoardMock:
	default:
		errs = append(errs, fmt.Errorf("unknown board type %q", c.Board.Type))
	}
	if c.Board.ReferenceVoltage <= 0 {
		errs = append(errs, fmt.Errorf("reference voltage must be positive, got %g", c.Board.ReferenceVoltage))
	}
	if c.Measurement.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %s", c.Measurement.Interval))
	}
	if c.Measurement.Repeat < 0 {
		errs = append(errs, fmt.Errorf("repeat must not be negative, got %d", c.Measurement.Repeat))
	}
	if c.Probes[0].Pin == c.Probes[1].Pin {
		errs = append(errs, fmt.Errorf("probes share pin %d", c.Probes[0].Pin))
	}
	for i, p := range c.Probes {
		if p.Pin < 0 {
			errs = append(errs, fmt.Errorf("probe %d: negative pin %d", i+1, p.Pin))
		}
		if p.BridgeResistance <= 0 {
			errs = append(errs, fmt.Errorf("probe %d: bridge resistance must be positive, got %g", i+1, p.BridgeResistance))
		}
	}
	if c.Display.MaxTemp <= c.Display.MinTemp {
		errs = append(errs, fmt.Errorf("display temperature range [%g, %g] is empty", c.Display.MinTemp, c.Display.MaxTemp))
	}

	return errors.Join(errs...)
}

// Calibrations returns the calibration pair actually applied to each probe.
func (c *Config) Calibrations() [2]Calibration {
	if c.Measurement.LegacyCalibration {
		return LegacyCalibrations
	}
	return [2]Calibration{c.Probes[0].Calibration, c.Probes[1].Calibration}
}

// String formats the pair the way the settings dialog shows it.
func (c Calibration) String() string {
	return fmt.Sprintf("( %s, %s )",
		strconv.FormatFloat(c.A, 'f', -1, 64),
		strconv.FormatFloat(c.B, 'f', -1, 64))
}

// ParseCalibration parses an "(A, B)" pair. Parentheses and surrounding
// blanks are optional.
func ParseCalibration(s string) (Calibration, error) {
	s = strings.NewReplacer("(", "", ")", "").Replace(s)
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Calibration{}, fmt.Errorf("invalid calibration %q: expected 2 comma-separated values, got %d", s, len(parts))
	}

	a, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Calibration{}, fmt.Errorf("invalid calibration coefficient A: %w", err)
	}
	b, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Calibration{}, fmt.Errorf("invalid calibration coefficient B: %w", err)
	}

	return Calibration{A: a, B: b}, nil
}
