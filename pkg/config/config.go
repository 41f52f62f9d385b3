package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/itohio/tensile/pkg/calibration"
	"github.com/itohio/tensile/pkg/units"
)

// Config represents the application configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Console     ConsoleConfig     `yaml:"console"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Measurement MeasurementConfig `yaml:"measurement"`
	Sweep       SweepConfig       `yaml:"sweep"`
	Companion   CompanionConfig   `yaml:"companion"`
	Mock        MockConfig        `yaml:"mock"`
	Log         LogConfig         `yaml:"log"`
}

// SerialConfig describes the HX711 bridge that streams raw counts.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// ConsoleConfig describes where readings go and commands come from.
// An empty port means standard input/output.
type ConsoleConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// CalibrationConfig contains the calibration points and their unit.
type CalibrationConfig struct {
	Unit   string              `yaml:"unit"`
	Points []calibration.Point `yaml:"points"`
}

// MeasurementConfig contains measurement cycle parameters.
type MeasurementConfig struct {
	Samples      int           `yaml:"samples"`       // Raw samples averaged per reading
	Period       time.Duration `yaml:"period"`        // One reading per period while measuring
	Format       string        `yaml:"format"`        // Initial output format: csv or json
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // Max wait for one raw sample
	RetryDelay   time.Duration `yaml:"retry_delay"`   // Wait before retrying an unavailable sensor
	MaxRetries   int           `yaml:"max_retries"`   // 0 = retry until cancelled
	StartupDelay time.Duration `yaml:"startup_delay"` // Pause after the diagnostic sweep
}

// SweepConfig controls the startup raw-to-value table.
type SweepConfig struct {
	Enabled bool  `yaml:"enabled"`
	Start   int64 `yaml:"start"`
	Stop    int64 `yaml:"stop"`
	Step    int64 `yaml:"step"`
}

// CompanionConfig contains host companion settings.
type CompanionConfig struct {
	Port            string        `yaml:"port"`
	BaudRate        int           `yaml:"baud_rate"`
	TestsDirectory  string        `yaml:"tests_directory"`
	ExportDirectory string        `yaml:"export_directory"`
	Listen          string        `yaml:"listen"`
	Technician      string        `yaml:"technician"`
	WindowSeconds   float64       `yaml:"window_seconds"`
	StartupWait     time.Duration `yaml:"startup_wait"`  // Device prints its sweep after reset
	CommandDelay    time.Duration `yaml:"command_delay"` // Gap between consecutive commands
}

// MockConfig contains mock load-cell configuration.
type MockConfig struct {
	Zero            int64         `yaml:"zero"`              // Raw count with no load
	CountsPerSecond float64       `yaml:"counts_per_second"` // Ramp rate while pulling
	BreakAfter      time.Duration `yaml:"break_after"`       // Pull duration before the specimen breaks
	Period          time.Duration `yaml:"period"`            // Time between pulls
	NoiseCounts     float64       `yaml:"noise_counts"`      // Noise amplitude (counts)
	SampleRate      time.Duration `yaml:"sample_rate"`       // Sample rate
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
		},
		Console: ConsoleConfig{
			Port:     "", // stdio
			BaudRate: 115200,
		},
		Calibration: CalibrationConfig{
			Unit: "kN",
			Points: []calibration.Point{
				{Raw: 12697, Value: 0},
				{Raw: 81470, Value: 0.994},
				{Raw: 420690, Value: 4.940},
				{Raw: 609031, Value: 7.362},
				{Raw: 875551, Value: 10.490},
				{Raw: 1086675, Value: 12.684},
				{Raw: 1245437, Value: 14.723},
				{Raw: 1564460, Value: 18.404},
				{Raw: 1855791, Value: 21.717},
				{Raw: 2202545, Value: 25.766},
			},
		},
		Measurement: MeasurementConfig{
			Samples:      5,
			Period:       500 * time.Millisecond,
			Format:       "csv",
			ReadTimeout:  time.Second,
			RetryDelay:   100 * time.Millisecond,
			MaxRetries:   0,
			StartupDelay: 5 * time.Second,
		},
		Sweep: SweepConfig{
			Enabled: true,
			Start:   0,
			Stop:    7000,
			Step:    20,
		},
		Companion: CompanionConfig{
			Port:            "/dev/ttyUSB0",
			BaudRate:        115200,
			TestsDirectory:  "./Tests",
			ExportDirectory: "./exports",
			Listen:          "127.0.0.1:8765",
			WindowSeconds:   60,
			StartupWait:     3 * time.Second,
			CommandDelay:    300 * time.Millisecond,
		},
		Mock: MockConfig{
			Zero:            12697,
			CountsPerSecond: 150000,
			BreakAfter:      10 * time.Second,
			Period:          20 * time.Second,
			NoiseCounts:     200,
			SampleRate:      100 * time.Millisecond, // HX711 at 10 SPS
		},
		Log: LogConfig{
			Level: "info",
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
		return nil, errors.Wrap(err, "failed to read config file")
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	return nil
}

// Table builds the calibration table. Points may be listed in any order.
func (c *Config) Table() (*calibration.Table, error) {
	table, err := calibration.FromPoints(c.Calibration.Points)
	if err != nil {
		return nil, errors.Wrap(err, "invalid calibration")
	}
	return table, nil
}

// Unit returns the parsed calibration unit.
func (c *Config) Unit() (units.Unit, error) {
	return units.Parse(c.Calibration.Unit)
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := c.Table(); err != nil {
		return err
	}
	if _, err := c.Unit(); err != nil {
		return errors.Wrap(err, "invalid calibration unit")
	}
	switch c.Measurement.Format {
	case "csv", "json", "structured":
	default:
		return errors.Errorf("invalid measurement format %q", c.Measurement.Format)
	}
	if c.Sweep.Enabled && c.Sweep.Step <= 0 {
		return errors.Errorf("invalid sweep step %d", c.Sweep.Step)
	}
	if c.Measurement.MaxRetries < 0 {
		return errors.Errorf("invalid max_retries %d", c.Measurement.MaxRetries)
	}
	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Console.BaudRate == 0 {
		c.Console.BaudRate = def.Console.BaudRate
	}

	if len(c.Calibration.Points) == 0 {
		c.Calibration.Points = def.Calibration.Points
	}

	if c.Measurement.Samples <= 0 {
		c.Measurement.Samples = def.Measurement.Samples
	}
	if c.Measurement.Period == 0 {
		c.Measurement.Period = def.Measurement.Period
	}
	if c.Measurement.Format == "" {
		c.Measurement.Format = def.Measurement.Format
	}
	if c.Measurement.ReadTimeout == 0 {
		c.Measurement.ReadTimeout = def.Measurement.ReadTimeout
	}
	if c.Measurement.RetryDelay == 0 {
		c.Measurement.RetryDelay = def.Measurement.RetryDelay
	}

	if c.Sweep.Step == 0 {
		c.Sweep.Step = def.Sweep.Step
	}

	if c.Companion.BaudRate == 0 {
		c.Companion.BaudRate = def.Companion.BaudRate
	}
	if c.Companion.TestsDirectory == "" {
		c.Companion.TestsDirectory = def.Companion.TestsDirectory
	}
	if c.Companion.ExportDirectory == "" {
		c.Companion.ExportDirectory = def.Companion.ExportDirectory
	}
	if c.Companion.Listen == "" {
		c.Companion.Listen = def.Companion.Listen
	}
	if c.Companion.WindowSeconds == 0 {
		c.Companion.WindowSeconds = def.Companion.WindowSeconds
	}

	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
	if c.Mock.Period == 0 {
		c.Mock.Period = def.Mock.Period
	}
	if c.Mock.BreakAfter == 0 {
		c.Mock.BreakAfter = def.Mock.BreakAfter
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}
