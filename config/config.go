// Package config loads test bench settings from YAML files, .env files, and
// TLUL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sarchlab/tlul/clock"
	"github.com/sarchlab/tlul/datarecording"
	"github.com/sarchlab/tlul/tlul"
	"gopkg.in/yaml.v3"
)

// ClockConfig configures the clock and reset generator.
type ClockConfig struct {
	Period        time.Duration `yaml:"period"`
	ResetDuration time.Duration `yaml:"reset_duration"`
}

// BusConfig configures the TL-UL signal layout.
type BusConfig struct {
	Params       tlul.Params       `yaml:"params"`
	HostToDevice tlul.SignalWidths `yaml:"host_to_device"`
	DeviceToHost tlul.SignalWidths `yaml:"device_to_host"`
	WordBits     int               `yaml:"word_bits"`

	// Expected totals, 0 to skip the check.
	HostToDeviceBits int `yaml:"host_to_device_bits"`
	DeviceToHostBits int `yaml:"device_to_host_bits"`
}

// HostConfig configures the handshake controller.
type HostConfig struct {
	SampleEdge            string `yaml:"sample_edge"`
	MaxReadyWaitCycles    uint64 `yaml:"max_ready_wait_cycles"`
	MaxResponseWaitCycles uint64 `yaml:"max_response_wait_cycles"`
	SourceBase            uint32 `yaml:"source_base"`
}

// DeviceConfig configures the memory device model.
type DeviceConfig struct {
	BaseAddress  uint64 `yaml:"base_address"`
	Capacity     uint64 `yaml:"capacity"`
	Latency      int    `yaml:"latency"`
	ReadyLatency int    `yaml:"ready_latency"`
	SinkID       uint32 `yaml:"sink_id"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

// MonitorConfig configures the monitoring server.
type MonitorConfig struct {
	Enabled     bool `yaml:"enabled"`
	Port        int  `yaml:"port"`
	OpenBrowser bool `yaml:"open_browser"`
}

// RecordConfig configures transaction recording.
type RecordConfig struct {
	Enabled                      bool `yaml:"enabled"`
	datarecording.RecorderConfig `yaml:",inline"`
}

// Config holds every setting of a test bench run.
type Config struct {
	Clock   ClockConfig   `yaml:"clock"`
	Bus     BusConfig     `yaml:"bus"`
	Host    HostConfig    `yaml:"host"`
	Device  DeviceConfig  `yaml:"device"`
	Log     LogConfig     `yaml:"log"`
	Monitor MonitorConfig `yaml:"monitor"`
	Record  RecordConfig  `yaml:"record"`
}

// Default returns the settings of a 100 MHz clock with a 50 ns reset driving
// a 32-bit bus.
func Default() Config {
	return Config{
		Clock: ClockConfig{
			Period:        10 * time.Nanosecond,
			ResetDuration: 50 * time.Nanosecond,
		},
		Bus: BusConfig{
			Params:   tlul.DefaultParams(),
			WordBits: 32,
		},
		Host: HostConfig{
			SampleEdge:            "rising",
			MaxReadyWaitCycles:    1000,
			MaxResponseWaitCycles: 1000,
		},
		Device: DeviceConfig{
			Capacity: 64 * 1024,
			Latency:  1,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  25,
			MaxAgeDays: 7,
			MaxBackups: 5,
		},
		Monitor: MonitorConfig{
			Port: 0,
		},
		Record: RecordConfig{
			RecorderConfig: datarecording.RecorderConfig{
				Type: datarecording.TypeSQLite,
			},
		},
	}
}

// LoadEnvFiles loads variables from .env files without overriding variables
// that are already set. Without arguments it loads ./.env if present.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}

		files = []string{".env"}
	}

	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("config: load env files: %w", err)
	}

	return nil
}

// Load reads the YAML file at path on top of the defaults, applies the TLUL_*
// environment overrides, and validates the result. An empty path skips the
// file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		defer f.Close()

		if err := Decode(f, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Decode reads YAML into cfg. Unknown keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: decode: %w", err)
	}

	return nil
}

// LookupFunc looks up an environment variable.
type LookupFunc func(key string) (string, bool)

type envBinding struct {
	key   string
	apply func(value string) error
}

func (c *Config) envBindings() []envBinding {
	return []envBinding{
		{"TLUL_CLOCK_PERIOD", durationVar(&c.Clock.Period)},
		{"TLUL_RESET_DURATION", durationVar(&c.Clock.ResetDuration)},
		{"TLUL_SAMPLE_EDGE", stringVar(&c.Host.SampleEdge)},
		{"TLUL_MAX_READY_WAIT_CYCLES", uintVar(&c.Host.MaxReadyWaitCycles)},
		{"TLUL_MAX_RESPONSE_WAIT_CYCLES", uintVar(&c.Host.MaxResponseWaitCycles)},
		{"TLUL_SOURCE_BASE", uint32Var(&c.Host.SourceBase)},
		{"TLUL_WORD_BITS", intVar(&c.Bus.WordBits)},
		{"TLUL_DEVICE_BASE_ADDRESS", uintVar(&c.Device.BaseAddress)},
		{"TLUL_DEVICE_CAPACITY", uintVar(&c.Device.Capacity)},
		{"TLUL_DEVICE_LATENCY", intVar(&c.Device.Latency)},
		{"TLUL_DEVICE_READY_LATENCY", intVar(&c.Device.ReadyLatency)},
		{"TLUL_LOG_LEVEL", stringVar(&c.Log.Level)},
		{"TLUL_LOG_FILE", stringVar(&c.Log.File)},
		{"TLUL_MONITOR", boolVar(&c.Monitor.Enabled)},
		{"TLUL_MONITOR_PORT", intVar(&c.Monitor.Port)},
		{"TLUL_RECORD", boolVar(&c.Record.Enabled)},
		{"TLUL_RECORD_TYPE", stringVar(&c.Record.Type)},
		{"TLUL_RECORD_PATH", stringVar(&c.Record.Path)},
		{"TLUL_CLICKHOUSE_HOST", stringVar(&c.Record.Host)},
		{"TLUL_CLICKHOUSE_PORT", intVar(&c.Record.Port)},
		{"TLUL_CLICKHOUSE_DATABASE", stringVar(&c.Record.Database)},
		{"TLUL_CLICKHOUSE_USERNAME", stringVar(&c.Record.Username)},
		{"TLUL_CLICKHOUSE_PASSWORD", stringVar(&c.Record.Password)},
	}
}

// ApplyEnv overrides settings from TLUL_* variables.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	for _, b := range c.envBindings() {
		value, ok := lookup(b.key)
		if !ok {
			continue
		}

		if err := b.apply(strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("config: %s: %w", b.key, err)
		}
	}

	return nil
}

func stringVar(p *string) func(string) error {
	return func(v string) error {
		*p = v
		return nil
	}
}

func boolVar(p *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}

		*p = b

		return nil
	}
}

func intVar(p *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}

		*p = n

		return nil
	}
}

func uintVar(p *uint64) func(string) error {
	return func(v string) error {
		n, err := strconv.ParseUint(v, 0, 64)
		if err != nil {
			return err
		}

		*p = n

		return nil
	}
}

func uint32Var(p *uint32) func(string) error {
	return func(v string) error {
		n, err := strconv.ParseUint(v, 0, 32)
		if err != nil {
			return err
		}

		*p = uint32(n)

		return nil
	}
}

func durationVar(p *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}

		*p = d

		return nil
	}
}

// Validate checks that the settings describe a runnable test bench.
func (c Config) Validate() error {
	if c.Clock.Period <= 0 {
		return fmt.Errorf("config: clock period must be positive, got %s",
			c.Clock.Period)
	}

	if c.Clock.ResetDuration < 0 {
		return fmt.Errorf("config: reset duration must not be negative, got %s",
			c.Clock.ResetDuration)
	}

	if _, err := c.SampleEdge(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if c.Device.Latency < 1 {
		return fmt.Errorf("config: device latency must be at least 1, got %d",
			c.Device.Latency)
	}

	if c.Device.ReadyLatency < 0 {
		return fmt.Errorf("config: device ready latency must not be negative, got %d",
			c.Device.ReadyLatency)
	}

	if _, err := c.Layout(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	return nil
}

// SampleEdge returns the clock edge the bus is sampled on.
func (c Config) SampleEdge() (clock.EdgeKind, error) {
	return clock.ParseEdgeKind(c.Host.SampleEdge)
}

// Layout builds the signal layout described by the bus settings.
func (c Config) Layout() (*tlul.Layout, error) {
	b := tlul.MakeLayoutBuilder().
		WithParams(c.Bus.Params).
		WithWordBits(c.Bus.WordBits).
		WithExpectedTotals(c.Bus.HostToDeviceBits, c.Bus.DeviceToHostBits)

	if len(c.Bus.HostToDevice) > 0 {
		b = b.WithHostToDevice(c.Bus.HostToDevice)
	}

	if len(c.Bus.DeviceToHost) > 0 {
		b = b.WithDeviceToHost(c.Bus.DeviceToHost)
	}

	return b.Build()
}
