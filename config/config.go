// Package config loads the CLI configuration from a YAML file, .env files and
// LIGHTSENSOR_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/lightsensor/bh1750"
)

const envPrefix = "LIGHTSENSOR_"

// Supported bus backends.
const (
	AdapterGeneric = "generic"
	AdapterMCP2221 = "mcp2221"
	AdapterNanoPi  = "nanopi"
	AdapterMock    = "mock"
)

// Config holds the CLI settings. Bus is the gobot bus number, -1 selects the
// adaptor default. Speed is the bus clock in Hz, 0 leaves it unchanged.
type Config struct {
	Adapter string `yaml:"adapter"`
	Device  string `yaml:"device"`
	Bus     int    `yaml:"bus"`
	Address string `yaml:"address"`
	Speed   int    `yaml:"speed"`
	Mode    string `yaml:"mode"`
	Timing  int    `yaml:"timing"`

	Poll    PollConfig    `yaml:"poll"`
	Metrics MetricsConfig `yaml:"metrics"`
	Influx  InfluxConfig  `yaml:"influx"`
}

type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
	Count    int           `yaml:"count"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type InfluxConfig struct {
	URL         string `yaml:"url"`
	Token       string `yaml:"token"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"`
}

// Enabled reports whether readings should be written to InfluxDB.
func (c InfluxConfig) Enabled() bool {
	return c.URL != "" && c.Bucket != ""
}

func Default() *Config {
	return &Config{
		Adapter: AdapterGeneric,
		Device:  "/dev/i2c-1",
		Bus:     -1,
		Address: "l",
		Mode:    bh1750.OneShotHighRes1.String(),
		Poll: PollConfig{
			Interval: time.Second,
		},
		Influx: InfluxConfig{
			Measurement: "bh1750",
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path skips the file. Variables from envFiles are loaded into the
// process environment first; missing .env files are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("could not parse config file %s: %w", path, err)
		}
	}
	if err := loadEnvFiles(envFiles...); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		err := godotenv.Load(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("could not load env file %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Adapter = getEnv(envPrefix+"ADAPTER", c.Adapter)
	c.Device = getEnv(envPrefix+"DEVICE", c.Device)
	c.Address = getEnv(envPrefix+"ADDRESS", c.Address)
	c.Mode = getEnv(envPrefix+"MODE", c.Mode)
	c.Metrics.Addr = getEnv(envPrefix+"METRICS_ADDR", c.Metrics.Addr)
	c.Influx.URL = getEnv("INFLUX_URL", c.Influx.URL)
	c.Influx.Token = getEnv("INFLUX_TOKEN", c.Influx.Token)
	c.Influx.Org = getEnv("INFLUX_ORG", c.Influx.Org)
	c.Influx.Bucket = getEnv("INFLUX_BUCKET", c.Influx.Bucket)

	var err error
	if c.Bus, err = getEnvInt(envPrefix+"BUS", c.Bus); err != nil {
		return err
	}
	if c.Speed, err = getEnvInt(envPrefix+"SPEED", c.Speed); err != nil {
		return err
	}
	if c.Timing, err = getEnvInt(envPrefix+"TIMING", c.Timing); err != nil {
		return err
	}
	if v, ok := os.LookupEnv(envPrefix + "POLL_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sPOLL_INTERVAL %q: %w", envPrefix, v, err)
		}
		c.Poll.Interval = d
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

// AddressByte resolves the configured address: "l"/"low", "h"/"high" or a
// numeric 7-bit address such as 0x23.
func (c *Config) AddressByte() (byte, error) {
	switch strings.ToLower(strings.TrimSpace(c.Address)) {
	case "", "l", "low":
		return bh1750.AddrLow, nil
	case "h", "high":
		return bh1750.AddrHigh, nil
	}
	n, err := strconv.ParseUint(c.Address, 0, 7)
	if err != nil {
		return 0, fmt.Errorf("invalid device address %q: %w", c.Address, err)
	}
	return byte(n), nil
}

func (c *Config) ReadMode() (bh1750.Mode, error) {
	return bh1750.ParseMode(c.Mode)
}

func (c *Config) Validate() error {
	switch c.Adapter {
	case AdapterGeneric, AdapterMCP2221, AdapterNanoPi, AdapterMock:
	default:
		return fmt.Errorf("unknown adapter %q", c.Adapter)
	}
	if _, err := c.AddressByte(); err != nil {
		return err
	}
	if _, err := c.ReadMode(); err != nil {
		return err
	}
	if c.Timing != 0 {
		if _, _, err := bh1750.EncodeTiming(c.Timing); err != nil {
			return err
		}
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.Poll.Interval)
	}
	return nil
}
