package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/lightsensor/bh1750"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())

	addr, err := cfg.AddressByte()
	require.NoError(t, err)
	assert.Equal(t, byte(bh1750.AddrLow), addr)
	mode, err := cfg.ReadMode()
	require.NoError(t, err)
	assert.Equal(t, bh1750.OneShotHighRes1, mode)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, "lightsensor.yaml", `
adapter: mcp2221
address: h
mode: continuous-lowres
timing: 44
poll:
  interval: 250ms
  count: 10
metrics:
  addr: ":9100"
influx:
  url: http://localhost:8086
  bucket: light
`)
	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, AdapterMCP2221, cfg.Adapter)
	assert.Equal(t, "/dev/i2c-1", cfg.Device, "default kept")
	assert.Equal(t, 44, cfg.Timing)
	assert.Equal(t, 250*time.Millisecond, cfg.Poll.Interval)
	assert.Equal(t, 10, cfg.Poll.Count)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	assert.True(t, cfg.Influx.Enabled())
	assert.Equal(t, "bh1750", cfg.Influx.Measurement)
	addr, err := cfg.AddressByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x5C), addr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	envFile := writeFile(t, ".env", "LIGHTSENSOR_DEVICE=/dev/i2c-7\nINFLUX_TOKEN=secret\n")
	t.Setenv("LIGHTSENSOR_DEVICE", "")
	t.Setenv("INFLUX_TOKEN", "")
	os.Unsetenv("LIGHTSENSOR_DEVICE")
	os.Unsetenv("INFLUX_TOKEN")
	t.Setenv("LIGHTSENSOR_ADAPTER", "nanopi")
	t.Setenv("LIGHTSENSOR_BUS", "0")
	t.Setenv("LIGHTSENSOR_POLL_INTERVAL", "2s")

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, AdapterNanoPi, cfg.Adapter)
	assert.Equal(t, 0, cfg.Bus)
	assert.Equal(t, "/dev/i2c-7", cfg.Device)
	assert.Equal(t, "secret", cfg.Influx.Token)
	assert.Equal(t, 2*time.Second, cfg.Poll.Interval)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "adapter: [unclosed"))
	assert.Error(t, err)

	t.Setenv("LIGHTSENSOR_TIMING", "many")
	_, err = Load("", filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"adapter", func(c *Config) { c.Adapter = "serial" }},
		{"address", func(c *Config) { c.Address = "0x99" }},
		{"mode", func(c *Config) { c.Mode = "sometimes" }},
		{"timing", func(c *Config) { c.Timing = 300 }},
		{"interval", func(c *Config) { c.Poll.Interval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.Address = "0x23"
	addr, err := cfg.AddressByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x23), addr)
}
