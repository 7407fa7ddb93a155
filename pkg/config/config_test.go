package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/slidelink/internal/link"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "slidelink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
remote:
  address: "AA:BB:CC:DD:EE:FF"
  service_uuid: "180f"
  characteristic_uuid: "2a19"
presentations_dir: "/srv/decks"
`

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "random", cfg.Remote.AddressType)
	assert.Equal(t, 3, cfg.Link.ConnectRetries)
	assert.Equal(t, 2*time.Second, cfg.Link.ConnectRetryDelay.Std())
	assert.Equal(t, 2*time.Second, cfg.Link.Cooldown.Std())
	assert.Equal(t, time.Second, cfg.Link.WaitTimeout.Std())
	assert.Equal(t, time.Second, cfg.Debounce.Std())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadMinimal(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "AA:BB:CC:DD:EE:FF", cfg.Remote.Address)
	assert.Equal(t, "/srv/decks", cfg.PresentationsDir)

	// Everything not in the file keeps its default.
	assert.Equal(t, "random", cfg.Remote.AddressType)
	assert.Equal(t, 2*time.Second, cfg.Link.Cooldown.Std())
	assert.Equal(t, time.Second, cfg.Debounce.Std())
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
remote:
  address: "AA:BB:CC:DD:EE:FF"
  address_type: "public"
  service_uuid: "6e400001-b5a3-f393-e0a9-e50e24dcca9e"
  characteristic_uuid: "6e400003-b5a3-f393-e0a9-e50e24dcca9e"
link:
  connect_retries: 5
  connect_retry_delay: "500ms"
  cooldown: "3s"
  wait_timeout: "250ms"
debounce: "750ms"
presentations_dir: "/srv/decks"
log_level: "debug"
`))
	require.NoError(t, err)

	assert.Equal(t, "public", cfg.Remote.AddressType)
	assert.Equal(t, 5, cfg.Link.ConnectRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Link.ConnectRetryDelay.Std())
	assert.Equal(t, 3*time.Second, cfg.Link.Cooldown.Std())
	assert.Equal(t, 250*time.Millisecond, cfg.Link.WaitTimeout.Std())
	assert.Equal(t, 750*time.Millisecond, cfg.Debounce.Std())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidDuration(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
link:
  cooldown: "fast"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing address", func(c *Config) { c.Remote.Address = "" }, "remote.address"},
		{"bad address type", func(c *Config) { c.Remote.AddressType = "static" }, "address type"},
		{"missing service", func(c *Config) { c.Remote.ServiceUUID = "" }, "service_uuid"},
		{"missing characteristic", func(c *Config) { c.Remote.CharacteristicUUID = "" }, "characteristic_uuid"},
		{"missing dir", func(c *Config) { c.PresentationsDir = "" }, "presentations_dir"},
		{"bad log level", func(c *Config) { c.LogLevel = "chatty" }, "log_level"},
		{"zero retries", func(c *Config) { c.Link.ConnectRetries = 0 }, "connect_retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Remote.Address = "AA:BB:CC:DD:EE:FF"
			cfg.Remote.ServiceUUID = "180f"
			cfg.Remote.CharacteristicUUID = "2a19"
			cfg.PresentationsDir = "/srv/decks"
			require.NoError(t, cfg.Validate())

			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSupervisorConfigMapping(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
link:
  connect_retries: 7
  connect_retry_delay: "1s"
`))
	require.NoError(t, err)

	sc := cfg.SupervisorConfig()
	assert.Equal(t, link.Address{MAC: "AA:BB:CC:DD:EE:FF", Type: link.AddrTypeRandom}, sc.Address)
	assert.Equal(t, "180f", sc.ServiceUUID)
	assert.Equal(t, "2a19", sc.CharacteristicUUID)
	assert.Equal(t, 7, sc.ConnectRetries)
	assert.Equal(t, time.Second, sc.ConnectRetryDelay)
	assert.Equal(t, 2*time.Second, sc.Cooldown)
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"

	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestNewLoggerWithFile(t *testing.T) {
	cfg := Default()
	cfg.LogFile = filepath.Join(t.TempDir(), "slidelink.log")

	logger, err := cfg.NewLogger()
	require.NoError(t, err)

	logger.Info("hello")
	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
