// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8090", cfg.GetServerAddr())
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	// Hardware manual values
	assert.Equal(t, 4800, cfg.Serial.BaudRate)
	assert.Equal(t, 7, cfg.Serial.DataBits)
	assert.Equal(t, "2", cfg.Serial.StopBits)
	assert.Equal(t, "none", cfg.Serial.Parity)
	assert.Equal(t, "cr", cfg.Serial.Terminator)
	assert.Equal(t, 60*time.Millisecond, cfg.Serial.CommandDelay)

	assert.Equal(t, 50*time.Millisecond, cfg.Simulator.ReplyDelay)
	assert.Equal(t, "OK", cfg.Simulator.DefaultResponse)

	assert.Equal(t, 30, cfg.Store.RetentionDays)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("SERIAL_CHILLER_SERVER_PORT", "9999")
	t.Setenv("SERIAL_CHILLER_SERIAL_BAUD_RATE", "9600")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, 9600, cfg.Serial.BaudRate)
}

func TestValidate_Rejections(t *testing.T) {
	base := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Serial.DataBits = 9
	assert.Error(t, validate(cfg))

	cfg = base()
	cfg.Serial.StopBits = "3"
	assert.Error(t, validate(cfg))

	cfg = base()
	cfg.Serial.Parity = "mark"
	assert.Error(t, validate(cfg))

	cfg = base()
	cfg.Serial.Terminator = "nul"
	assert.Error(t, validate(cfg))

	cfg = base()
	cfg.Serial.BaudRate = 0
	assert.Error(t, validate(cfg))

	cfg = base()
	cfg.Logging.Level = "loud"
	assert.Error(t, validate(cfg))
}
