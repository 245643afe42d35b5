package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port     int           `env:"TEST_CFG_PORT" envDefault:"8080"`
	Brokers  []string      `env:"TEST_CFG_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	CacheTTL time.Duration `env:"TEST_CFG_CACHE_TTL" envDefault:"5m"`
	Enabled  bool          `env:"TEST_CFG_ENABLED" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.False(t, cfg.Enabled)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TEST_CFG_CACHE_TTL", "30s")
	t.Setenv("TEST_CFG_ENABLED", "true")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.True(t, cfg.Enabled)
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

type requiredConfig struct {
	APIKey string `env:"TEST_CFG_API_KEY,required"`
}

func TestLoad_RequiredField(t *testing.T) {
	var missing requiredConfig
	require.Error(t, Load(&missing))

	t.Setenv("TEST_CFG_API_KEY", "secret-123")
	var present requiredConfig
	require.NoError(t, Load(&present))
	assert.Equal(t, "secret-123", present.APIKey)
}

type validatedConfig struct {
	Driver string `env:"TEST_CFG_DRIVER" envDefault:"postgres"`
}

func (c *validatedConfig) Validate() error {
	if c.Driver != "postgres" && c.Driver != "memory" {
		return errors.New("unknown driver " + c.Driver)
	}
	return nil
}

func TestLoad_RunsValidate(t *testing.T) {
	var ok validatedConfig
	require.NoError(t, Load(&ok))

	t.Setenv("TEST_CFG_DRIVER", "sqlite")
	var bad validatedConfig
	err := Load(&bad)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config: unknown driver sqlite")
}
