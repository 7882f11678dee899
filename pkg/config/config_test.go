package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port    int           `env:"TEST_CFG_PORT" envDefault:"8080"`
	Driver  string        `env:"TEST_CFG_DRIVER" envDefault:"local"`
	Timeout time.Duration `env:"TEST_CFG_TIMEOUT" envDefault:"2s"`
	Origins []string      `env:"TEST_CFG_ORIGINS" envSeparator:","`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "local", cfg.Driver)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Empty(t, cfg.Origins)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_ORIGINS", "http://a.test,http://b.test")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Origins)
}

func TestLoadFrom_IgnoresProcessEnv(t *testing.T) {
	t.Setenv("TEST_CFG_DRIVER", "gcs")

	var cfg testConfig
	require.NoError(t, LoadFrom(&cfg, map[string]string{"TEST_CFG_TIMEOUT": "500ms"}))

	assert.Equal(t, "local", cfg.Driver)
	assert.Equal(t, 500*time.Millisecond, cfg.Timeout)
}

func TestLoad_InvalidValue(t *testing.T) {
	var cfg testConfig
	err := LoadFrom(&cfg, map[string]string{"TEST_CFG_PORT": "not-a-number"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
