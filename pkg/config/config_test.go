package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port      int    `env:"TEST_CFG_PORT" envDefault:"8080"`
	StoreName string `env:"TEST_CFG_STORE_NAME" envDefault:"Beasty Baker"`
	Debug     bool   `env:"TEST_CFG_DEBUG" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "Beasty Baker", cfg.StoreName)
	assert.False(t, cfg.Debug)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_DEBUG", "true")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.Debug)
}

func TestLoad_DotenvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TEST_CFG_DOTENV_NAME=Crumbs\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TEST_CFG_DOTENV_NAME") })

	var cfg struct {
		Name string `env:"TEST_CFG_DOTENV_NAME"`
	}
	require.NoError(t, Load(&cfg, path))
	assert.Equal(t, "Crumbs", cfg.Name)
}

func TestLoad_EnvironmentOverridesDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TEST_CFG_PORT=7000\n"), 0o600))
	t.Setenv("TEST_CFG_PORT", "7100")

	var cfg testConfig
	require.NoError(t, Load(&cfg, path))
	assert.Equal(t, 7100, cfg.Port)
}

func TestLoad_MissingDotenvIgnored(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg, filepath.Join(t.TempDir(), "absent.env")))
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	var cfg struct {
		Secret string `env:"TEST_CFG_SECRET_KEY,required"`
	}
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "not-a-number")

	var cfg testConfig
	require.Error(t, Load(&cfg))
}
