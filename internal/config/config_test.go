package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/corey/shodiff/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "https://api.shodan.io", cfg.Shodan.BaseURL)
	assert.Equal(t, "SHODAN_API_TOKEN", cfg.Shodan.TokenEnv)
	assert.Equal(t, 30*time.Second, cfg.Shodan.Timeout)
	assert.Equal(t, 4, cfg.Shodan.Concurrency)
	assert.Equal(t, DriverBolt, cfg.Store.Driver)
	assert.Equal(t, "", cfg.Store.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesAndKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
shodan:
  timeout: 5s
  concurrency: 8
store:
  driver: sqlite
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Shodan.Timeout)
	assert.Equal(t, 8, cfg.Shodan.Concurrency)
	assert.Equal(t, "https://api.shodan.io", cfg.Shodan.BaseURL, "unset keys keep defaults")
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("_SHODIFF_TEST_DIR", "/var/lib/shodiff")
	path := writeConfig(t, `
store:
  path: ${_SHODIFF_TEST_DIR}/cache.db
log:
  dir: $_SHODIFF_TEST_DIR/log
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/shodiff/cache.db", cfg.Store.Path)
	assert.Equal(t, "/var/lib/shodiff/log", cfg.Log.Dir)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"driver":      "store:\n  driver: redis\n",
		"concurrency": "shodan:\n  concurrency: 0\n",
		"level":       "log:\n  level: loud\n",
		"token env":   "shodan:\n  token_env: \"\"\n",
		"syntax":      "shodan: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestAPIKey(t *testing.T) {
	cfg := Default()
	cfg.Shodan.TokenEnv = "_SHODIFF_TEST_TOKEN"

	t.Setenv("_SHODIFF_TEST_TOKEN", "")
	_, err := cfg.APIKey()
	require.ErrorIs(t, err, ports.ErrMissingCredential)
	assert.Contains(t, err.Error(), "_SHODIFF_TEST_TOKEN")

	t.Setenv("_SHODIFF_TEST_TOKEN", " abc123 ")
	key, err := cfg.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "abc123", key)
}
