package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "shipboard.yaml", "app:\n  port: 3000\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:3000", cfg.Addr())
	assert.Equal(t, "Shipwrecked Users", cfg.App.Title)
	assert.Equal(t, "https://shipwrecked.hackclub.com", cfg.Upstream.BaseURL)
	assert.Equal(t, "/api/users", cfg.Upstream.UsersPath)
	assert.Equal(t, 30*time.Second, cfg.UpstreamTimeout())
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout())
	assert.Equal(t, 75*time.Second, cfg.WriteTimeout())
	assert.Equal(t, 60*time.Second, cfg.IdleTimeout())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_FileValues(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.yaml", `
app:
  host: 127.0.0.1
  port: 8080
upstream:
  baseURL: http://localhost:9999
  usersPath: /v2/users
  timeoutSec: 5
server:
  headers:
    add:
      X-Frame-Options: DENY
    remove:
      - Server
logging:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.Equal(t, "http://localhost:9999", cfg.Upstream.BaseURL)
	assert.Equal(t, "/v2/users", cfg.Upstream.UsersPath)
	assert.Equal(t, 5*time.Second, cfg.UpstreamTimeout())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, []string{"Server"}, cfg.Server.Headers.Remove)
	// viper folds map keys to lower case; header names are canonicalised later.
	assert.Equal(t, "DENY", cfg.Server.Headers.Add["x-frame-options"])
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "shipboard.yaml", "upstream:\n  baseURL: http://from-file\n")

	t.Setenv("SHIPBOARD_UPSTREAM_BASEURL", "http://from-env")
	t.Setenv("SHIPBOARD_APP_PORT", "4000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env", cfg.Upstream.BaseURL)
	assert.Equal(t, 4000, cfg.App.Port)
}

func TestLoad_EnvConfigMerged(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.yaml", "app:\n  port: 3100\nlogging:\n  level: warn\n")
	extra := writeFile(t, dir, "extra.yaml", "logging:\n  level: error\n")

	t.Setenv("SHIPBOARD_CONFIG", extra)

	cfg, err := Load(base)
	require.NoError(t, err)
	assert.Equal(t, 3100, cfg.App.Port)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	t.Run("bad yaml", func(t *testing.T) {
		path := writeFile(t, dir, "bad.yaml", "app: [port\n")
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad port", func(t *testing.T) {
		path := writeFile(t, dir, "port.yaml", "app:\n  port: 70000\n")
		_, err := Load(path)
		assert.ErrorContains(t, err, "app.port")
	})

	t.Run("negative timeout", func(t *testing.T) {
		path := writeFile(t, dir, "timeout.yaml", "upstream:\n  timeoutSec: -1\n")
		_, err := Load(path)
		assert.ErrorContains(t, err, "timeoutSec")
	})
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file is ignored", func(t *testing.T) {
		assert.NoError(t, loadDotEnv(filepath.Join(dir, ".env")))
	})

	t.Run("exports without overriding", func(t *testing.T) {
		path := writeFile(t, dir, "test.env", "SHIPBOARD_TEST_DOTENV_A=from-file\nSHIPBOARD_TEST_DOTENV_B=from-file\n")
		t.Setenv("SHIPBOARD_TEST_DOTENV_B", "preset")
		t.Cleanup(func() { os.Unsetenv("SHIPBOARD_TEST_DOTENV_A") })

		require.NoError(t, loadDotEnv(path))
		assert.Equal(t, "from-file", os.Getenv("SHIPBOARD_TEST_DOTENV_A"))
		assert.Equal(t, "preset", os.Getenv("SHIPBOARD_TEST_DOTENV_B"))
	})
}
