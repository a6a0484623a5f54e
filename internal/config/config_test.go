package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "7001", cfg.TCPPort)
	assert.Equal(t, "7002", cfg.HTTPPort)
	assert.Equal(t, BackendFile, cfg.Backend)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, 30*time.Second, cfg.Refresh)
	assert.Equal(t, language.English, cfg.Tag)
	assert.Nil(t, cfg.Key)
	assert.False(t, cfg.Debug())
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "celerix.yaml", `
data_dir: /var/lib/celerix
backend: sqlite
page_size: 25
locale: de
log_level: debug
log_format: json
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/celerix", cfg.DataDir)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, filepath.Join("/var/lib/celerix", "celerix.db"), cfg.SQLitePath)
	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, language.German, cfg.Tag)
	assert.True(t, cfg.Debug())
	assert.Equal(t, path, cfg.Source)
}

func TestLoad_JSONC(t *testing.T) {
	path := writeFile(t, "celerix.jsonc", `{
  // local development
  "http_port": "8080",
  "disable_tls": true,
  "refresh_interval": "5s", // trailing comma is fine
}`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.True(t, cfg.DisableTLS)
	assert.Equal(t, 5*time.Second, cfg.Refresh)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "celerix.yml", "port: \"9000\"\nbackend: memory\n")
	cfg, err := Load(path, map[string]string{
		"CELERIX_PORT":        "9100",
		"CELERIX_DISABLE_TLS": "true",
		"CELERIX_PAGE_SIZE":   "50",
		"CELERIX_MASTER_KEY":  strings.Repeat("ab", 32),
	})
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.TCPPort)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.True(t, cfg.DisableTLS)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Len(t, cfg.Key, 32)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"backend", map[string]string{"CELERIX_BACKEND": "postgres"}},
		{"page size", map[string]string{"CELERIX_PAGE_SIZE": "-1"}},
		{"page size not a number", map[string]string{"CELERIX_PAGE_SIZE": "ten"}},
		{"master key", map[string]string{"CELERIX_MASTER_KEY": "short"}},
		{"refresh", map[string]string{"CELERIX_REFRESH_INTERVAL": "soon"}},
		{"log level", map[string]string{"CELERIX_LOG_LEVEL": "loud"}},
		{"log format", map[string]string{"CELERIX_LOG_FORMAT": "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("", tt.env)
			assert.ErrorIs(t, err, ErrConfigInvalid)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.ErrorIs(t, err, ErrConfigFileRead)
}

func TestLoad_BadFile(t *testing.T) {
	_, err := Load(writeFile(t, "bad.json", "{not json"), nil)
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestConfig_Logger(t *testing.T) {
	cfg := Default()
	cfg.LogFormat = "json"
	var buf bytes.Buffer
	cfg.Logger(&buf).Info("started", "port", "7001")
	assert.Contains(t, buf.String(), `"msg":"started"`)

	buf.Reset()
	cfg.LogFormat = "text"
	cfg.Logger(&buf).Debug("hidden")
	assert.Empty(t, buf.String())
}
