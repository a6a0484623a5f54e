// Package config loads daemon settings from defaults, an optional YAML or
// JSONC file and CELERIX_* environment variables, in that order.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tailscale/hujson"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/celerix-dev/celerix-compliance/internal/vault"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

var (
	// ErrConfigInvalid wraps every validation and parse failure.
	ErrConfigInvalid = errors.New("invalid config")
	// ErrConfigFileRead is returned when an explicit config file cannot be read.
	ErrConfigFileRead = errors.New("cannot read config file")
)

// Config holds all daemon settings.
type Config struct {
	DataDir    string `yaml:"data_dir" json:"data_dir"`
	TCPPort    string `yaml:"port" json:"port"`
	HTTPPort   string `yaml:"http_port" json:"http_port"`
	DisableTLS bool   `yaml:"disable_tls" json:"disable_tls"`

	// Backend is one of memory, file or sqlite.
	Backend    string `yaml:"backend" json:"backend"`
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
	// MasterKey, when set, encrypts persisted snapshots. Raw 32 bytes or hex.
	MasterKey string `yaml:"master_key" json:"master_key"`

	Locale          string `yaml:"locale" json:"locale"`
	PageSize        int    `yaml:"page_size" json:"page_size"`
	RefreshInterval string `yaml:"refresh_interval" json:"refresh_interval"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`

	// Resolved by Load.
	Key     []byte        `yaml:"-" json:"-"`
	Tag     language.Tag  `yaml:"-" json:"-"`
	Refresh time.Duration `yaml:"-" json:"-"`
	Source  string        `yaml:"-" json:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:         "./data",
		TCPPort:         "7001",
		HTTPPort:        "7002",
		Backend:         BackendFile,
		Locale:          "en",
		PageSize:        10,
		RefreshInterval: "30s",
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Environ returns the process environment as a map.
func Environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// Load resolves the configuration. path may be empty; otherwise the file must
// exist and is parsed as YAML (.yaml, .yml) or JSONC (anything else).
// Values from env override the file.
func Load(path string, env map[string]string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
		}
		if err := parse(path, data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
		}
		cfg.Source = path
	}
	if err := applyEnv(&cfg, env); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	if err := cfg.resolve(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	return cfg, nil
}

func parse(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("invalid YAML: %w", err)
		}
		return nil
	default:
		standardized, err := hujson.Standardize(data)
		if err != nil {
			return fmt.Errorf("invalid JSONC: %w", err)
		}
		if err := json.Unmarshal(standardized, cfg); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		return nil
	}
}

func applyEnv(cfg *Config, env map[string]string) error {
	strs := map[string]*string{
		"CELERIX_DATA_DIR":         &cfg.DataDir,
		"CELERIX_PORT":             &cfg.TCPPort,
		"CELERIX_HTTP_PORT":        &cfg.HTTPPort,
		"CELERIX_BACKEND":          &cfg.Backend,
		"CELERIX_SQLITE_PATH":      &cfg.SQLitePath,
		"CELERIX_MASTER_KEY":       &cfg.MasterKey,
		"CELERIX_LOCALE":           &cfg.Locale,
		"CELERIX_REFRESH_INTERVAL": &cfg.RefreshInterval,
		"CELERIX_LOG_LEVEL":        &cfg.LogLevel,
		"CELERIX_LOG_FORMAT":       &cfg.LogFormat,
	}
	for key, dst := range strs {
		if v := env[key]; v != "" {
			*dst = v
		}
	}
	if v := env["CELERIX_DISABLE_TLS"]; v != "" {
		cfg.DisableTLS = v == "true"
	}
	if v := env["CELERIX_PAGE_SIZE"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CELERIX_PAGE_SIZE: %w", err)
		}
		cfg.PageSize = n
	}
	return nil
}

func (c *Config) resolve() error {
	switch c.Backend {
	case BackendMemory, BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Backend != BackendMemory && c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if c.Backend == BackendSQLite && c.SQLitePath == "" {
		c.SQLitePath = filepath.Join(c.DataDir, "celerix.db")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.MasterKey != "" {
		key, err := vault.ParseKey(c.MasterKey)
		if err != nil {
			return fmt.Errorf("master_key: %w", err)
		}
		c.Key = key
	}
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return fmt.Errorf("locale %q: %w", c.Locale, err)
	}
	c.Tag = tag
	if c.RefreshInterval != "" {
		d, err := time.ParseDuration(c.RefreshInterval)
		if err != nil {
			return fmt.Errorf("refresh_interval: %w", err)
		}
		c.Refresh = d
	}
	if _, err := c.level(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	return nil
}

func (c Config) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}

// Debug reports whether debug logging is enabled.
func (c Config) Debug() bool {
	lvl, _ := c.level()
	return lvl <= slog.LevelDebug
}

// Logger builds the daemon logger writing to w.
func (c Config) Logger(w io.Writer) *slog.Logger {
	lvl, _ := c.level()
	opts := &slog.HandlerOptions{Level: lvl}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
