// Package config loads auditview's runtime configuration.
//
// Sources, lowest precedence first: built-in defaults, an optional YAML
// config file, AUDITVIEW_* environment variables, and command-line flags
// bound by the caller. All of them meet in one viper instance and are
// decoded into Config.
//
// Config is read once at startup. Preferences that change while the
// program runs (page size, featured records) live in internal/prefs.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/viper"

	"auditview/internal/home"
	"auditview/internal/prefs"
)

// Keys. Flags use the same names so BindPFlags lines them up.
const (
	KeyConfig     = "config"
	KeyHome       = "home"
	KeyDataset    = "dataset"
	KeyAddr       = "addr"
	KeyPrefs      = "prefs"
	KeyDebounce   = "debounce"
	KeyPageSize   = "page-size"
	KeyReloadCron = "reload-cron"
	KeyWatch      = "watch"
	KeyRateLimit  = "rate-limit"
	KeyRateBurst  = "rate-burst"
	KeyLogLevel   = "log-level"
)

// EnvPrefix is prepended to upper-cased keys: AUDITVIEW_PAGE_SIZE.
const EnvPrefix = "AUDITVIEW"

// Preference store types.
const (
	PrefsMemory = "memory"
	PrefsJSON   = "json"
	PrefsSQLite = "sqlite"
)

// DefaultDebounce is the quiet period between the last filter edit and
// evaluation.
const DefaultDebounce = 600 * time.Millisecond

var ErrInvalidConfig = errors.New("invalid config")

// Config is the decoded runtime configuration.
type Config struct {
	// Home is the directory holding the config file and preference store.
	Home string `mapstructure:"home"`

	// Dataset lists files or doublestar globs to load records from.
	Dataset []string `mapstructure:"dataset"`

	// Addr is the HTTP listen address for serve.
	Addr string `mapstructure:"addr"`

	// Prefs selects the preference store: memory, json or sqlite.
	Prefs string `mapstructure:"prefs"`

	DebounceDelay   time.Duration `mapstructure:"debounce"`
	DefaultPageSize int           `mapstructure:"page-size"`

	// ReloadCron reloads the dataset on a schedule when set.
	ReloadCron string `mapstructure:"reload-cron"`

	// Watch reloads the dataset when a matched file changes.
	Watch bool `mapstructure:"watch"`

	// RateLimit is requests per second per client IP. Zero disables it.
	RateLimit float64 `mapstructure:"rate-limit"`
	RateBurst int     `mapstructure:"rate-burst"`

	LogLevel string `mapstructure:"log-level"`
}

// SetDefaults registers every key's default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyAddr, "127.0.0.1:8080")
	v.SetDefault(KeyPrefs, PrefsJSON)
	v.SetDefault(KeyDebounce, DefaultDebounce)
	v.SetDefault(KeyPageSize, prefs.DefaultPageSize)
	v.SetDefault(KeyReloadCron, "")
	v.SetDefault(KeyWatch, false)
	v.SetDefault(KeyRateLimit, 20.0)
	v.SetDefault(KeyRateBurst, 40)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyDataset, []string{})
}

// Load resolves the configuration held by v. Flags must already be bound.
// An explicit --config file must exist; the home directory's config.yaml
// is read only if present.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if v.GetString(KeyHome) == "" {
		dir, err := home.Default()
		if err != nil {
			return Config{}, err
		}
		v.SetDefault(KeyHome, dir.Root())
	}

	if err := readConfigFile(v); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Dataset = splitPatterns(cfg.Dataset)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readConfigFile(v *viper.Viper) error {
	if path := v.GetString(KeyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	path := home.New(v.GetString(KeyHome)).ConfigPath()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat config %s: %w", path, err)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// splitPatterns flattens comma-separated entries, which is how a list
// arrives from a single environment variable.
func splitPatterns(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for p := range strings.SplitSeq(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Validate reports every problem at once, each wrapping ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	switch c.Prefs {
	case PrefsMemory, PrefsJSON, PrefsSQLite:
	default:
		bad("prefs must be memory, json or sqlite, got %q", c.Prefs)
	}
	if c.DebounceDelay < 0 {
		bad("debounce must not be negative, got %s", c.DebounceDelay)
	}
	if c.DefaultPageSize < 1 {
		bad("page-size must be at least 1, got %d", c.DefaultPageSize)
	}
	if c.RateLimit < 0 {
		bad("rate-limit must not be negative, got %v", c.RateLimit)
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		bad("rate-burst must be at least 1 when rate-limit is set, got %d", c.RateBurst)
	}
	if err := ValidateCron(c.ReloadCron); err != nil {
		bad("reload-cron: %v", err)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		bad("log-level: %v", err)
	}
	return errors.Join(errs...)
}

// ValidateCron checks a 6-field (with seconds) cron expression. Empty is
// valid and means no scheduled reload.
func ValidateCron(expr string) error {
	if expr == "" {
		return nil
	}
	cr := gocron.NewDefaultCron(true)
	if err := cr.IsValid(expr, time.UTC, time.Now()); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return l, nil
}

// HomeDir returns the configured home directory.
func (c Config) HomeDir() home.Dir {
	return home.New(c.Home)
}
