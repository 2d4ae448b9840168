package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"typedkv/internal/aof"
	"typedkv/internal/logger"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// EnvPrefix is prepended to every environment variable, e.g. TYPEDKV_ADDR
const EnvPrefix = "TYPEDKV"

type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	Server   ServerConfig   `mapstructure:",squash"`
	Snapshot SnapshotConfig `mapstructure:",squash"`
	AOF      AOFConfig      `mapstructure:",squash"`
	Client   ClientConfig   `mapstructure:",squash"`
}

type ServerConfig struct {
	Addr           string `mapstructure:"addr"`
	MetricsAddr    string `mapstructure:"metrics_addr"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type SnapshotConfig struct {
	Path     string        `mapstructure:"snapshot_path"`
	Interval time.Duration `mapstructure:"snapshot_interval"`
}

type AOFConfig struct {
	Path              string `mapstructure:"aof_path"`
	Fsync             string `mapstructure:"aof_fsync"`
	RewriteMinSize    int64  `mapstructure:"aof_rewrite_min_size"`
	RewritePercentage int    `mapstructure:"aof_rewrite_percentage"`
}

type ClientConfig struct {
	RedisURL string        `mapstructure:"redis_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// flagKeys maps command line flag names to config keys
var flagKeys = map[string]string{
	"log-level":         "log_level",
	"log-format":        "log_format",
	"addr":              "addr",
	"metrics-addr":      "metrics_addr",
	"max-connections":   "max_connections",
	"snapshot":          "snapshot_path",
	"snapshot-interval": "snapshot_interval",
	"aof":               "aof_path",
	"aof-fsync":         "aof_fsync",
	"redis-url":         "redis_url",
	"timeout":           "timeout",
}

// Loader resolves configuration from defaults, an optional file, .env,
// TYPEDKV_* variables and command line flags, lowest to highest precedence.
type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("addr", "127.0.0.1:6380")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("max_connections", 10000)
	v.SetDefault("snapshot_path", "")
	v.SetDefault("snapshot_interval", "5m")
	v.SetDefault("aof_path", "")
	v.SetDefault("aof_fsync", "everysec")
	v.SetDefault("aof_rewrite_min_size", 64*1024*1024)
	v.SetDefault("aof_rewrite_percentage", 100)
	v.SetDefault("redis_url", "redis://127.0.0.1:6380/0")
	v.SetDefault("timeout", "5s")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// BindFlags lets any of the known flags defined on fs override the other sources
func (l *Loader) BindFlags(fs *pflag.FlagSet) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if err := l.v.BindPFlag(key, f); err != nil {
			errs = append(errs, fmt.Errorf("bind flag %s: %w", f.Name, err))
		}
	})
	return errors.Join(errs...)
}

// SetConfigFile reads settings from a yaml, toml or json file
func (l *Loader) SetConfigFile(path string) {
	l.v.SetConfigFile(path)
}

// LoadDotEnv loads variables from path into the environment. Variables already
// set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return gotenv.Load(path)
}

// Load resolves and validates the configuration
func (l *Loader) Load() (*Config, error) {
	if l.v.ConfigFileUsed() != "" {
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch logger.LogLevel(strings.ToLower(c.LogLevel)) {
	case logger.DebugLevel, logger.InfoLevel, logger.WarnLevel, logger.ErrorLevel, logger.PanicLevel, logger.FatalLevel:
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	switch logger.Format(strings.ToLower(c.LogFormat)) {
	case logger.TextFormat, logger.JSONFormat:
	default:
		return fmt.Errorf("unknown log_format %q (must be text or json)", c.LogFormat)
	}
	if c.Server.Addr == "" {
		return errors.New("addr is required")
	}
	if c.Server.MaxConnections < 0 {
		return fmt.Errorf("max_connections must not be negative, got %d", c.Server.MaxConnections)
	}
	if c.Snapshot.Interval < 0 {
		return fmt.Errorf("snapshot_interval must not be negative, got %v", c.Snapshot.Interval)
	}
	if _, err := aof.ParseSyncMode(c.AOF.Fsync); err != nil {
		return err
	}
	if c.AOF.RewriteMinSize < 0 || c.AOF.RewritePercentage < 0 {
		return errors.New("aof rewrite thresholds must not be negative")
	}
	if c.Client.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Client.Timeout)
	}
	return nil
}

// Fsync returns the parsed aof_fsync mode
func (c *Config) Fsync() aof.SyncMode {
	mode, _ := aof.ParseSyncMode(c.AOF.Fsync)
	return mode
}

// Logger returns the logger settings
func (c *Config) Logger() logger.Config {
	return logger.Config{Level: logger.LogLevel(c.LogLevel), Format: logger.Format(c.LogFormat)}
}
