// Package config loads cortex settings from defaults, an optional YAML file
// and CORTEX_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Fallback backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// DefaultBlockedPrefixes are tab URLs that can never become bookmarks.
var DefaultBlockedPrefixes = []string{"chrome://", "about:", "edge://", "moz-extension://"}

// Config holds application configuration.
type Config struct {
	Data struct {
		Dir    string `mapstructure:"dir"`
		DBPath string `mapstructure:"db_path"`
		KVPath string `mapstructure:"kv_path"`
	} `mapstructure:"data"`
	Fallback struct {
		Backend string `mapstructure:"backend"`
	} `mapstructure:"fallback"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
		Prefix   string `mapstructure:"prefix"`
	} `mapstructure:"redis"`
	Log struct {
		Level  string `mapstructure:"level"`
		Pretty bool   `mapstructure:"pretty"`
	} `mapstructure:"log"`
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
	Pending struct {
		TTL time.Duration `mapstructure:"ttl"`
	} `mapstructure:"pending"`
	Browser struct {
		BlockedPrefixes []string `mapstructure:"blocked_prefixes"`
	} `mapstructure:"browser"`
	QuickAdd struct {
		Category string `mapstructure:"category"`
	} `mapstructure:"quick_add"`
	Cull struct {
		ExcludeDomains []string      `mapstructure:"exclude_domains"`
		Concurrency    int           `mapstructure:"concurrency"`
		Timeout        time.Duration `mapstructure:"timeout"`
	} `mapstructure:"cull"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// DefaultDir returns ~/.config/cortex.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "cortex"), nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("data.dir", dir)
	v.SetDefault("data.db_path", "")
	v.SetDefault("data.kv_path", "")
	v.SetDefault("fallback.backend", BackendFile)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "cortex:")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.pretty", true)
	v.SetDefault("server.addr", "127.0.0.1:8787")
	v.SetDefault("pending.ttl", 10*time.Second)
	v.SetDefault("browser.blocked_prefixes", DefaultBlockedPrefixes)
	v.SetDefault("quick_add.category", "Read Later")
	v.SetDefault("cull.exclude_domains", []string{"github.com", "gitlab.com"})
	v.SetDefault("cull.concurrency", 10)
	v.SetDefault("cull.timeout", 10*time.Second)
}

// Load reads the configuration. cfgFile, when set, must exist; otherwise
// config.yaml is looked up in the default directory and the working
// directory, and a missing file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	dir, err := DefaultDir()
	if err != nil {
		dir = "."
	}
	setDefaults(v, dir)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(dir)
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}
	v.SetConfigType("yaml")

	v.SetEnvPrefix("CORTEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.Data.Dir = expandTilde(cfg.Data.Dir)
	cfg.Data.DBPath = expandTilde(cfg.Data.DBPath)
	cfg.Data.KVPath = expandTilde(cfg.Data.KVPath)

	switch cfg.Fallback.Backend {
	case BackendFile, BackendRedis, BackendNone:
	default:
		return nil, fmt.Errorf("fallback.backend: unknown backend %q", cfg.Fallback.Backend)
	}
	return &cfg, nil
}

// DBPath is the SQLite database location.
func (c *Config) DBPath() string {
	if c.Data.DBPath != "" {
		return c.Data.DBPath
	}
	return filepath.Join(c.Data.Dir, "cortex.db")
}

// KVPath is the file backing the fallback store.
func (c *Config) KVPath() string {
	if c.Data.KVPath != "" {
		return c.Data.KVPath
	}
	return filepath.Join(c.Data.Dir, "fallback.json")
}

func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
