// Package config resolves storyreel settings from flags, environment,
// a .env file and an optional YAML config file.
//
// Precedence, highest first: command-line flags, STORYREEL_* environment
// variables (including ones loaded from .env), the config file, defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Setting keys.
const (
	KeyRoot           = "root"
	KeyLogLevel       = "log.level"
	KeyLogFile        = "log.file"
	KeyLogMaxSizeMB   = "log.max-size-mb"
	KeyLogMaxBackups  = "log.max-backups"
	KeyCatalogEnabled = "catalog.enabled"
	KeyDeleteOrder    = "delete.order"
	KeyServeAddr      = "serve.addr"
	KeyWatchDebounce  = "watch.debounce"
	KeyNoColor        = "no-color"
)

// EnvPrefix prefixes every environment override, e.g. STORYREEL_LOG_LEVEL.
const EnvPrefix = "STORYREEL"

// DeleteOrder selects which side of a project delete happens first.
type DeleteOrder string

const (
	// DeleteIndexFirst drops the index entry, then removes the directory.
	// A failed directory removal leaves an orphan on disk.
	DeleteIndexFirst DeleteOrder = "index-first"

	// DeleteDiskFirst removes the directory and only then the index entry.
	// A failed removal keeps the project listed.
	DeleteDiskFirst DeleteOrder = "disk-first"
)

// Config is the resolved settings of one invocation.
type Config struct {
	Root           string
	LogLevel       string
	LogFile        string
	LogMaxSizeMB   int
	LogMaxBackups  int
	CatalogEnabled bool
	DeleteOrder    DeleteOrder
	ServeAddr      string
	WatchDebounce  time.Duration
	NoColor        bool

	// ConfigFile is the file that was read, if any.
	ConfigFile string
}

// Options tells Load where to look.
type Options struct {
	// ConfigFile is an explicit path; when empty the default locations are
	// searched and a missing file is fine.
	ConfigFile string

	// Flags are bound by key name: a flag named "root" overrides KeyRoot.
	Flags *pflag.FlagSet

	// EnvFile is loaded into the environment if it exists. Empty means
	// ".env" in the working directory.
	EnvFile string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyRoot, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyLogMaxSizeMB, 10)
	v.SetDefault(KeyLogMaxBackups, 3)
	v.SetDefault(KeyCatalogEnabled, true)
	v.SetDefault(KeyDeleteOrder, string(DeleteIndexFirst))
	v.SetDefault(KeyServeAddr, "127.0.0.1:7420")
	v.SetDefault(KeyWatchDebounce, 250*time.Millisecond)
	v.SetDefault(KeyNoColor, false)
}

// Load resolves a Config.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName("config")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "storyreel"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	if opts.Flags != nil {
		for _, key := range []string{KeyRoot, KeyLogLevel, KeyLogFile, KeyDeleteOrder, KeyServeAddr, KeyWatchDebounce, KeyNoColor} {
			if f := opts.Flags.Lookup(flagName(key)); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
				}
			}
		}
	}

	cfg := &Config{
		Root:           v.GetString(KeyRoot),
		LogLevel:       v.GetString(KeyLogLevel),
		LogFile:        v.GetString(KeyLogFile),
		LogMaxSizeMB:   v.GetInt(KeyLogMaxSizeMB),
		LogMaxBackups:  v.GetInt(KeyLogMaxBackups),
		CatalogEnabled: v.GetBool(KeyCatalogEnabled),
		DeleteOrder:    DeleteOrder(strings.ToLower(v.GetString(KeyDeleteOrder))),
		ServeAddr:      v.GetString(KeyServeAddr),
		WatchDebounce:  v.GetDuration(KeyWatchDebounce),
		NoColor:        v.GetBool(KeyNoColor),
		ConfigFile:     v.ConfigFileUsed(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// flagName maps a setting key to its flag: "log.level" → "log-level".
func flagName(key string) string {
	return strings.ReplaceAll(key, ".", "-")
}

// Validate checks enumerated and ranged settings.
func (c *Config) Validate() error {
	switch c.DeleteOrder {
	case DeleteIndexFirst, DeleteDiskFirst:
	default:
		return fmt.Errorf("invalid %s %q (want %s or %s)", KeyDeleteOrder, c.DeleteOrder, DeleteIndexFirst, DeleteDiskFirst)
	}
	if c.WatchDebounce < 0 {
		return fmt.Errorf("invalid %s %s: must not be negative", KeyWatchDebounce, c.WatchDebounce)
	}
	return nil
}
