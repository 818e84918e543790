// Package config loads and validates the settings of a funding host.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreBolt   = "bolt"
	StoreSQLite = "sqlite"
)

// Authorization modes.
const (
	AuthTrusted   = "trusted"
	AuthSignature = "signature"
	AuthJWT       = "jwt"
)

// EnvPrefix prefixes environment overrides, e.g. MATCHFUND_LOGLEVEL.
const EnvPrefix = "MATCHFUND"

// Config holds the host settings.
type Config struct {
	DataDir          string `mapstructure:"datadir"`
	Store            string `mapstructure:"store"`
	Network          string `mapstructure:"network"`
	LogLevel         string `mapstructure:"loglevel"`
	ReleaseSchedule  string `mapstructure:"releaseschedule"` // empty disables the releaser
	AuthMode         string `mapstructure:"authmode"`
	JWTSecret        string `mapstructure:"jwtsecret"`
	AllocationPolicy string `mapstructure:"allocationpolicy"`
	CustodySeed      string `mapstructure:"custodyseed"` // hex
}

// DefaultDataDir returns ~/.matchfund, or .matchfund if the home directory
// is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".matchfund"
	}
	return filepath.Join(home, ".matchfund")
}

// ConfigPath returns the config file location inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.yaml")
}

// DefaultConfig returns a config for an in-memory host.
func DefaultConfig() Config {
	return Config{
		DataDir:          DefaultDataDir(),
		Store:            StoreMemory,
		Network:          "mainnet",
		LogLevel:         "info",
		ReleaseSchedule:  "0 0 1 * *",
		AuthMode:         AuthTrusted,
		AllocationPolicy: "truncate-then-scale",
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	v.SetDefault("datadir", d.DataDir)
	v.SetDefault("store", d.Store)
	v.SetDefault("network", d.Network)
	v.SetDefault("loglevel", d.LogLevel)
	v.SetDefault("releaseschedule", d.ReleaseSchedule)
	v.SetDefault("authmode", d.AuthMode)
	v.SetDefault("jwtsecret", d.JWTSecret)
	v.SetDefault("allocationpolicy", d.AllocationPolicy)
	v.SetDefault("custodyseed", d.CustodySeed)
	return v
}

// Load reads the YAML file at path over the defaults and applies
// MATCHFUND_* environment overrides. An empty path reads only defaults and
// environment.
func Load(path string) (Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("datadir", cfg.DataDir)
	v.Set("store", cfg.Store)
	v.Set("network", cfg.Network)
	v.Set("loglevel", cfg.LogLevel)
	v.Set("releaseschedule", cfg.ReleaseSchedule)
	v.Set("authmode", cfg.AuthMode)
	v.Set("jwtsecret", cfg.JWTSecret)
	v.Set("allocationpolicy", cfg.AllocationPolicy)
	v.Set("custodyseed", cfg.CustodySeed)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return os.Chmod(path, 0o600)
}
