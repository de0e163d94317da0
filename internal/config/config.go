// Package config loads otpdeck settings from an optional YAML file and
// OTPDECK_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/otpdeck/otpdeck/internal/constants"
)

// Keys
const (
	KeyDB         = "db"
	KeyPassphrase = "passphrase"
	KeyLogLevel   = "log_level"
	KeySkew       = "skew"
	KeyWorkers    = "workers"
	KeyQRSize     = "qr_size"
)

// Config holds the resolved settings
type Config struct {
	DB         string `validate:"required"`
	Passphrase string
	LogLevel   string `validate:"oneof=debug info warn error"`
	Skew       uint   `validate:"max=10"`
	Workers    int    `validate:"min=0,max=256"`
	QRSize     int    `validate:"min=64,max=4096"`

	// File is the config file that was read, empty when none was found
	File string
}

// Load reads the config file at path, or the default location when path is
// empty. A missing default file is not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if dir, err := ConfigDir(); err == nil {
		v.AddConfigPath(dir)
		v.SetConfigName(constants.ConfigName)

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	return build(v)
}

// LoadFromBytes reads configuration from memory. configType is a format
// viper understands ("yaml", "json", "toml").
func LoadFromBytes(configType string, data []byte) (*Config, error) {
	if strings.TrimSpace(configType) == "" {
		return nil, errors.New("config type is required")
	}

	v := newViper()
	v.SetConfigType(configType)

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return build(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyDB, DefaultDBPath())
	v.SetDefault(KeyPassphrase, "")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeySkew, 1)
	v.SetDefault(KeyWorkers, 0)
	v.SetDefault(KeyQRSize, 256)

	return v
}

func build(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DB:         expandHome(v.GetString(KeyDB)),
		Passphrase: v.GetString(KeyPassphrase),
		LogLevel:   strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel))),
		Skew:       v.GetUint(KeySkew),
		Workers:    v.GetInt(KeyWorkers),
		QRSize:     v.GetInt(KeyQRSize),
		File:       v.ConfigFileUsed(),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Level returns the slog level for LogLevel
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn
	}
	return level
}

// ConfigDir returns the directory searched for config.yaml
func ConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.AppName), nil
}

// DefaultDBPath returns $XDG_DATA_HOME/otpdeck/vault.db, falling back to
// ~/.local/share when XDG_DATA_HOME is unset
func DefaultDBPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, constants.AppName, constants.VaultFileName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return constants.VaultFileName
	}
	return filepath.Join(home, ".local", "share", constants.AppName, constants.VaultFileName)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
