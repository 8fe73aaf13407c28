package cli

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/cartopack/cartopack/pkg/errors"
	"github.com/cartopack/cartopack/pkg/pipeline"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds settings loaded from the optional TOML config file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Cache    CacheConfig    `toml:"cache"`
	Server   ServerConfig   `toml:"server"`
}

// DefaultsConfig supplies layout options for flags left unset.
type DefaultsConfig struct {
	MinSize float64  `toml:"min_size"`
	MaxSize float64  `toml:"max_size"`
	Sort    string   `toml:"sort"`
	Formats []string `toml:"formats"`
}

// CacheConfig selects where pipeline stages cache their results.
type CacheConfig struct {
	Dir   string `toml:"dir"`
	Redis string `toml:"redis"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr     string `toml:"addr"`
	Mongo    string `toml:"mongo"`
	Database string `toml:"database"`
}

// =============================================================================
// Loading
// =============================================================================

// LoadConfig reads the TOML config at path. An empty path falls back to the
// default location, where a missing file yields a zero config. An explicit
// path that cannot be read is an error.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = defaultConfigPath(); err != nil {
			return Config{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config [%s]", path)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config [%s]", path)
	}
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaultConfigPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

func validateConfig(cfg Config) error {
	d := cfg.Defaults
	if d.MinSize < 0 || d.MaxSize < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "defaults: sizes must be positive [min=%g max=%g]", d.MinSize, d.MaxSize)
	}
	if d.MaxSize > 0 && d.MinSize >= d.MaxSize {
		return errors.New(errors.ErrCodeInvalidConfig, "defaults: min_size must be below max_size [min=%g max=%g]", d.MinSize, d.MaxSize)
	}
	for _, f := range d.Formats {
		if !pipeline.ValidFormats[f] {
			return errors.New(errors.ErrCodeInvalidConfig, "defaults: unknown format [%s]", f)
		}
	}
	return nil
}
