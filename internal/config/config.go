package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/michaelbrown/runlet/internal/engine"
)

type EngineConfig struct {
	Profile        string `mapstructure:"profile"`         // interpreter profile name
	ProfilesDir    string `mapstructure:"profiles_dir"`    // directory of profile YAML files
	TimeoutSeconds int    `mapstructure:"timeout_seconds"` // wall-clock bound per run
	MaxOutput      int    `mapstructure:"max_output"`      // output cap in characters
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
}

// Load reads runlet.yaml from the working directory or $HOME/.runlet.
// A missing config file is fine (there are no required credentials);
// a malformed one aborts startup.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("runlet")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.runlet")

	v.SetDefault("engine.profile", "python")
	v.SetDefault("engine.timeout_seconds", int(engine.DefaultTimeout.Seconds()))
	v.SetDefault("engine.max_output", engine.DefaultMaxOutput)
	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.db_path", filepath.Join(os.Getenv("HOME"), ".runlet", "runlet.db"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &cfg, nil
}

// Profile resolves the active interpreter profile. A profiles directory, if
// configured, is consulted for "<name>.yaml"; otherwise the built-in python3
// profile is used. Engine-level timeout/output settings override the
// profile's own.
func (c *Config) Profile() (engine.Profile, error) {
	p := engine.DefaultProfile()

	if c.Engine.ProfilesDir != "" {
		path := filepath.Join(c.Engine.ProfilesDir, c.Engine.Profile+".yaml")
		loaded, err := engine.LoadProfile(path)
		if err != nil {
			return engine.Profile{}, fmt.Errorf("loading interpreter profile: %w", err)
		}
		p = *loaded
	}

	if c.Engine.TimeoutSeconds > 0 {
		p.TimeoutSeconds = c.Engine.TimeoutSeconds
	}
	if c.Engine.MaxOutput > 0 {
		p.MaxOutput = c.Engine.MaxOutput
	}

	return p, nil
}
