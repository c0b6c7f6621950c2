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

const (
	EnvPrefix = "INTROSPECT"
	appDir    = "introspect"
)

// Config stores runtime configuration.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Session  SessionConfig  `mapstructure:"session"`
	Image    ImageConfig    `mapstructure:"image"`
	Audio    AudioConfig    `mapstructure:"audio"`
	History  HistoryConfig  `mapstructure:"history"`
	Log      LogConfig      `mapstructure:"log"`
	Vitals   VitalsConfig   `mapstructure:"vitals"`
	Settings SettingsConfig `mapstructure:"settings"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SessionConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

type ImageConfig struct {
	MaxDimension int `mapstructure:"max_dimension"`
	Quality      int `mapstructure:"quality"`
}

type AudioConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	PlayerCommand string `mapstructure:"player_command"`
}

type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Dir   string `mapstructure:"dir"`
	Level string `mapstructure:"level"`
}

type VitalsConfig struct {
	ReplayDir    string        `mapstructure:"replay_dir"`
	ReplayPeriod time.Duration `mapstructure:"replay_period"`
	ReplayLoop   bool          `mapstructure:"replay_loop"`
}

type SettingsConfig struct {
	Path string `mapstructure:"path"`
}

// LoadOptions selects an explicit config file. When File is empty,
// config.yaml is looked up in the user config directory.
type LoadOptions struct {
	File string
}

// Load resolves configuration from an optional config file, INTROSPECT_*
// environment variables and defaults.
func Load(opts LoadOptions) (Config, error) {
	dir, err := Dir()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v, dir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	sanitize(&cfg, dir)
	return cfg, nil
}

// Dir is the per-user configuration directory.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", errors.New("could not determine config directory")
	}
	return filepath.Join(base, appDir), nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("api.base_url", "http://172.20.10.12:8787")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("session.tick_interval", 3*time.Second)
	v.SetDefault("image.max_dimension", 480)
	v.SetDefault("image.quality", 40)
	v.SetDefault("audio.enabled", true)
	v.SetDefault("audio.player_command", "ffplay")
	v.SetDefault("history.path", filepath.Join(dir, "history.db"))
	v.SetDefault("log.dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("vitals.replay_dir", "")
	v.SetDefault("vitals.replay_period", time.Second)
	v.SetDefault("vitals.replay_loop", false)
	v.SetDefault("settings.path", filepath.Join(dir, "settings.yaml"))
}

func sanitize(cfg *Config, dir string) {
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://172.20.10.12:8787"
	}
	if cfg.API.Timeout <= 0 {
		cfg.API.Timeout = 30 * time.Second
	}
	if cfg.Session.TickInterval <= 0 {
		cfg.Session.TickInterval = 3 * time.Second
	}
	if cfg.Image.MaxDimension <= 0 {
		cfg.Image.MaxDimension = 480
	}
	if cfg.Image.Quality <= 0 || cfg.Image.Quality > 100 {
		cfg.Image.Quality = 40
	}
	if strings.TrimSpace(cfg.Audio.PlayerCommand) == "" {
		cfg.Audio.PlayerCommand = "ffplay"
	}
	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = filepath.Join(dir, "history.db")
	}
	if cfg.Vitals.ReplayPeriod <= 0 {
		cfg.Vitals.ReplayPeriod = time.Second
	}
	if strings.TrimSpace(cfg.Settings.Path) == "" {
		cfg.Settings.Path = filepath.Join(dir, "settings.yaml")
	}
}
