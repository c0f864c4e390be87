// Package config loads application settings from config files and
// environment variables, with sane defaults for every knob.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Bot      BotConfig      `mapstructure:"bot"`
	Download DownloadConfig `mapstructure:"download"`
	Health   HealthConfig   `mapstructure:"health"`
	Log      LogConfig      `mapstructure:"log"`
}

type BotConfig struct {
	Token string `mapstructure:"token"`
}

type DownloadConfig struct {
	TempDir       string `mapstructure:"temp_dir"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	YtDlpPath     string `mapstructure:"yt_dlp_path"`
	FFmpegPath    string `mapstructure:"ffmpeg_path"`
	FFprobePath   string `mapstructure:"ffprobe_path"`
}

type HealthConfig struct {
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json or text
	Output     string `mapstructure:"output"` // stdout or file
	Dir        string `mapstructure:"dir"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// MaxFileSizeBytes converts the configured limit to bytes.
func (d DownloadConfig) MaxFileSizeBytes() int64 {
	return d.MaxFileSizeMB * 1024 * 1024
}

// Load reads configuration. A missing config file is fine; defaults and
// environment variables cover everything.
func Load() (*Config, error) {
	SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults registers the default value of every setting.
func SetDefaults() {
	viper.SetDefault("bot.token", "")

	viper.SetDefault("download.temp_dir", "temp")
	viper.SetDefault("download.max_file_size_mb", 2000)
	viper.SetDefault("download.yt_dlp_path", "yt-dlp")
	viper.SetDefault("download.ffmpeg_path", "ffmpeg")
	viper.SetDefault("download.ffprobe_path", "ffprobe")

	viper.SetDefault("health.port", "8080")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.dir", "data/logs")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)
}

// Validate rejects configurations the application cannot run with.
func Validate(cfg *Config) error {
	if cfg.Download.TempDir == "" {
		return fmt.Errorf("download.temp_dir is not set")
	}
	if cfg.Download.MaxFileSizeMB <= 0 {
		return fmt.Errorf("download.max_file_size_mb must be positive, got %d", cfg.Download.MaxFileSizeMB)
	}
	if cfg.Health.Port == "" {
		return fmt.Errorf("health.port is not set")
	}
	return nil
}
