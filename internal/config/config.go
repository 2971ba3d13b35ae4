package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	APIURL  string `mapstructure:"api_url"`
	APIKey  string `mapstructure:"api_key"`
	Enabled bool   `mapstructure:"enabled"`

	Editor string `mapstructure:"editor"`
	OS     string `mapstructure:"os"`

	HeartbeatInterval   time.Duration `mapstructure:"heartbeat_interval"`
	FlushInterval       time.Duration `mapstructure:"flush_interval"`
	SummaryInterval     time.Duration `mapstructure:"summary_interval"`
	InactivityThreshold time.Duration `mapstructure:"inactivity_threshold"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	BatchSize           int           `mapstructure:"batch_size"`

	QueuePath string `mapstructure:"queue_path"`
	LogPath   string `mapstructure:"log_path"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:             true,
		Editor:              "unknown",
		OS:                  runtime.GOOS,
		HeartbeatInterval:   120 * time.Second,
		FlushInterval:       30 * time.Second,
		SummaryInterval:     30 * time.Second,
		InactivityThreshold: 15 * time.Minute,
		RequestTimeout:      10 * time.Second,
		BatchSize:           1000,
		QueuePath:           defaultQueuePath(),
		LogPath:             defaultLogPath(),
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

// DefaultPath is the config file consulted when -config is not given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "codepulse.yaml"
	}
	return filepath.Join(home, ".config", "codepulse", "config.yaml")
}

// Load reads path (yaml) over DefaultConfig and applies CODEPULSE_*
// environment overrides. A missing file is not an error: first run has
// no configuration yet.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	v.SetEnvPrefix("CODEPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	return cfg, nil
}

// bindKeys makes AutomaticEnv see keys that are absent from the file.
func bindKeys(v *viper.Viper) {
	for _, key := range []string{
		"api_url", "api_key", "enabled", "editor", "os",
		"heartbeat_interval", "flush_interval", "summary_interval",
		"inactivity_threshold", "request_timeout", "batch_size",
		"queue_path", "log_path", "log_level", "log_format",
	} {
		_ = v.BindEnv(key)
	}
}

// Configured reports whether the agent has enough configuration to talk
// to the server at all.
func (c Config) Configured() bool {
	return c.APIURL != "" && c.APIKey != ""
}

func defaultQueuePath() string {
	return filepath.Join(stateDir(), "queue.db")
}

func defaultLogPath() string {
	return filepath.Join(stateDir(), "codepulse.log")
}

func stateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "state", "codepulse")
}
