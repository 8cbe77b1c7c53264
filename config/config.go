package config

import (
	"time"

	"github.com/spf13/viper"
)

// Protocol timings and limits shared by every component. These are fixed by
// the conversation protocol, not tunable per deployment.
const (
	// OnlineThreshold is how recent a user's last activity must be for the
	// user to count as online.
	OnlineThreshold = 5 * time.Minute

	// PollInterval is the cadence of the conversation list poll.
	PollInterval = 5 * time.Second

	// ReconnectWait is the fixed delay between push channel reconnect
	// attempts. Reconnection never gives up.
	ReconnectWait = 3 * time.Second

	// SubjectPrefix scopes push subjects: one subject per conversation,
	// "<prefix>.<conversationID>".
	SubjectPrefix = "chat"
)

type APICfg struct {
	BaseURL        string `mapstructure:"base_url"`
	Token          string `mapstructure:"token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type PushCfg struct {
	URL string `mapstructure:"url"`
}

type ServerCfg struct {
	Addr string `mapstructure:"addr"`
}

type Config struct {
	API    APICfg    `mapstructure:"api"`
	Push   PushCfg   `mapstructure:"push"`
	Server ServerCfg `mapstructure:"server"`
	UserID string    `mapstructure:"user_id"`
	// Derived
	APITimeout time.Duration
}

// Load reads configuration from the given file, with APP_* environment
// variables overriding file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvPrefix("APP")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.API.TimeoutSeconds == 0 {
		cfg.API.TimeoutSeconds = 10
	}
	if cfg.Push.URL == "" {
		cfg.Push.URL = "nats://127.0.0.1:4222"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8090"
	}
	cfg.APITimeout = time.Duration(cfg.API.TimeoutSeconds) * time.Second
	return &cfg, nil
}
