package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server    Server         `mapstructure:"server"`
	Storage   Storage        `mapstructure:"storage"`
	Scheduler Scheduler      `mapstructure:"scheduler"`
	Delivery  Delivery       `mapstructure:"delivery"`
	Telegram  Telegram       `mapstructure:"telegram"`
	Email     Email          `mapstructure:"email"`
	Retry     retry.Strategy `mapstructure:"retry"` // Attempts is the per-reminder delivery budget
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort string `mapstructure:"http_port"` // HTTP port to listen on
}

// Storage holds the notification store configuration.
type Storage struct {
	Path string `mapstructure:"path"` // JSON file holding the record set
}

// Scheduler holds delivery loop configuration.
type Scheduler struct {
	Interval    time.Duration `mapstructure:"interval"`     // delay between due checks
	SendTimeout time.Duration `mapstructure:"send_timeout"` // upper bound on a single send
	Timezone    string        `mapstructure:"timezone"`     // zone used for date parsing and rendering
}

// Delivery selects the messaging channel.
type Delivery struct {
	Channel string `mapstructure:"channel"` // "telegram" or "email"
}

// Telegram holds configuration for sending Telegram messages.
type Telegram struct {
	Token string `mapstructure:"token"`
}

// Email holds SMTP configuration for sending emails.
type Email struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort string `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", ":8080")
	v.SetDefault("storage.path", "./data/notifications.json")
	v.SetDefault("scheduler.interval", "60s")
	v.SetDefault("scheduler.send_timeout", "5s")
	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("delivery.channel", "telegram")
	v.SetDefault("retry.attempts", 3)
}

// mustBindEnv binds critical environment variables to Viper keys.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv(v *viper.Viper) {
	bindings := map[string]string{
		"server.http_port": "HTTP_PORT",
		"storage.path":     "STORAGE_PATH",
		"delivery.channel": "DELIVERY_CHANNEL",

		"telegram.token": "TELEGRAM_TOKEN",

		"email.smtp_host": "SMTP_HOST",
		"email.smtp_port": "SMTP_PORT",
		"email.username":  "SMTP_USER",
		"email.password":  "SMTP_PASS",
		"email.from":      "SMTP_FROM",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

// Must loads and validates the configuration from file and environment
// variables. A missing config file falls back to defaults; an unreadable or
// malformed one panics.
func Must() *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	setDefaults(v)
	mustBindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			zlog.Logger.Panic().Err(err).Msg("failed to read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		zlog.Logger.Panic().Err(err).Msgf("failed to unmarshal config: %v", err)
	}

	return &cfg
}
