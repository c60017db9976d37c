// Package config содержит логику чтения конфигурации сервиса.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	ModeProduction = "PROD"
	ModeDevelop    = "DEV"

	defaultRunAddress = "localhost:8080"
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	DatabaseURI   string `env:"DATABASE_URI"`
	AdminUsername string `env:"ADMIN_USERNAME"`
	EnforceAdmin  bool   `env:"ENFORCE_ADMIN" envDefault:"false"`

	LogLevel string `env:"LOG_LEVEL"`
	Mode     string `env:"APP_MODE"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	Notify Notify

	RedisAddr        string `env:"REDIS_ADDR"`
	BanPurgeSchedule string `env:"BAN_PURGE_SCHEDULE" envDefault:"@every 10m"`
}

// Notify параметры отправки уведомлений в Telegram.
type Notify struct {
	BotToken        string        `env:"BOT_TOKEN"`
	AdminChatID     int64         `env:"ADMIN_CHAT_ID"`
	SupportUsername string        `env:"SUPPORT_USERNAME"`
	APIURL          string        `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
	Timeout         time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`
	Retries         int           `env:"NOTIFY_RETRIES" envDefault:"2"`
	QueueSize       int           `env:"NOTIFY_QUEUE_SIZE" envDefault:"100"`
}

// Enabled сообщает, заданы ли реквизиты бота.
func (n Notify) Enabled() bool {
	return n.BotToken != ""
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAdmin := cfg.AdminUsername
	envRedis := cfg.RedisAddr
	envLogLevel := cfg.LogLevel
	envMode := cfg.Mode

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AdminUsername, "admin", "", "telegram username of the administrator")
	flag.StringVar(&cfg.RedisAddr, "redis", "", "redis address for the notification queue")
	flag.StringVar(&cfg.LogLevel, "l", "info", "log level")
	flag.StringVar(&cfg.Mode, "m", ModeProduction, "PROD / DEV")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envAdmin != "" {
		cfg.AdminUsername = envAdmin
	}
	if envRedis != "" {
		cfg.RedisAddr = envRedis
	}
	if envLogLevel != "" {
		cfg.LogLevel = envLogLevel
	}
	if envMode != "" {
		cfg.Mode = envMode
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет обязательные параметры.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseURI == "" {
		errs = append(errs, errors.New("database URI is required"))
	}
	if c.AdminUsername == "" {
		errs = append(errs, errors.New("admin username is required"))
	}
	if c.Notify.BotToken != "" && c.Notify.AdminChatID == 0 {
		errs = append(errs, errors.New("admin chat id is required when bot token is set"))
	}
	if c.Notify.QueueSize <= 0 {
		errs = append(errs, errors.New("notify queue size must be positive"))
	}
	if c.Notify.Retries < 0 {
		errs = append(errs, errors.New("notify retries must not be negative"))
	}
	if c.Mode != ModeProduction && c.Mode != ModeDevelop {
		errs = append(errs, fmt.Errorf("unknown app mode %q", c.Mode))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
