// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	configPath = pflag.String("config", ".", "Directory containing config.toml")

	validLogLevels    = []string{"debug", "info", "warn", "error", "fatal"}
	validDrivers      = []string{"sqlite", "postgres"}
	validLimitBackend = []string{"memory", "redis"}
	validMailProvider = []string{"log", "smtp", "resend"}
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Host      HostConfig      `mapstructure:"host"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Token     TokenConfig     `mapstructure:"token"`
	Waitlist  WaitlistConfig  `mapstructure:"waitlist"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Security  SecurityConfig  `mapstructure:"security"`
	Mail      MailConfig      `mapstructure:"mail"`
	Turnstile TurnstileConfig `mapstructure:"turnstile"`
}

type AppConfig struct {
	LogLevel            string `mapstructure:"log_level"`
	Version             string `mapstructure:"version"`
	BaseURL             string `mapstructure:"base_url"`
	ConfirmRedirectPath string `mapstructure:"confirm_redirect_path"`
}

type HostConfig struct {
	Port           int      `mapstructure:"port"`
	CORS           []string `mapstructure:"cors"`
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type TokenConfig struct {
	Validity time.Duration `mapstructure:"validity"`
}

type WaitlistConfig struct {
	Sources []string `mapstructure:"sources"`
}

type RateLimitConfig struct {
	Backend   string        `mapstructure:"backend"`
	Max       int           `mapstructure:"max"`
	Window    time.Duration `mapstructure:"window"`
	RedisAddr string        `mapstructure:"redis_addr"`
}

type SecurityConfig struct {
	// Requests per second allowed per IP on every endpoint, 0 disables it
	RateLimit int `mapstructure:"rate_limit"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type MailConfig struct {
	Provider     string     `mapstructure:"provider"`
	From         string     `mapstructure:"from"`
	FromName     string     `mapstructure:"from_name"`
	ReplyTo      string     `mapstructure:"reply_to"`
	SMTP         SMTPConfig `mapstructure:"smtp"`
	ResendAPIKey string     `mapstructure:"resend_api_key"`
	Workers      int        `mapstructure:"workers"`
	QueueSize    int        `mapstructure:"queue_size"`
}

type TurnstileConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	SecretToken string `mapstructure:"secret_token"`
}

var keys = []string{
	"app.log_level",
	"app.version",
	"app.base_url",
	"app.confirm_redirect_path",

	"host.port",
	"host.cors",
	"host.trusted_proxies",

	"database.driver",
	"database.dsn",

	"token.validity",
	"waitlist.sources",

	"ratelimit.backend",
	"ratelimit.max",
	"ratelimit.window",
	"ratelimit.redis_addr",

	"security.rate_limit",

	"mail.provider",
	"mail.from",
	"mail.from_name",
	"mail.reply_to",
	"mail.smtp.host",
	"mail.smtp.port",
	"mail.smtp.username",
	"mail.smtp.password",
	"mail.resend_api_key",
	"mail.workers",
	"mail.queue_size",

	"turnstile.enabled",
	"turnstile.secret_token",
}

var current *Config

// Get returns the config loaded by Setup
func Get() *Config {
	return current
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() (*Config, error) {
	pflag.Parse()

	v := viper.GetViper()
	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		return nil, fmt.Errorf("failed to bind flags, %w", err)
	}

	v.AddConfigPath(*configPath)

	cfg, err := Load(v)
	if err != nil {
		return nil, err
	}

	current = cfg
	return cfg, nil
}

// Load reads config.toml (if there is one) and the environment into a
// Config and validates it. Every key can be set with its upper-cased env
// name, e.g. MAIL_SMTP_HOST.
func Load(v *viper.Viper) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	//
	// ENVS
	//
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s, %w", k, err)
		}
	}

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.base_url", "http://localhost:8080")
	v.SetDefault("app.confirm_redirect_path", "/waitlist/confirmed")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.cors", []string{"http://localhost:3000"})

	v.SetDefault("database.driver", "sqlite")

	v.SetDefault("token.validity", "168h")
	v.SetDefault("waitlist.sources", []string{"email", "friend", "other"})

	v.SetDefault("ratelimit.backend", "memory")
	v.SetDefault("ratelimit.max", 5)
	v.SetDefault("ratelimit.window", "60s")

	v.SetDefault("security.rate_limit", 10)

	v.SetDefault("mail.provider", "log")
	v.SetDefault("mail.from_name", "Bridge")
	v.SetDefault("mail.smtp.port", 587)
	v.SetDefault("mail.workers", 2)
	v.SetDefault("mail.queue_size", 100)

	v.SetDefault("turnstile.enabled", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file, %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config, %w", err)
	}

	// Env vars come in as a single comma separated string
	cfg.Host.CORS = splitList(cfg.Host.CORS)
	cfg.Host.TrustedProxies = splitList(cfg.Host.TrustedProxies)
	cfg.Waitlist.Sources = splitList(cfg.Waitlist.Sources)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if !slices.Contains(validLogLevels, c.App.LogLevel) {
		return errors.New("invalid log level provided")
	}

	if c.App.BaseURL == "" {
		return errors.New("app.base_url can't be empty")
	}

	if c.Host.Port <= 0 || c.Host.Port > 65535 {
		return errors.New("invalid port provided")
	}

	if !slices.Contains(validDrivers, c.Database.Driver) {
		return errors.New("invalid database driver provided")
	}

	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return errors.New("database.dsn is required for postgres")
	}

	if c.Token.Validity <= 0 {
		return errors.New("token.validity must be bigger than 0")
	}

	if len(c.Waitlist.Sources) == 0 {
		return errors.New("waitlist.sources can't be empty")
	}

	if !slices.Contains(validLimitBackend, c.RateLimit.Backend) {
		return errors.New("invalid rate limit backend provided")
	}

	if c.RateLimit.Max <= 0 {
		return errors.New("ratelimit.max must be bigger than 0")
	}

	if c.RateLimit.Window <= 0 {
		return errors.New("ratelimit.window must be bigger than 0")
	}

	if c.RateLimit.Backend == "redis" && c.RateLimit.RedisAddr == "" {
		return errors.New("ratelimit.redis_addr is required for the redis backend")
	}

	if c.Security.RateLimit < 0 {
		return errors.New("security.rate_limit can't be negative")
	}

	if !slices.Contains(validMailProvider, c.Mail.Provider) {
		return errors.New("invalid mail provider provided")
	}

	if c.Mail.Workers <= 0 {
		return errors.New("mail.workers must be bigger than 0")
	}

	if c.Mail.QueueSize <= 0 {
		return errors.New("mail.queue_size must be bigger than 0")
	}

	if c.Turnstile.Enabled && c.Turnstile.SecretToken == "" {
		return errors.New("turnstile secret token is missing")
	}

	return nil
}

// Warnings lists settings that are valid but probably not what production
// wants. They are meant to be logged once the logger exists.
func (c *Config) Warnings() []string {
	var warnings []string

	if c.Mail.Provider == "log" {
		warnings = append(warnings, "Mail provider is set to log, confirmation emails will not be delivered")
	}

	if !c.Turnstile.Enabled {
		warnings = append(warnings, "Cloudflare's turnstile is disabled. The waitlist endpoint won't be guarded against bots")
	}

	return warnings
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}
