package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

// MinPollInterval keeps the service from hammering the cloud API.
const MinPollInterval = time.Minute

type Config struct {
	XSenseCfg   XSenseConfig
	MqttCfg     MqttConfig
	DatabaseCfg DatabaseConfig
	HTTPCfg     HTTPConfig
	LogLevel    string `env:"LOG_LEVEL" envDefault:"INFO"`
}

type XSenseConfig struct {
	APIURL          string        `env:"XSENSE_API_URL" envDefault:"https://api.x-sense-iot.com"`
	Email           string        `env:"XSENSE_EMAIL"`
	Password        string        `env:"XSENSE_PASSWORD"`
	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"2m"`
	RealtimeTimeout int           `env:"REALTIME_TIMEOUT" envDefault:"5"`
	AuthRetries     int           `env:"AUTH_RETRIES" envDefault:"1"`
	RequestTimeout  time.Duration `env:"XSENSE_REQUEST_TIMEOUT" envDefault:"15s"`
}

// Interval is the configured poll interval floored at MinPollInterval.
func (c XSenseConfig) Interval() time.Duration {
	return max(c.PollInterval, MinPollInterval)
}

type MqttConfig struct {
	Host            string `env:"MQTT_HOST"`
	Username        string `env:"MQTT_USER"`
	Password        string `env:"MQTT_PASS"`
	DiscoveryPrefix string `env:"DISCOVERY_PREFIX" envDefault:"homeassistant"`
	TopicPrefix     string `env:"MQTT_TOPIC_PREFIX" envDefault:"xsense"`
}

type DatabaseConfig struct {
	URL              string `env:"DATABASE_URL"`
	MigrationsFolder string `env:"MIGRATIONS_FOLDER" envDefault:"migrations"`
	RetentionDays    int    `env:"HISTORY_RETENTION_DAYS" envDefault:"8"`
}

// Enabled reports whether state history should be stored.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

type HTTPConfig struct {
	Addr         string `env:"HTTP_ADDR" envDefault:"0.0.0.0:8000"`
	Username     string `env:"API_USERNAME"`
	PasswordHash string `env:"API_PASSWORD_HASH"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

var (
	ErrMissingEmail    = errors.New("xsense email is required")
	ErrMissingPassword = errors.New("xsense password is required")
	ErrMissingMqttHost = errors.New("mqtt host is required")
	ErrRetryBudget     = errors.New("auth retries cannot be negative")
	ErrTimeoutMinutes  = errors.New("realtime timeout must be at least one minute")
	ErrAPIAuth         = errors.New("api username and password hash must be set together")
)

func (c *Config) Validate() error {
	var errs []error
	if c.XSenseCfg.Email == "" {
		errs = append(errs, ErrMissingEmail)
	}
	if c.XSenseCfg.Password == "" {
		errs = append(errs, ErrMissingPassword)
	}
	if c.MqttCfg.Host == "" {
		errs = append(errs, ErrMissingMqttHost)
	}
	if c.XSenseCfg.AuthRetries < 0 {
		errs = append(errs, ErrRetryBudget)
	}
	if c.XSenseCfg.RealtimeTimeout < 1 {
		errs = append(errs, ErrTimeoutMinutes)
	}
	if (c.HTTPCfg.Username == "") != (c.HTTPCfg.PasswordHash == "") {
		errs = append(errs, ErrAPIAuth)
	}
	return errors.Join(errs...)
}
