package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`
	DBPath      string `envconfig:"DB_PATH" default:"/data/hoardings.db"`
	PhotoPath   string `envconfig:"PHOTO_LOCAL_PATH" default:"/data/images"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`
	LogFile     string `envconfig:"LOG_FILE"`
	MaxUploadMB int64  `envconfig:"MAX_UPLOAD_MB" default:"25"`

	// Listing cache; disabled when RedisAddr is empty.
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	// Enquiry email; logged instead of sent when SMTPHost is empty.
	SMTPHost       string        `envconfig:"SMTP_HOST"`
	SMTPPort       int           `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername   string        `envconfig:"SMTP_USERNAME"`
	SMTPPassword   string        `envconfig:"SMTP_PASSWORD"`
	SMTPFrom       string        `envconfig:"SMTP_FROM"`
	SMTPTimeout    time.Duration `envconfig:"SMTP_TIMEOUT" default:"15s"`
	SMTPRequireTLS bool          `envconfig:"SMTP_REQUIRE_TLS" default:"false"`
	NotifyTo       string        `envconfig:"NOTIFY_TO"`

	EnquiryRatePerMinute int `envconfig:"ENQUIRY_RATE_PER_MINUTE" default:"5"`
	// TrustProxyHeaders must stay off unless a reverse proxy overwrites
	// X-Forwarded-For and X-Real-IP on every request.
	TrustProxyHeaders bool `envconfig:"TRUST_PROXY_HEADERS" default:"false"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	if c.EnquiryRatePerMinute <= 0 {
		return fmt.Errorf("ENQUIRY_RATE_PER_MINUTE must be positive, got %d", c.EnquiryRatePerMinute)
	}
	if c.SMTPHost != "" {
		if c.SMTPFrom == "" {
			return fmt.Errorf("SMTP_FROM is required when SMTP_HOST is set")
		}
		if c.NotifyTo == "" {
			return fmt.Errorf("NOTIFY_TO is required when SMTP_HOST is set")
		}
	}
	return nil
}

// MaxUploadBytes is the largest request body accepted by upload forms.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}
