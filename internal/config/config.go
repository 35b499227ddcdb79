package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	TransportHTTP = "http"
	TransportSMTP = "smtp"

	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

type Config struct {
	// ----------------------------
	// Remote mail service
	// ----------------------------
	APIURL      string        `envconfig:"API_URL" default:"https://mailblast-backend.onrender.com"`
	Transport   string        `envconfig:"TRANSPORT" default:"http"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"60s"`

	// ----------------------------
	// Direct SMTP (TRANSPORT=smtp)
	// ----------------------------
	SMTPHost    string `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	SMTPPort    int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPSubject string `envconfig:"SMTP_SUBJECT" default:"Job Application"`

	// ----------------------------
	// HTTP API
	// ----------------------------
	APIPort        string `envconfig:"API_PORT" default:"8080"`
	LoginRateLimit int    `envconfig:"LOGIN_RATE_LIMIT" default:"1"`
	LoginRateBurst int    `envconfig:"LOGIN_RATE_BURST" default:"5"`
	MaxCSVRows     int    `envconfig:"MAX_CSV_ROWS" default:"1000"`

	// ----------------------------
	// Metrics
	// ----------------------------
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`

	// ----------------------------
	// Credentials
	// ----------------------------
	CredentialsBackend string        `envconfig:"CREDENTIALS_BACKEND" default:"memory"`
	DatabaseURL        string        `envconfig:"DATABASE_URL" default:""`
	DBConnectTimeout   time.Duration `envconfig:"DB_CONNECT_TIMEOUT" default:"30s"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Transport {
	case TransportHTTP:
		if c.APIURL == "" {
			return fmt.Errorf("API_URL is required for the %s transport", TransportHTTP)
		}
	case TransportSMTP:
		if c.SMTPHost == "" || c.SMTPPort <= 0 {
			return fmt.Errorf("SMTP_HOST and SMTP_PORT are required for the %s transport", TransportSMTP)
		}
	default:
		return fmt.Errorf("unknown TRANSPORT %q", c.Transport)
	}

	switch c.CredentialsBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s backend", BackendPostgres)
		}
	default:
		return fmt.Errorf("unknown CREDENTIALS_BACKEND %q", c.CredentialsBackend)
	}

	if c.LoginRateLimit <= 0 || c.LoginRateBurst <= 0 {
		return fmt.Errorf("LOGIN_RATE_LIMIT and LOGIN_RATE_BURST must be positive")
	}

	return nil
}
