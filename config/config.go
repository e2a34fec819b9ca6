package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	Env           string `env:"ENVIRONMENT" envDefault:"development"`
	ServerPort    int    `env:"SERVER_PORT" envDefault:"8080"`
	APIURL        string `env:"API_URL" envDefault:"http://localhost:1337/api"`
	MediaURL      string `env:"MEDIA_URL" envDefault:"http://localhost:1337"`
	DatabasePath  string `env:"DATABASE_PATH" envDefault:"manzil.sqlite"`
	SessionSecret string `env:"SESSION_SECRET"`
	ContactInbox  string `env:"CONTACT_INBOX"`
	Sweeper       struct {
		IntervalSecs   int `env:"SWEEP_INTERVAL_SECS" envDefault:"300"`
		ClientIdleMins int `env:"CLIENT_IDLE_MINUTES" envDefault:"60"`
	}
	Payment struct {
		Key      string `env:"RAZORPAY_KEY"`
		Currency string `env:"PAYMENT_CURRENCY" envDefault:"INR"`
		Merchant string `env:"PAYMENT_MERCHANT" envDefault:"Manzil Subscription"`
	}
	Mailgun struct {
		Domain      string `env:"MAILGUN_DOMAIN"`
		APIKey      string `env:"MAILGUN_API_KEY"`
		SenderFrom  string `env:"MAILGUN_SENDER_FROM"`
		TimeoutSecs int    `env:"MAILGUN_TIMEOUT_SECS" envDefault:"10"`
	}

	log *zap.Logger
}

const devSessionSecret = "manzil-development-session-secret"

func NewConfig(lc fx.Lifecycle, log *zap.Logger) *Config {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := Parse()
	if err != nil {
		log.Sugar().Panic(err)
	}
	cfg.log = log

	if err := cfg.validate(); err != nil {
		if cfg.Env == "development" {
			log.Sugar().Infof("%s (session secret will be set to default in development env)", err)
			cfg.SessionSecret = devSessionSecret
		} else {
			log.Sugar().Panic(err)
		}
	}
	return cfg
}

// Parse reads the configuration from the process environment.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.MediaURL = strings.TrimRight(cfg.MediaURL, "/")
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.SessionSecret == "" {
		return errors.New("SESSION_SECRET envvar must be populated")
	}
	return nil
}

func (cfg *Config) MailEnabled() bool {
	return cfg.Mailgun.Domain != "" && cfg.Mailgun.APIKey != ""
}
