// Package config collects env-driven settings. godotenv is loaded in main;
// everything here reads plain environment variables with defaults.
package config

import (
	"fmt"
	"os"
	"time"
)

type SMTPConfig struct {
	Host          string
	Port          string
	User          string
	Pass          string
	TLSMode       string // "", "tls", "starttls"
	SkipVerifyTLS bool
}

type ProviderConfig struct {
	Environment string // sandbox | production

	// PayPal
	PayPalBaseURL      string
	PayPalClientID     string
	PayPalClientSecret string

	// Giftogram
	GiftogramBaseURL string
	GiftogramAPIKey  string

	// XE
	XEBaseURL      string
	XEClientID     string
	XEClientSecret string

	Timeout time.Duration
}

type Config struct {
	Addr          string
	DBDSN         string
	JWTSecret     string
	WebhookSecret string

	NotifyFrom string
	NotifyTo   string

	SMTP      SMTPConfig
	Providers ProviderConfig
}

func FromEnv() (Config, error) {
	cfg := Config{
		Addr:          envOr("ADDR", ":8080"),
		DBDSN:         os.Getenv("DB_DSN"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
		NotifyFrom:    envOr("NOTIFY_FROM", "no-reply@local.test"),
		NotifyTo:      os.Getenv("NOTIFY_TO"),
		SMTP: SMTPConfig{
			Host:          os.Getenv("SMTP_HOST"),
			Port:          envOr("SMTP_PORT", "587"),
			User:          os.Getenv("SMTP_USER"),
			Pass:          os.Getenv("SMTP_PASS"),
			TLSMode:       envOr("SMTP_TLS_MODE", "starttls"),
			SkipVerifyTLS: os.Getenv("SMTP_SKIP_VERIFY_TLS") == "true",
		},
		Providers: ProviderConfig{
			Environment:        envOr("PROVIDER_ENV", "sandbox"),
			PayPalBaseURL:      os.Getenv("PAYPAL_BASE_URL"),
			PayPalClientID:     os.Getenv("PAYPAL_CLIENT_ID"),
			PayPalClientSecret: os.Getenv("PAYPAL_CLIENT_SECRET"),
			GiftogramBaseURL:   os.Getenv("GIFTOGRAM_BASE_URL"),
			GiftogramAPIKey:    os.Getenv("GIFTOGRAM_API_KEY"),
			XEBaseURL:          os.Getenv("XE_BASE_URL"),
			XEClientID:         os.Getenv("XE_CLIENT_ID"),
			XEClientSecret:     os.Getenv("XE_CLIENT_SECRET"),
			Timeout:            30 * time.Second,
		},
	}

	if cfg.DBDSN == "" {
		return Config{}, fmt.Errorf("DB_DSN environment variable is required")
	}
	return cfg, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
