package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the immutable process configuration, built once at startup and
// passed by reference into the components. Nothing reads the environment
// after Load returns.
type Config struct {
	Port          int
	WebhookSecret string
	// InternalKey guards the provisioning and admin endpoints.
	InternalKey string
	DBPath      string

	// PublicBaseURL is this service's externally reachable base URL; the
	// processor's webhook registration points back at it.
	PublicBaseURL string

	BTCPayBaseURL string
	BTCPayAPIKey  string
	// OnChainZpub is the derivation scheme configured on newly
	// provisioned stores' on-chain payment method.
	OnChainZpub    string
	DefaultLogoURL string

	LNURLBaseURL string

	LNDRestURL     string
	LNDMacaroonHex string

	OffRampBaseURL  string
	OffRampUsername string
	OffRampPassword string
	// OffRampRefreshInterval is how often the background task renews the
	// connector's session token.
	OffRampRefreshInterval time.Duration

	BookingNotifyURL string
	BookingAPIKey    string

	// HTTPTimeout bounds every outbound call.
	HTTPTimeout time.Duration

	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

type configFile struct {
	Server struct {
		Port          int    `yaml:"port"`
		WebhookSecret string `yaml:"webhook_secret"`
		InternalKey   string `yaml:"internal_key"`
	} `yaml:"server"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	PublicBaseURL string `yaml:"public_base_url"`
	BTCPay        struct {
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		OnChainZpub    string `yaml:"onchain_zpub"`
		DefaultLogoURL string `yaml:"default_logo_url"`
	} `yaml:"btcpay"`
	LNURL struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"lnurl"`
	LND struct {
		RestURL     string `yaml:"rest_url"`
		MacaroonHex string `yaml:"macaroon_hex"`
	} `yaml:"lnd"`
	OffRamp struct {
		BaseURL        string `yaml:"base_url"`
		Username       string `yaml:"username"`
		Password       string `yaml:"password"`
		RefreshMinutes int    `yaml:"refresh_minutes"`
	} `yaml:"offramp"`
	Booking struct {
		NotifyURL string `yaml:"notify_url"`
		APIKey    string `yaml:"api_key"`
	} `yaml:"booking"`
	HTTPTimeoutSeconds int `yaml:"http_timeout_seconds"`
	Logging            struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"logging"`
}

// Load reads the YAML file at path (missing file is fine, defaults apply)
// and then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Port:                   8080,
		DBPath:                 "forwarder.db",
		OffRampRefreshInterval: 15 * time.Minute,
		HTTPTimeout:            30 * time.Second,
		LogLevel:               "info",
		LogMaxSizeMB:           50,
		LogMaxBackups:          5,
		LogMaxAgeDays:          30,
	}

	if raw, err := os.ReadFile(path); err == nil {
		var f configFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		if f.Server.Port > 0 {
			cfg.Port = f.Server.Port
		}
		cfg.WebhookSecret = f.Server.WebhookSecret
		cfg.InternalKey = f.Server.InternalKey
		if f.Database.Path != "" {
			cfg.DBPath = f.Database.Path
		}
		cfg.PublicBaseURL = f.PublicBaseURL
		cfg.BTCPayBaseURL = f.BTCPay.BaseURL
		cfg.BTCPayAPIKey = f.BTCPay.APIKey
		cfg.OnChainZpub = f.BTCPay.OnChainZpub
		cfg.DefaultLogoURL = f.BTCPay.DefaultLogoURL
		cfg.LNURLBaseURL = f.LNURL.BaseURL
		cfg.LNDRestURL = f.LND.RestURL
		cfg.LNDMacaroonHex = f.LND.MacaroonHex
		cfg.OffRampBaseURL = f.OffRamp.BaseURL
		cfg.OffRampUsername = f.OffRamp.Username
		cfg.OffRampPassword = f.OffRamp.Password
		if f.OffRamp.RefreshMinutes > 0 {
			cfg.OffRampRefreshInterval = time.Duration(f.OffRamp.RefreshMinutes) * time.Minute
		}
		cfg.BookingNotifyURL = f.Booking.NotifyURL
		cfg.BookingAPIKey = f.Booking.APIKey
		if f.HTTPTimeoutSeconds > 0 {
			cfg.HTTPTimeout = time.Duration(f.HTTPTimeoutSeconds) * time.Second
		}
		if f.Logging.Level != "" {
			cfg.LogLevel = f.Logging.Level
		}
		cfg.LogFile = f.Logging.File
		if f.Logging.MaxSizeMB > 0 {
			cfg.LogMaxSizeMB = f.Logging.MaxSizeMB
		}
		if f.Logging.MaxBackups > 0 {
			cfg.LogMaxBackups = f.Logging.MaxBackups
		}
		if f.Logging.MaxAgeDays > 0 {
			cfg.LogMaxAgeDays = f.Logging.MaxAgeDays
		}
	}

	cfg.Port = envInt("PORT", cfg.Port)
	cfg.WebhookSecret = envOrDefault("WEBHOOK_SECRET", cfg.WebhookSecret)
	cfg.InternalKey = envOrDefault("INTERNAL_KEY", cfg.InternalKey)
	cfg.DBPath = envOrDefault("DB_PATH", cfg.DBPath)
	cfg.PublicBaseURL = envOrDefault("PUBLIC_BASE_URL", cfg.PublicBaseURL)
	cfg.BTCPayBaseURL = envOrDefault("BTCPAY_BASE_URL", cfg.BTCPayBaseURL)
	cfg.BTCPayAPIKey = envOrDefault("BTCPAY_API_KEY", cfg.BTCPayAPIKey)
	cfg.OnChainZpub = envOrDefault("ONCHAIN_ZPUB", cfg.OnChainZpub)
	cfg.LNURLBaseURL = envOrDefault("LNURL_BASE_URL", cfg.LNURLBaseURL)
	cfg.LNDRestURL = envOrDefault("LND_REST_URL", cfg.LNDRestURL)
	cfg.LNDMacaroonHex = envOrDefault("LND_MACAROON_HEX", cfg.LNDMacaroonHex)
	cfg.OffRampBaseURL = envOrDefault("OFFRAMP_BASE_URL", cfg.OffRampBaseURL)
	cfg.OffRampUsername = envOrDefault("OFFRAMP_USERNAME", cfg.OffRampUsername)
	cfg.OffRampPassword = envOrDefault("OFFRAMP_PASSWORD", cfg.OffRampPassword)
	cfg.BookingNotifyURL = envOrDefault("BOOKING_NOTIFY_URL", cfg.BookingNotifyURL)
	cfg.BookingAPIKey = envOrDefault("BOOKING_API_KEY", cfg.BookingAPIKey)
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = envOrDefault("LOG_FILE", cfg.LogFile)

	return cfg, nil
}

// Validate checks the fields without which the settlement path cannot run.
func (c *Config) Validate() error {
	if c.WebhookSecret == "" {
		return fmt.Errorf("webhook secret is required")
	}
	if c.BTCPayBaseURL == "" {
		return fmt.Errorf("btcpay base url is required")
	}
	if c.LNURLBaseURL == "" {
		return fmt.Errorf("lnurl base url is required")
	}
	if c.LNDRestURL == "" {
		return fmt.Errorf("lnd rest url is required")
	}
	return nil
}

// OffRampEnabled reports whether the optional fiat connector is configured.
func (c *Config) OffRampEnabled() bool {
	return c.OffRampBaseURL != ""
}

func envOrDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
