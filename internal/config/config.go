// Package config loads typed service configuration from environment
// variables and an optional config file.
package config

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config is the top-level service configuration.
type Config struct {
	Environment string `mapstructure:"environment"`

	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	Verifier  VerifierConfig  `mapstructure:"verifier"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Rates     RatesConfig     `mapstructure:"rates"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres | sqlite
	DSN    string `mapstructure:"dsn"`
}

// PaymentConfig holds the trusted, server-side payment settings. Values
// from this struct are snapshotted into a claim at creation time and are
// never overridden by client input.
type PaymentConfig struct {
	// ReceiverAddress is the wallet address customers are instructed to
	// pay. It must work on every chain the verifier supports.
	ReceiverAddress string `mapstructure:"receiver_address"`

	// PrimaryCurrency is the fiat currency orders are denominated in.
	PrimaryCurrency string `mapstructure:"primary_currency"`

	// TokenRates maps an accepted token ticker to its quoted rate in the
	// primary currency, e.g. {"ETH": "4000", "DAI": "1"}. The key set
	// doubles as the token allow-list sent to the verifier.
	TokenRates map[string]string `mapstructure:"token_rates"`

	// RetryTimeout is how long a customer must wait before submitting a
	// replacement claim for the same payment.
	RetryTimeout time.Duration `mapstructure:"retry_timeout"`
}

type VerifierConfig struct {
	// Endpoint is the base URL of the transfer-verification service.
	Endpoint string `mapstructure:"endpoint"`

	// CACertPath overrides CHAINPAY_VERIFIER_CA_CERT / the mkcert
	// fallback when set.
	CACertPath string `mapstructure:"ca_cert_path"`

	Timeout time.Duration `mapstructure:"timeout"`
}

type ReconcileConfig struct {
	// Schedule is a cron expression for periodic runs in serve mode.
	Schedule string `mapstructure:"schedule"`

	// DryRun controls whether scheduled runs mutate state. Scheduled
	// runs default to live; the CLI defaults to dry run.
	DryRun bool `mapstructure:"dry_run"`
}

type RatesConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TokenAllowlist returns the accepted token tickers in sorted-input order.
func (c PaymentConfig) TokenAllowlist() []string {
	tickers := make([]string, 0, len(c.TokenRates))
	for ticker := range c.TokenRates {
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if ticker == "" {
			continue
		}
		tickers = append(tickers, ticker)
	}
	return tickers
}

// TokenRate returns the configured rate for a ticker, if present.
func (c PaymentConfig) TokenRate(ticker string) (decimal.Decimal, bool) {
	raw, ok := c.TokenRates[strings.ToUpper(strings.TrimSpace(ticker))]
	if !ok {
		return decimal.Decimal{}, false
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return rate, true
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// Load reads configuration from CHAINPAY_* environment variables and, when
// present, a chainpay.yaml file in the working directory.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CHAINPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("chainpay")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/chainpay")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("payment.primary_currency", "USD")
	v.SetDefault("payment.retry_timeout", 30*time.Minute)
	v.SetDefault("verifier.endpoint", "https://127.0.0.1:8443")
	v.SetDefault("verifier.timeout", 10*time.Second)
	v.SetDefault("reconcile.schedule", "@every 5m")
	v.SetDefault("reconcile.dry_run", false)
	v.SetDefault("rates.enabled", true)
	v.SetDefault("rates.ttl", 15*time.Minute)
	v.SetDefault("rates.timeout", 10*time.Second)
}
