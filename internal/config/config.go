package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingCredential marks a deployment defect: a required API key is absent.
var ErrMissingCredential = errors.New("missing required credential")

type Server struct {
	Host              string   `yaml:"host"`
	Port              string   `yaml:"port"`
	RequestTimeoutSec int      `yaml:"request_timeout_sec"`
	CORSOrigins       []string `yaml:"cors_origins"`
}

// Provider holds the settings shared by every upstream.
type Provider struct {
	APIKey               string `yaml:"api_key"`
	Endpoint             string `yaml:"endpoint"`
	MaxRequestsPerMinute int    `yaml:"max_requests_per_minute"`
	Burst                int    `yaml:"burst"`
}

type Yahoo struct {
	Provider  `yaml:",inline"`
	Interval  string            `yaml:"interval"`
	Range     string            `yaml:"range"`
	SymbolMap map[string]string `yaml:"symbol_map"`
}

type Quote struct {
	DelayMinutes int `yaml:"delay_minutes"`
}

type Market struct {
	Timezone string `yaml:"timezone"`
	Open     string `yaml:"open"`
}

type Insights struct {
	Command    string   `yaml:"command"`
	Args       []string `yaml:"args"`
	TimeoutSec int      `yaml:"timeout_sec"`
}

type Logging struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type Config struct {
	Server       Server   `yaml:"server"`
	AlphaVantage Provider `yaml:"alphavantage"`
	Tiingo       Provider `yaml:"tiingo"`
	Yahoo        Yahoo    `yaml:"yahoo"`
	Quote        Quote    `yaml:"quote"`
	Market       Market   `yaml:"market"`
	Insights     Insights `yaml:"insights"`
	Logging      Logging  `yaml:"logging"`
}

func Default() Config {
	return Config{
		Server: Server{Host: "0.0.0.0", Port: "7171", RequestTimeoutSec: 30},
		AlphaVantage: Provider{
			Endpoint:             "https://www.alphavantage.co",
			MaxRequestsPerMinute: 5,
			Burst:                5,
		},
		Tiingo: Provider{
			Endpoint:             "https://api.tiingo.com",
			MaxRequestsPerMinute: 50,
			Burst:                5,
		},
		Yahoo: Yahoo{
			Provider: Provider{Endpoint: "https://query1.finance.yahoo.com"},
			Interval: "1m",
			Range:    "2d",
		},
		Quote:    Quote{DelayMinutes: 15},
		Market:   Market{Timezone: "America/New_York", Open: "09:30"},
		Insights: Insights{Command: "fin_insight", TimeoutSec: 60},
		Logging:  Logging{Level: "info", Format: "json", Output: "stdout"},
	}
}

// RequestTimeout is the per-request bound on quote resolution.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSec) * time.Second
}

// Delay is the configured delayed-quote lag.
func (c Config) Delay() time.Duration {
	return time.Duration(c.Quote.DelayMinutes) * time.Minute
}

// Validate reports configuration defects. Only the primary key is
// required; the other providers are skipped when their key is absent.
func (c Config) Validate() error {
	if strings.TrimSpace(c.AlphaVantage.APIKey) == "" {
		return fmt.Errorf("%w: ALPHA_VANTAGE_API_KEY", ErrMissingCredential)
	}
	if c.Quote.DelayMinutes < 0 {
		return fmt.Errorf("quote.delay_minutes must be >= 0, got %d", c.Quote.DelayMinutes)
	}
	if c.Server.RequestTimeoutSec <= 0 {
		return fmt.Errorf("server.request_timeout_sec must be > 0, got %d", c.Server.RequestTimeoutSec)
	}
	return nil
}

// Load reads YAML config from path. If path is empty or file does not exist,
// it returns defaults. Environment variables override select fields for secrecy.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString("APP_HOST", &cfg.Server.Host)
	setString("PORT", &cfg.Server.Port)
	setString("APP_PORT", &cfg.Server.Port)
	setInt("REQUEST_TIMEOUT_SEC", &cfg.Server.RequestTimeoutSec, 1)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitCSV(v)
	}

	setString("ALPHAVANTAGE_API_KEY", &cfg.AlphaVantage.APIKey)
	setString("ALPHA_VANTAGE_API_KEY", &cfg.AlphaVantage.APIKey)
	setString("ALPHA_VANTAGE_ENDPOINT", &cfg.AlphaVantage.Endpoint)
	setInt("ALPHA_VANTAGE_MAX_RPM", &cfg.AlphaVantage.MaxRequestsPerMinute, 0)
	setInt("ALPHA_VANTAGE_BURST", &cfg.AlphaVantage.Burst, 1)

	setString("TIINGO_API_KEY", &cfg.Tiingo.APIKey)
	setString("TIINGO_ENDPOINT", &cfg.Tiingo.Endpoint)
	setInt("TIINGO_MAX_RPM", &cfg.Tiingo.MaxRequestsPerMinute, 0)
	setInt("TIINGO_BURST", &cfg.Tiingo.Burst, 1)

	setString("YAHOO_API_KEY", &cfg.Yahoo.APIKey)
	setString("YAHOO_ENDPOINT", &cfg.Yahoo.Endpoint)
	setInt("YAHOO_MAX_RPM", &cfg.Yahoo.MaxRequestsPerMinute, 0)
	setInt("YAHOO_BURST", &cfg.Yahoo.Burst, 1)

	setInt("QUOTE_DELAY_MINUTES", &cfg.Quote.DelayMinutes, 0)
	setString("MARKET_TIMEZONE", &cfg.Market.Timezone)
	setString("MARKET_OPEN", &cfg.Market.Open)

	setString("FIN_INSIGHT_CMD", &cfg.Insights.Command)
	setInt("FIN_INSIGHT_TIMEOUT_SEC", &cfg.Insights.TimeoutSec, 1)

	setString("LOG_LEVEL", &cfg.Logging.Level)
	setString("LOG_FORMAT", &cfg.Logging.Format)
	setString("LOG_OUTPUT", &cfg.Logging.Output)
	setInt("LOG_MAX_AGE_DAYS", &cfg.Logging.MaxAgeDays, 0)
}

func setString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// setInt ignores values below min or that do not parse.
func setInt(key string, dst *int, min int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	x, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || x < min {
		return
	}
	*dst = x
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
