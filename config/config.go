package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/aluiziolira/go-scrape-stock/parser"
)

// Config holds tracker configuration.
type Config struct {
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      int           `yaml:"maxRetries"`
	RetryBackoff    time.Duration `yaml:"retryBackoff"`
	RetryBackoffMax time.Duration `yaml:"retryBackoffMax"`
	UserAgent       string        `yaml:"userAgent"`

	// Delay and RandomDelay space out requests to the same storefront host.
	Delay            time.Duration `yaml:"delay"`
	RandomDelay      time.Duration `yaml:"randomDelay"`
	RespectRobotsTxt bool          `yaml:"respectRobotsTxt"`
	// CloudflareBypass wraps the transport with browser-like TLS and headers
	// for storefronts behind an anti-bot challenge.
	CloudflareBypass bool `yaml:"cloudflareBypass"`

	// FallbackURLTemplate builds a storefront URL for brands missing from
	// the registry; {brand} is replaced by the lowercased brand name.
	FallbackURLTemplate string `yaml:"fallbackUrlTemplate"`
	// SuggestCacheSize bounds the memo of "did you mean" brand suggestions.
	SuggestCacheSize int `yaml:"suggestCacheSize"`

	// OutOfStockFilter selects the ledger predicate: "not-in-stock" or
	// "out-of-stock".
	OutOfStockFilter string `yaml:"outOfStockFilter"`

	Storage  StorageConfig   `yaml:"storage"`
	Locators parser.Locators `yaml:"locators"`
	Notify   NotifyConfig    `yaml:"notify"`

	// ReportOut is an optional export path; ReportFormat is csv, json or dual.
	ReportOut    string `yaml:"reportOut"`
	ReportFormat string `yaml:"reportFormat"`

	MetricsAddr string `yaml:"metricsAddr"`
	Verbose     bool   `yaml:"verbose"`
}

// StorageConfig selects the backing store for the brand registry and the ledger.
type StorageConfig struct {
	// Backend is csv, sqlite or postgres.
	Backend       string `yaml:"backend"`
	RegistryPath  string `yaml:"registryPath"`
	LedgerPath    string `yaml:"ledgerPath"`
	DSN           string `yaml:"dsn"`
	RegistrySheet string `yaml:"registrySheet"`
	LedgerSheet   string `yaml:"ledgerSheet"`
}

// NotifyConfig configures the optional out-of-stock e-mail.
type NotifyConfig struct {
	SMTPAddr string   `yaml:"smtpAddr"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// Enabled reports whether enough settings are present to send mail.
func (n NotifyConfig) Enabled() bool {
	return n.SMTPAddr != "" && n.From != "" && len(n.To) > 0
}

// DefaultConfig returns defaults for the production storefront.
func DefaultConfig() *Config {
	return &Config{
		Timeout:             10 * time.Second,
		MaxRetries:          0,
		Delay:               0,
		RandomDelay:         0,
		RespectRobotsTxt:    false,
		RetryBackoff:        500 * time.Millisecond,
		RetryBackoffMax:     5 * time.Second,
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/110.0.0.0 Safari/537.36",
		FallbackURLTemplate: "https://www.bigbasket.com/pb/{brand}/",
		SuggestCacheSize:    256,
		OutOfStockFilter:    "not-in-stock",
		ReportFormat:        "json",
		Storage: StorageConfig{
			Backend:       "csv",
			RegistryPath:  "data/brands.csv",
			LedgerPath:    "data/ledger.csv",
			RegistrySheet: "brands",
			LedgerSheet:   "ledger",
		},
		Locators: parser.DefaultLocators(),
	}
}

// Load reads a YAML file over the defaults and applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := cfg.merge(fileCfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// merge overlays the non-zero fields of o. Selector chains go through
// Locators.Merge so blank selectors are dropped.
func (c *Config) merge(o Config) error {
	locators := c.Locators.Merge(o.Locators)
	if err := mergo.Merge(c, o, mergo.WithOverride); err != nil {
		return fmt.Errorf("merge config: %w", err)
	}
	c.Locators = locators
	return nil
}

func (c *Config) applyEnv() error {
	if v, ok := EnvString("STOCKTRACKER_STORAGE_BACKEND"); ok {
		c.Storage.Backend = v
	}
	if v, ok := EnvString("STOCKTRACKER_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := EnvString("STOCKTRACKER_METRICS_ADDR"); ok {
		c.MetricsAddr = v
	}
	if v, ok := EnvString("STOCKTRACKER_SMTP_PASSWORD"); ok {
		c.Notify.Password = v
	}
	if v, ok, err := EnvDuration("STOCKTRACKER_TIMEOUT"); err != nil {
		return fmt.Errorf("invalid STOCKTRACKER_TIMEOUT: %w", err)
	} else if ok {
		c.Timeout = v
	}
	if v, ok, err := EnvDuration("STOCKTRACKER_DELAY"); err != nil {
		return fmt.Errorf("invalid STOCKTRACKER_DELAY: %w", err)
	} else if ok {
		c.Delay = v
	}
	if v, ok, err := EnvInt("STOCKTRACKER_MAX_RETRIES"); err != nil {
		return fmt.Errorf("invalid STOCKTRACKER_MAX_RETRIES: %w", err)
	} else if ok {
		c.MaxRetries = v
	}
	return nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	if !strings.Contains(c.FallbackURLTemplate, "{brand}") {
		return fmt.Errorf("fallback url template must contain {brand}")
	}
	parsed, err := url.Parse(strings.ReplaceAll(c.FallbackURLTemplate, "{brand}", "x"))
	if err != nil {
		return fmt.Errorf("invalid fallback url template: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("fallback url template must include a host")
	}
	if c.SuggestCacheSize <= 0 {
		return fmt.Errorf("suggest cache size must be positive")
	}
	if c.OutOfStockFilter != "not-in-stock" && c.OutOfStockFilter != "out-of-stock" {
		return fmt.Errorf("out-of-stock filter must be not-in-stock or out-of-stock")
	}

	switch c.Storage.Backend {
	case "csv":
		if c.Storage.RegistryPath == "" || c.Storage.LedgerPath == "" {
			return fmt.Errorf("csv storage needs registry and ledger paths")
		}
	case "sqlite", "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("%s storage needs a dsn", c.Storage.Backend)
		}
		if c.Storage.RegistrySheet == "" || c.Storage.LedgerSheet == "" {
			return fmt.Errorf("sql storage needs registry and ledger sheet names")
		}
	default:
		return fmt.Errorf("storage backend must be csv, sqlite, or postgres")
	}

	switch strings.ToLower(c.ReportFormat) {
	case "csv", "json", "dual":
	default:
		return fmt.Errorf("report format must be csv, json, or dual")
	}

	if err := c.Locators.Validate(); err != nil {
		return fmt.Errorf("locators: %w", err)
	}
	return nil
}
