package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-stock/parser"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "negative retries",
			mutate: func(cfg *Config) {
				cfg.MaxRetries = -1
			},
			wantErr: "max retries",
		},
		{
			name: "backoff above max",
			mutate: func(cfg *Config) {
				cfg.RetryBackoff = time.Minute
				cfg.RetryBackoffMax = time.Second
			},
			wantErr: "retry backoff",
		},
		{
			name: "template without placeholder",
			mutate: func(cfg *Config) {
				cfg.FallbackURLTemplate = "https://example.test/pb/"
			},
			wantErr: "{brand}",
		},
		{
			name: "template without host",
			mutate: func(cfg *Config) {
				cfg.FallbackURLTemplate = "/pb/{brand}/"
			},
			wantErr: "host",
		},
		{
			name: "unknown filter",
			mutate: func(cfg *Config) {
				cfg.OutOfStockFilter = "maybe"
			},
			wantErr: "filter",
		},
		{
			name: "unknown backend",
			mutate: func(cfg *Config) {
				cfg.Storage.Backend = "sheets"
			},
			wantErr: "storage backend",
		},
		{
			name: "sqlite without dsn",
			mutate: func(cfg *Config) {
				cfg.Storage.Backend = "sqlite"
			},
			wantErr: "dsn",
		},
		{
			name: "negative delay",
			mutate: func(cfg *Config) {
				cfg.Delay = -time.Millisecond
			},
			wantErr: "delay",
		},
		{
			name: "negative random delay",
			mutate: func(cfg *Config) {
				cfg.RandomDelay = -time.Millisecond
			},
			wantErr: "random delay",
		},
		{
			name: "unknown report format",
			mutate: func(cfg *Config) {
				cfg.ReportFormat = "xml"
			},
			wantErr: "report format",
		},
		{
			name: "empty listing locator",
			mutate: func(cfg *Config) {
				cfg.Locators.Listing = nil
			},
			wantErr: "listing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	raw := `
timeout: 15s
storage:
  backend: sqlite
  dsn: file:tracker.db
locators:
  grid: section.products
  price:
    - span.price-v3
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("STOCKTRACKER_MAX_RETRIES", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Timeout != 15*time.Second {
		t.Fatalf("timeout=%v, want 15s", cfg.Timeout)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Storage.DSN != "file:tracker.db" {
		t.Fatalf("storage=%+v", cfg.Storage)
	}
	if cfg.Storage.LedgerSheet != "ledger" {
		t.Fatalf("ledger sheet should keep its default, got %q", cfg.Storage.LedgerSheet)
	}
	if cfg.Locators.Grid != "section.products" || cfg.Locators.Price[0] != "span.price-v3" {
		t.Fatalf("locators not merged: %+v", cfg.Locators)
	}
	if len(cfg.Locators.Name) == 0 {
		t.Fatalf("unset locator chains should keep defaults")
	}
	if cfg.MaxRetries != 3 {
		t.Fatalf("max retries=%d, want env override 3", cfg.MaxRetries)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config should validate: %v", err)
	}
}

func TestMergeOverlaysNonZeroFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Notify = NotifyConfig{SMTPAddr: "smtp.default:25", From: "default@shop.test"}

	override := Config{
		Delay:            250 * time.Millisecond,
		RespectRobotsTxt: true,
		Verbose:          true,
		Notify:           NotifyConfig{From: "tracker@shop.test", To: []string{"ops@shop.test"}},
		Storage:          StorageConfig{LedgerPath: "custom/ledger.csv"},
		Locators:         parser.Locators{Stock: []string{" ", "span.sold-out"}},
	}
	if err := cfg.merge(override); err != nil {
		t.Fatalf("merge: %v", err)
	}

	if cfg.Delay != 250*time.Millisecond || !cfg.RespectRobotsTxt || !cfg.Verbose {
		t.Fatalf("scalar overrides lost: delay=%v robots=%v verbose=%v", cfg.Delay, cfg.RespectRobotsTxt, cfg.Verbose)
	}
	if cfg.Timeout != 10*time.Second || cfg.UserAgent == "" {
		t.Fatalf("zero-valued fields must keep defaults: timeout=%v ua=%q", cfg.Timeout, cfg.UserAgent)
	}
	if cfg.Notify.SMTPAddr != "smtp.default:25" || cfg.Notify.From != "tracker@shop.test" || len(cfg.Notify.To) != 1 {
		t.Fatalf("notify should merge field by field, got %+v", cfg.Notify)
	}
	if cfg.Storage.Backend != "csv" || cfg.Storage.LedgerPath != "custom/ledger.csv" {
		t.Fatalf("storage=%+v", cfg.Storage)
	}
	if len(cfg.Locators.Stock) != 1 || cfg.Locators.Stock[0] != "span.sold-out" {
		t.Fatalf("stock chain should be compacted, got %q", cfg.Locators.Stock)
	}
	if len(cfg.Locators.Listing) == 0 {
		t.Fatalf("unset chains keep defaults")
	}
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("STOCKTRACKER_TIMEOUT", "soon")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "STOCKTRACKER_TIMEOUT") {
		t.Fatalf("expected timeout env error, got %v", err)
	}
}
