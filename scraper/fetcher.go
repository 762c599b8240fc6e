// Package scraper retrieves storefront pages.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-scrape-stock/config"
)

// Fetcher issues single GET requests for storefront pages through a colly
// collector.
type Fetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	Metrics   *Metrics

	// wait sleeps between retries; replaced in tests.
	wait func(ctx context.Context, d time.Duration) error
}

// NewFetcher builds a fetcher configured from cfg. A nil metrics bundle
// disables instrumentation.
func NewFetcher(cfg *config.Config, metrics *Metrics) (*Fetcher, error) {
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive")
	}

	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.ParseHTTPErrorResponse = true

	// limit rules live on the shared backend, so per-fetch clones honour them
	if cfg.Delay > 0 || cfg.RandomDelay > 0 {
		if err := collector.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: 1,
			Delay:       cfg.Delay,
			RandomDelay: cfg.RandomDelay,
		}); err != nil {
			return nil, fmt.Errorf("configure rate limit: %w", err)
		}
	}

	f := &Fetcher{
		cfg:       cfg,
		collector: collector,
		Metrics:   metrics,
		wait:      sleepContext,
	}
	f.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: cfg.Timeout,
	})
	return f, nil
}

// WithTransport replaces the HTTP transport used for requests. With
// CloudflareBypass set the transport is wrapped first.
func (f *Fetcher) WithTransport(transport http.RoundTripper) {
	if f.cfg.CloudflareBypass {
		transport = cloudflarebp.AddCloudFlareByPass(transport)
	}
	f.collector.WithTransport(transport)
}

// Fetch returns the raw body of target on a 2xx response. Every failure is
// a *FetchError. Retries happen only when MaxRetries is positive.
func (f *Fetcher) Fetch(ctx context.Context, target string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	for attempt := 0; ; attempt++ {
		body, err := f.fetchOnce(ctx, target)
		if err == nil {
			return body, nil
		}
		if attempt >= f.cfg.MaxRetries || !err.Retryable() {
			return nil, err
		}

		f.Metrics.IncRetries()
		delay := f.backoff(attempt + 1)
		slog.Debug("retrying fetch",
			slog.String("url", target),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)
		if waitErr := f.wait(ctx, delay); waitErr != nil {
			return nil, classifyError(waitErr, 0, target)
		}
	}
}

func (f *Fetcher) fetchOnce(ctx context.Context, target string) ([]byte, *FetchError) {
	if err := ctx.Err(); err != nil {
		return nil, classifyError(err, 0, target)
	}

	var (
		body   []byte
		status int
	)
	c := f.collector.Clone()
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})

	f.Metrics.IncRequest("started")
	start := time.Now()
	err := c.Visit(target)
	f.Metrics.ObserveDuration(time.Since(start))

	if fe := classifyError(err, status, target); fe != nil {
		f.Metrics.IncRequest("failed")
		f.Metrics.IncError(errorTypeLabel(fe))
		slog.Error("fetch failed",
			slog.String("url", target),
			slog.String("kind", string(fe.Kind)),
			slog.Int("status", fe.Status),
			slog.Any("error", fe.Err),
		)
		return nil, fe
	}

	f.Metrics.IncRequest("succeeded")
	return body, nil
}

func (f *Fetcher) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := f.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := f.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// AsFetchError unwraps err into a *FetchError if it is one.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
