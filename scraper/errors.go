package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gocolly/colly/v2"
)

// FetchKind classifies a failed fetch.
type FetchKind string

const (
	KindTimeout    FetchKind = "TIMEOUT"
	KindTransport  FetchKind = "TRANSPORT"
	KindHTTPStatus FetchKind = "HTTP_STATUS"
)

// FetchError is returned by Fetch for timeouts, connection failures and
// non-2xx responses.
type FetchError struct {
	Kind   FetchKind
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.Status)
	case KindTimeout:
		return fmt.Errorf("fetch %s: timeout: %w", e.URL, e.Err).Error()
	default:
		return fmt.Errorf("fetch %s: transport: %w", e.URL, e.Err).Error()
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could plausibly succeed.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case KindTimeout:
		return true
	case KindTransport:
		return !errors.Is(e.Err, context.Canceled) && !errors.Is(e.Err, colly.ErrRobotsTxtBlocked)
	case KindHTTPStatus:
		return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
	}
	return false
}

func classifyError(err error, statusCode int, url string) *FetchError {
	if err == nil {
		if statusCode >= 200 && statusCode < 300 {
			return nil
		}
		return &FetchError{
			Kind:   KindHTTPStatus,
			URL:    url,
			Status: statusCode,
			Err:    fmt.Errorf("%s", http.StatusText(statusCode)),
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: KindTimeout, URL: url, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: KindTimeout, URL: url, Err: err}
	}
	return &FetchError{Kind: KindTransport, URL: url, Status: statusCode, Err: err}
}

// errorTypeLabel is the metrics label for err; finer grained than FetchKind.
func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		return "other"
	}
	switch fe.Kind {
	case KindTimeout:
		return "timeout"
	case KindTransport:
		if errors.Is(fe.Err, colly.ErrRobotsTxtBlocked) {
			return "robots_blocked"
		}
		var opErr *net.OpError
		if errors.As(fe.Err, &opErr) {
			return "connection"
		}
		return "transport"
	}
	switch {
	case fe.Status == http.StatusForbidden:
		return "forbidden"
	case fe.Status == http.StatusNotFound:
		return "not_found"
	case fe.Status == http.StatusTooManyRequests:
		return "rate_limited"
	case fe.Status >= http.StatusInternalServerError:
		return "server_error"
	}
	return "http_status"
}
