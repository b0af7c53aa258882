// Package fetch performs the crawler's HTTP work: single-attempt GETs,
// retry with exponential backoff, robots.txt decisions, and sitemap
// parsing for seed discovery.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/docscrape/docscrape/internal/model"
)

// Config holds the HTTP client and retry settings for a Fetcher.
type Config struct {
	// Timeout bounds each request from dial to body read.
	Timeout time.Duration

	// UserAgent is sent on every request.
	UserAgent string

	// FollowRedirects controls automatic 3xx handling.
	FollowRedirects bool

	// MaxRedirects bounds the redirect chain when following.
	MaxRedirects int

	// MaxIdleConns, MaxIdleConnsPerHost, and IdleConnTimeout tune the
	// shared transport's connection pool.
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// InitialRetryDelay is the base of the exponential backoff.
	InitialRetryDelay time.Duration

	// MaxRetryDelay caps the backoff.
	MaxRetryDelay time.Duration

	// MaxBodySize truncates response bodies; 0 means the default 10MB.
	MaxBodySize int64
}

// DefaultConfig returns fetcher settings suitable for polite crawling.
func DefaultConfig() Config {
	return Config{
		Timeout:             30 * time.Second,
		UserAgent:           "docscrape/1.0 (+https://github.com/docscrape/docscrape)",
		FollowRedirects:     true,
		MaxRedirects:        10,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
		MaxRetries:          3,
		InitialRetryDelay:   time.Second,
		MaxRetryDelay:       30 * time.Second,
		MaxBodySize:         10 * 1024 * 1024,
	}
}

// Fetcher issues HTTP GETs with the configured client settings. It is
// stateless beyond its configuration and safe for concurrent use.
type Fetcher struct {
	config Config
	client *http.Client

	// sleep is swappable for tests.
	sleep func(context.Context, time.Duration) error
}

// New creates a Fetcher from the given config.
func New(config Config) *Fetcher {
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = 10 * 1024 * 1024
	}

	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
	}

	if config.FollowRedirects {
		maxRedirects := config.MaxRedirects
		if maxRedirects <= 0 {
			maxRedirects = 10
		}
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		}
	} else {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &Fetcher{
		config: config,
		client: client,
		sleep:  sleepCtx,
	}
}

// UserAgent returns the configured user agent, used for robots matching.
func (f *Fetcher) UserAgent() string {
	return f.config.UserAgent
}

// MaxRetries returns the configured retry budget.
func (f *Fetcher) MaxRetries() int {
	return f.config.MaxRetries
}

// FetchOnce performs a single GET attempt. Transport errors and
// timeouts yield StatusCode 0 with a descriptive error; a 3xx observed
// while redirects are disabled sets IsRedirect and FinalURL from the
// Location header.
func (f *Fetcher) FetchOnce(ctx context.Context, url string) model.FetchResult {
	result := model.FetchResult{FinalURL: url}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.Error = fmt.Sprintf("invalid request: %v", err)
		return result
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req)
	result.ResponseTimeMillis = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = classifyTransportError(err)
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.ContentType = resp.Header.Get("Content-Type")
	if resp.Request != nil && resp.Request.URL != nil {
		result.FinalURL = resp.Request.URL.String()
	}

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		result.IsRedirect = true
		if loc := resp.Header.Get("Location"); loc != "" {
			result.FinalURL = loc
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodySize))
	result.ResponseTimeMillis = time.Since(start).Milliseconds()
	if err != nil {
		result.StatusCode = 0
		result.Error = classifyTransportError(err)
		return result
	}
	result.Body = body

	if !result.Success() && !result.IsRedirect {
		result.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return result
}

// FetchWithRetry invokes FetchOnce up to MaxRetries+1 times, retrying
// only retryable outcomes (transport failure, 429, 5xx) and sleeping
// min(initial * 2^(attempt-1), max) with +/-10% jitter between
// attempts. The last attempt's result is returned; attempts reports how
// many were made.
func (f *Fetcher) FetchWithRetry(ctx context.Context, url string) (model.FetchResult, int) {
	var result model.FetchResult
	attempts := 0

	for attempt := 1; attempt <= f.config.MaxRetries+1; attempt++ {
		result = f.FetchOnce(ctx, url)
		attempts = attempt

		if result.Success() || !result.IsRetryable() {
			return result, attempts
		}
		if attempt > f.config.MaxRetries {
			break
		}

		if err := f.sleep(ctx, f.backoff(attempt)); err != nil {
			result.Error = fmt.Sprintf("retry cancelled: %v", err)
			return result, attempts
		}
	}

	return result, attempts
}

// backoff computes the sleep before retrying after the given attempt.
func (f *Fetcher) backoff(attempt int) time.Duration {
	delay := f.config.InitialRetryDelay << (attempt - 1)
	if delay > f.config.MaxRetryDelay || delay <= 0 {
		delay = f.config.MaxRetryDelay
	}

	j := int64(delay) / 10
	if j > 0 {
		delay += time.Duration(rand.Int63n(2*j+1) - j) //nolint:gosec // Backoff jitter, not cryptographic
	}
	return delay
}

// classifyTransportError renders a transport failure as a stable,
// descriptive message so error kinds classify cleanly downstream.
func classifyTransportError(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout: " + err.Error()
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout: " + err.Error()
	case strings.Contains(err.Error(), "Client.Timeout"):
		return "timeout: " + err.Error()
	default:
		return "network error: " + err.Error()
	}
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
