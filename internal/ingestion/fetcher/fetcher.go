// Package fetcher downloads remote documents for ingestion and reduces HTML
// to plain text.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// HTMLToText replaces every <...> span with a space. Entities are left
// encoded and script or style bodies are kept as text.
func HTMLToText(html string) string {
	return tagPattern.ReplaceAllString(html, " ")
}

type Fetcher struct {
	client     *http.Client
	cfg        config.FetcherConfig
	breaker    *resilience.CircuitBreaker
	metrics    *metrics.Metrics
	localFiles bool
	logger     *slog.Logger
}

// New builds a fetcher whose attempts are bounded by cfg.Timeout, retried
// with backoff, and short-circuited once the breaker opens. client may be nil.
func New(cfg config.FetcherConfig, client *http.Client, m *metrics.Metrics) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	breaker := resilience.NewCircuitBreaker("fetcher", resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.FailureThreshold,
		ResetTimeout:     cfg.ResetTimeout,
		OnStateChange: func(name string, _, to resilience.State) {
			m.SetBreakerState(name, int(to))
		},
	})
	m.SetBreakerState("fetcher", int(resilience.StateClosed))
	return &Fetcher{
		client:  client,
		cfg:     cfg,
		breaker: breaker,
		metrics: m,
		logger:  slog.Default().With("component", "fetcher"),
	}
}

// WithLocalFiles lets Fetch read sources that are not http(s) URLs as paths
// on the local filesystem. Only command-line tools should enable it.
func (f *Fetcher) WithLocalFiles() *Fetcher {
	f.localFiles = true
	return f
}

// Fetch returns the raw body at url. http and https URLs are downloaded;
// anything else is read as a local file path when WithLocalFiles was set and
// rejected otherwise. Every failure wraps ErrFetch.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	var err error
	switch {
	case strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://"):
		body, err = f.fetchRemote(ctx, url)
	case f.localFiles:
		body, err = os.ReadFile(url)
	default:
		err = fmt.Errorf("%w: only http and https sources are allowed", apperrors.ErrInvalidInput)
	}
	f.metrics.ObserveFetch(err)
	if err != nil {
		f.logger.Warn("fetch failed", "url", url, "error", err)
		return nil, fmt.Errorf("%w: %s: %w", apperrors.ErrFetch, url, err)
	}
	f.logger.Debug("fetched", "url", url, "bytes", len(body))
	return body, nil
}

// FetchText fetches url and strips its markup.
func (f *Fetcher) FetchText(ctx context.Context, url string) (string, error) {
	body, err := f.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	return HTMLToText(string(body)), nil
}

func (f *Fetcher) fetchRemote(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	retryCfg := resilience.RetryConfig{
		MaxAttempts:    f.cfg.MaxAttempts,
		InitialDelay:   f.cfg.InitialDelay,
		JitterFraction: 0.1,
	}
	err := resilience.Retry(ctx, "fetch "+url, retryCfg, func() error {
		return f.breaker.Execute(func() error {
			return resilience.WithTimeout(ctx, f.cfg.Timeout, "fetch "+url, func(ctx context.Context) error {
				var err error
				body, err = f.get(ctx, url)
				return err
			})
		})
	})
	return body, err
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("building request: %w", err))
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := fmt.Errorf("non-ok HTTP response: %s", resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, resilience.Permanent(statusErr)
		}
		return nil, statusErr
	}

	reader := io.Reader(resp.Body)
	if f.cfg.MaxBodyBytes > 0 {
		reader = io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if f.cfg.MaxBodyBytes > 0 && int64(len(data)) > f.cfg.MaxBodyBytes {
		return nil, resilience.Permanent(fmt.Errorf("response body exceeds %d bytes", f.cfg.MaxBodyBytes))
	}
	return data, nil
}
