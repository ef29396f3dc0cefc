package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/stanza-labs/refdata-cli/internal/resilience"
)

// maxBodyBytes bounds how much of a reference page we read. Documentation
// pages are small; anything larger is truncated rather than buffered whole.
const maxBodyBytes = 2 << 20

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration

	// RateLimiters maps host to limiter. Hosts without an entry get
	// defaultLimit.
	RateLimiters map[string]*rate.Limiter
}

// HTTPFetcher implements Fetcher using net/http with bounded retries and
// per-host rate limiting.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	limiters map[string]*rate.Limiter
	fallback *rate.Limiter
}

// NewHTTPFetcher creates an HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "refdata-cli/1.0"
	}
	limiters := make(map[string]*rate.Limiter, len(opts.RateLimiters))
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: limiters,
		fallback: rate.NewLimiter(20, 20),
	}
}

func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return f.fallback
	}
	if lim, ok := f.limiters[u.Host]; ok {
		return lim
	}
	return f.fallback
}

func (f *HTTPFetcher) retryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    f.opts.MaxRetries,
		InitialBackoff: f.opts.RetryDelay,
		MaxBackoff:     f.opts.Timeout,
		Multiplier:     2.0,
		JitterFraction: 0.25,
		OnRetry:        resilience.RetryLogger("fetcher", "get"),
	}
}

// Fetch performs a GET with retries and returns the document body.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	doc, _, err := f.get(ctx, rawURL, "")
	return doc, err
}

// FetchIfChanged performs a conditional GET with If-None-Match. Returns
// (nil, false, nil) on 304 Not Modified.
func (f *HTTPFetcher) FetchIfChanged(ctx context.Context, rawURL string, etag string) (*Document, bool, error) {
	doc, notModified, err := f.get(ctx, rawURL, etag)
	if err != nil {
		return nil, false, err
	}
	if notModified {
		return nil, false, nil
	}
	return doc, true, nil
}

func (f *HTTPFetcher) get(ctx context.Context, rawURL string, etag string) (*Document, bool, error) {
	type result struct {
		doc         *Document
		notModified bool
	}

	res, err := resilience.DoVal(ctx, f.retryConfig(), func(ctx context.Context) (result, error) {
		if err := f.limiterFor(rawURL).Wait(ctx); err != nil {
			return result{}, eris.Wrap(err, "fetcher: rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return result{}, eris.Wrap(err, "fetcher: create request")
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			// Connection-level failures are classified by IsTransient.
			return result{}, eris.Wrapf(err, "fetcher: get %s", rawURL)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode == http.StatusNotModified && etag != "" {
			return result{notModified: true}, nil
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			err := eris.Errorf("fetcher: status %d from %s", resp.StatusCode, rawURL)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return result{}, resilience.NewTransientError(err, resp.StatusCode)
			}
			return result{}, err
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return result{}, eris.Wrapf(err, "fetcher: read body from %s", rawURL)
		}

		return result{doc: &Document{
			URL:       rawURL,
			Body:      body,
			ETag:      resp.Header.Get("ETag"),
			FetchedAt: time.Now().UTC(),
		}}, nil
	})
	if err != nil {
		zap.L().Warn("fetch failed",
			zap.String("url", rawURL),
			zap.Error(err),
		)
		return nil, false, err
	}

	return res.doc, res.notModified, nil
}
