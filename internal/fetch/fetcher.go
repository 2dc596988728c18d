package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"dashfeed/internal/types"

	"github.com/gregjones/httpcache"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 10 << 20

	acceptHeader = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.9, */*;q=0.8"
)

var Version = "0.1.0"

func UserAgent() string {
	return "dashfeed/" + Version
}

type Config struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string

	// Cache enables the caching transport. Nil disables caching.
	Cache httpcache.Cache

	// Transport is the network transport below the cache. Defaults to a
	// clone of http.DefaultTransport.
	Transport http.RoundTripper

	Logger *slog.Logger
}

// Fetcher retrieves raw feed documents. It is safe for concurrent use.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	logger    *slog.Logger
}

func New(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = UserAgent()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}

	if cfg.Cache != nil {
		cached := httpcache.NewTransport(cfg.Cache)
		cached.Transport = transport
		cached.MarkCachedResponses = true
		transport = cached
	}

	return &Fetcher{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodyBytes,
		logger:    cfg.Logger,
	}
}

// Fetch issues a single GET for url and returns the decoded body. Any
// failure is returned as a *types.FetchError; there are no retries.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &types.FetchError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Encoding", acceptEncoding)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &types.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &types.FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := decodeBody(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return nil, &types.FetchError{URL: url, Err: err}
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, f.maxBody+1))
	if err != nil {
		return nil, &types.FetchError{URL: url, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	if int64(len(data)) > f.maxBody {
		return nil, &types.FetchError{URL: url, Err: fmt.Errorf("body exceeds %d bytes", f.maxBody)}
	}

	f.logger.Debug("Feed fetched",
		"url", url,
		"status", resp.StatusCode,
		"bytes", len(data),
		"from_cache", resp.Header.Get(httpcache.XFromCache) != "",
		"elapsed", time.Since(start))

	return data, nil
}
