// Package fetch provides asset.Fetcher implementations.
//
// HTTPFetcher serves http(s) URLs and resolves relative URLs against the
// controller base address. ObjectFetcher serves s3:// URLs through a Lode
// store. Router picks one by URL scheme.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pithecene-io/outpost/asset"
	"github.com/pithecene-io/outpost/iox"
)

// DefaultTimeout is the default per-request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultMaxBytes caps a single asset body (256 MiB).
const DefaultMaxBytes = 256 * 1024 * 1024

// HTTPConfig configures an HTTPFetcher.
type HTTPConfig struct {
	// BaseURL resolves relative asset URLs (usually the C2 heartbeat URL).
	// Optional; without it relative URLs fail with FetchInvalidURL.
	BaseURL string
	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration
	// MaxBytes caps the response body (default 256 MiB).
	MaxBytes int64
	// Headers are added to every request.
	Headers map[string]string
}

// HTTPFetcher fetches assets over HTTP(S).
type HTTPFetcher struct {
	config HTTPConfig
	base   *url.URL
	client *http.Client
}

// NewHTTPFetcher creates an HTTP fetcher from the given config.
func NewHTTPFetcher(cfg HTTPConfig) (*HTTPFetcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}

	f := &HTTPFetcher{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.BaseURL != "" {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
		}
		if base.Scheme == "" || base.Host == "" {
			return nil, fmt.Errorf("base URL %q must be absolute", cfg.BaseURL)
		}
		f.base = base
	}
	return f, nil
}

// Resolve returns the absolute URL for raw. URLs with a scheme are returned
// unchanged; anything else is resolved against the base URL.
func (f *HTTPFetcher) Resolve(raw string) (string, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return raw, nil
	}
	if f.base == nil {
		return "", errors.New("relative URL without a base URL")
	}
	return f.base.ResolveReference(ref).String(), nil
}

// Fetch retrieves the body at rawURL. Non-2xx responses, oversized bodies,
// and transport errors are *asset.FetchError. No partial body is returned.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	target, err := f.Resolve(rawURL)
	if err != nil {
		return nil, &asset.FetchError{Kind: asset.FetchInvalidURL, URL: rawURL, Err: err}
	}
	if scheme := strings.ToLower(target[:strings.Index(target, ":")]); scheme != "http" && scheme != "https" {
		return nil, &asset.FetchError{Kind: asset.FetchUnsupportedScheme, URL: target}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &asset.FetchError{Kind: asset.FetchInvalidURL, URL: target, Err: err}
	}
	for k, v := range f.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &asset.FetchError{Kind: transportKind(ctx, err), URL: target, Err: err}
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain body to allow connection reuse
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		kind := asset.FetchStatus
		if resp.StatusCode == http.StatusNotFound {
			kind = asset.FetchNotFound
		}
		return nil, &asset.FetchError{Kind: kind, URL: target, StatusCode: resp.StatusCode}
	}

	return readBounded(ctx, resp.Body, target, f.config.MaxBytes)
}

// readBounded reads at most maxBytes from r. Bodies above the cap are rejected.
func readBounded(ctx context.Context, r io.Reader, target string, maxBytes int64) ([]byte, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, &asset.FetchError{Kind: transportKind(ctx, err), URL: target, Err: err}
	}
	if n > maxBytes {
		return nil, &asset.FetchError{
			Kind: asset.FetchTooLarge,
			URL:  target,
			Err:  fmt.Errorf("body exceeds %d bytes", maxBytes),
		}
	}
	return buf.Bytes(), nil
}

// transportKind separates timeouts from other network failures.
func transportKind(ctx context.Context, err error) asset.FetchErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return asset.FetchTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return asset.FetchTimeout
	}
	return asset.FetchNetwork
}

// Verify HTTPFetcher implements asset.Fetcher.
var _ asset.Fetcher = (*HTTPFetcher)(nil)
