package fetch

import (
	"context"
	"net/url"
	"strings"

	"github.com/pithecene-io/outpost/asset"
)

// Router dispatches fetches by URL scheme. URLs without a scheme, and schemes
// with no registered fetcher, go to the fallback.
type Router struct {
	fallback asset.Fetcher
	byScheme map[string]asset.Fetcher
}

// NewRouter creates a router with the given fallback (usually an HTTPFetcher).
func NewRouter(fallback asset.Fetcher) *Router {
	return &Router{fallback: fallback, byScheme: make(map[string]asset.Fetcher)}
}

// Handle registers f for scheme. Registration happens during setup only.
func (r *Router) Handle(scheme string, f asset.Fetcher) *Router {
	r.byScheme[strings.ToLower(scheme)] = f
	return r
}

// Fetch implements asset.Fetcher.
func (r *Router) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if u, err := url.Parse(rawURL); err == nil && u.Scheme != "" {
		if f, ok := r.byScheme[strings.ToLower(u.Scheme)]; ok {
			return f.Fetch(ctx, rawURL)
		}
	}
	if r.fallback == nil {
		return nil, &asset.FetchError{Kind: asset.FetchUnsupportedScheme, URL: rawURL}
	}
	return r.fallback.Fetch(ctx, rawURL)
}

// Verify Router implements asset.Fetcher.
var _ asset.Fetcher = (*Router)(nil)
