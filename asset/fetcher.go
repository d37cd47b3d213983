package asset

import "context"

// Fetcher retrieves asset bytes from a URL.
//
// Relative URLs are resolved by the implementation (typically against the
// controller's base address); the engine passes the string through untouched.
// Failures should be *FetchError. Implementations must not return partial
// content alongside an error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}
