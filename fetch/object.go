package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"

	"github.com/pithecene-io/outpost/asset"
	"github.com/pithecene-io/outpost/iox"
)

// SchemeS3 is the URL scheme served by ObjectFetcher.
const SchemeS3 = "s3"

// StoreOpener returns the Lode store backing a bucket.
type StoreOpener func(bucket string) (lode.Store, error)

// ObjectFetcher fetches s3://bucket/key URLs through Lode stores.
// Stores are opened lazily, once per bucket.
type ObjectFetcher struct {
	open     StoreOpener
	maxBytes int64

	mu     sync.Mutex // guards stores
	stores map[string]lode.Store
}

// NewObjectFetcher creates an object fetcher. maxBytes <= 0 uses DefaultMaxBytes.
func NewObjectFetcher(open StoreOpener, maxBytes int64) *ObjectFetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &ObjectFetcher{
		open:     open,
		maxBytes: maxBytes,
		stores:   make(map[string]lode.Store),
	}
}

// S3Config holds configuration for the S3 backend.
type S3Config struct {
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (e.g. MinIO). Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not subdomain).
	UsePathStyle bool
	// MaxBytes caps a single object (default 256 MiB).
	MaxBytes int64
}

// NewS3ObjectFetcher creates an ObjectFetcher backed by S3.
// Uses AWS SDK default credential chain (env vars, shared config, IAM role).
func NewS3ObjectFetcher(ctx context.Context, cfg S3Config) (*ObjectFetcher, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	client := s3.NewFromConfig(awsConfig, s3Opts...)

	open := func(bucket string) (lode.Store, error) {
		return lodes3.New(client, lodes3.Config{Bucket: bucket})
	}
	return NewObjectFetcher(open, cfg.MaxBytes), nil
}

// ParseObjectURL splits s3://bucket/key into bucket and key.
func ParseObjectURL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != SchemeS3 {
		return "", "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", errors.New("object URL must be s3://bucket/key")
	}
	return bucket, key, nil
}

// Fetch reads the object named by rawURL. A missing object is FetchNotFound.
func (f *ObjectFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	bucket, key, err := ParseObjectURL(rawURL)
	if err != nil {
		return nil, &asset.FetchError{Kind: asset.FetchInvalidURL, URL: rawURL, Err: err}
	}

	store, err := f.store(bucket)
	if err != nil {
		return nil, &asset.FetchError{Kind: asset.FetchNetwork, URL: rawURL, Err: err}
	}

	exists, err := store.Exists(ctx, key)
	if err != nil {
		return nil, &asset.FetchError{Kind: transportKind(ctx, err), URL: rawURL, Err: err}
	}
	if !exists {
		return nil, &asset.FetchError{Kind: asset.FetchNotFound, URL: rawURL}
	}

	rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, &asset.FetchError{Kind: transportKind(ctx, err), URL: rawURL, Err: err}
	}
	defer iox.DiscardClose(rc)

	return readBounded(ctx, rc, rawURL, f.maxBytes)
}

func (f *ObjectFetcher) store(bucket string) (lode.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s, ok := f.stores[bucket]; ok {
		return s, nil
	}
	s, err := f.open(bucket)
	if err != nil {
		return nil, fmt.Errorf("open bucket %q: %w", bucket, err)
	}
	f.stores[bucket] = s
	return s, nil
}

// Verify ObjectFetcher implements asset.Fetcher.
var _ asset.Fetcher = (*ObjectFetcher)(nil)
