package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/outpost/adapter"
	"github.com/pithecene-io/outpost/adapter/redis"
	"github.com/pithecene-io/outpost/adapter/webhook"
	"github.com/pithecene-io/outpost/asset"
	"github.com/pithecene-io/outpost/cli/config"
	"github.com/pithecene-io/outpost/fetch"
)

// loadConfig reads --config when given, applies flag overrides, then fills
// defaults. Validation is left to the caller.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := &config.Config{}
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	overrides := []struct {
		flag string
		dst  *string
	}{
		{"asset-dir", &cfg.Agent.AssetDir},
		{"agent-id", &cfg.Agent.Identifier},
		{"c2-url", &cfg.C2.URL},
		{"acknowledge-url", &cfg.C2.AcknowledgeURL},
		{"encoding", &cfg.C2.Encoding},
		{"log-level", &cfg.Log.Level},
	}
	for _, o := range overrides {
		if c.IsSet(o.flag) {
			*o.dst = c.String(o.flag)
		}
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// openStore opens the configured asset root.
func openStore(c *cli.Context) (*asset.Store, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return asset.NewStore(cfg.AssetRoot())
}

// newFetcher routes s3:// URLs to S3 and everything else to HTTP, with
// relative URLs resolved against baseURL.
func newFetcher(ctx context.Context, cfg *config.Config, baseURL string) (asset.Fetcher, error) {
	httpFetcher, err := fetch.NewHTTPFetcher(fetch.HTTPConfig{
		BaseURL:  baseURL,
		Timeout:  cfg.Fetch.Timeout.Duration,
		MaxBytes: cfg.Fetch.MaxBytes,
		Headers:  cfg.Fetch.Headers,
	})
	if err != nil {
		return nil, err
	}

	objectFetcher, err := fetch.NewS3ObjectFetcher(ctx, fetch.S3Config{
		Region:       cfg.Fetch.S3.Region,
		Endpoint:     cfg.Fetch.S3.Endpoint,
		UsePathStyle: cfg.Fetch.S3.S3PathStyle,
		MaxBytes:     cfg.Fetch.MaxBytes,
	})
	if err != nil {
		return nil, err
	}

	return fetch.NewRouter(httpFetcher).Handle(fetch.SchemeS3, objectFetcher), nil
}

// newNotifier builds the configured adapter. It returns nil when none is
// configured.
func newNotifier(cfg *config.Config) (adapter.Adapter, error) {
	retries := 0
	if cfg.Adapter.Retries != nil {
		retries = *cfg.Adapter.Retries
	}

	switch cfg.Adapter.Type {
	case "":
		return nil, nil
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     cfg.Adapter.URL,
			Headers: cfg.Adapter.Headers,
			Timeout: cfg.Adapter.Timeout.Duration,
			Retries: retries,
		})
	case "redis":
		return redis.New(redis.Config{
			URL:     cfg.Adapter.URL,
			Channel: cfg.Adapter.Channel,
			Timeout: cfg.Adapter.Timeout.Duration,
			Retries: retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type: %s", cfg.Adapter.Type)
	}
}
