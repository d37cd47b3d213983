package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pithecene-io/outpost/c2"
	"github.com/pithecene-io/outpost/log"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultAgentClass      = "default"
	DefaultHeartbeatPeriod = time.Second
	DefaultC2Timeout       = 10 * time.Second
	DefaultQueueSize       = 16
	DefaultFetchTimeout    = 30 * time.Second
	DefaultLogLevel        = "info"

	// assetSubdir is the asset root below the agent home.
	assetSubdir = "asset"
)

// Config represents an outpost.yaml file.
// CLI flags always override config values.
type Config struct {
	Agent   AgentConfig   `yaml:"agent"`
	C2      C2Config      `yaml:"c2"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Adapter AdapterConfig `yaml:"adapter"`
	Log     LogConfig     `yaml:"log"`
}

// AgentConfig identifies the agent and locates its asset root.
type AgentConfig struct {
	Identifier string `yaml:"identifier"`
	Class      string `yaml:"class"`
	// Home is the agent home; the asset root defaults to <home>/asset.
	Home string `yaml:"home"`
	// AssetDir overrides the asset root.
	AssetDir string `yaml:"asset_dir"`
}

// C2Config configures the controller channel.
type C2Config struct {
	URL             string            `yaml:"url"`
	AcknowledgeURL  string            `yaml:"acknowledge_url"`
	HeartbeatPeriod Duration          `yaml:"heartbeat_period"`
	Encoding        string            `yaml:"encoding"`
	Timeout         Duration          `yaml:"timeout"`
	Retries         *int              `yaml:"retries,omitempty"`
	QueueSize       int               `yaml:"queue_size"`
	Headers         map[string]string `yaml:"headers,omitempty"`
}

// FetchConfig configures asset downloads.
type FetchConfig struct {
	Timeout  Duration          `yaml:"timeout"`
	MaxBytes int64             `yaml:"max_bytes"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	S3       S3Config          `yaml:"s3"`
}

// S3Config configures s3:// asset sources.
type S3Config struct {
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig configures assets_synced notifications.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML renders the duration in Go notation.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// ApplyDefaults fills unset values.
func (c *Config) ApplyDefaults() {
	if c.Agent.Identifier == "" {
		if host, err := os.Hostname(); err == nil {
			c.Agent.Identifier = host
		}
	}
	if c.Agent.Class == "" {
		c.Agent.Class = DefaultAgentClass
	}
	if c.Agent.Home == "" {
		c.Agent.Home = "."
	}

	if c.C2.AcknowledgeURL == "" {
		c.C2.AcknowledgeURL = c.C2.URL
	}
	if c.C2.HeartbeatPeriod.Duration <= 0 {
		c.C2.HeartbeatPeriod.Duration = DefaultHeartbeatPeriod
	}
	if c.C2.Encoding == "" {
		c.C2.Encoding = string(c2.EncodingJSON)
	}
	if c.C2.Timeout.Duration <= 0 {
		c.C2.Timeout.Duration = DefaultC2Timeout
	}
	if c.C2.Retries == nil {
		retries := c2.DefaultRetries
		c.C2.Retries = &retries
	}
	if c.C2.QueueSize <= 0 {
		c.C2.QueueSize = DefaultQueueSize
	}

	if c.Fetch.Timeout.Duration <= 0 {
		c.Fetch.Timeout.Duration = DefaultFetchTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

// AssetRoot returns the directory assets are materialized under.
func (c *Config) AssetRoot() string {
	if c.Agent.AssetDir != "" {
		return c.Agent.AssetDir
	}
	return filepath.Join(c.Agent.Home, assetSubdir)
}

// Validate checks the configuration. requireC2 is set for commands that talk
// to the controller. All problems are reported together.
func (c *Config) Validate(requireC2 bool) error {
	var errs []error

	if requireC2 && c.C2.URL == "" {
		errs = append(errs, errors.New("c2.url is required"))
	}
	if requireC2 && c.Agent.Identifier == "" {
		errs = append(errs, errors.New("agent.identifier is required"))
	}
	if _, err := c2.ParseEncoding(c.C2.Encoding); err != nil {
		errs = append(errs, fmt.Errorf("c2.encoding: %w", err))
	}
	if c.C2.Retries != nil && *c.C2.Retries < 0 {
		errs = append(errs, fmt.Errorf("c2.retries must be >= 0, got %d", *c.C2.Retries))
	}
	if c.Fetch.MaxBytes < 0 {
		errs = append(errs, fmt.Errorf("fetch.max_bytes must be >= 0, got %d", c.Fetch.MaxBytes))
	}

	switch c.Adapter.Type {
	case "":
	case "webhook", "redis":
		if c.Adapter.URL == "" {
			errs = append(errs, fmt.Errorf("adapter.url is required for %s adapter", c.Adapter.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("adapter.type %q is not supported (valid: webhook, redis)", c.Adapter.Type))
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		errs = append(errs, fmt.Errorf("adapter.retries must be >= 0, got %d", *c.Adapter.Retries))
	}

	if c.Log.Level != "" {
		if _, err := log.ParseLevel(c.Log.Level); err != nil {
			errs = append(errs, fmt.Errorf("log.level: %w", err))
		}
	}

	return errors.Join(errs...)
}
