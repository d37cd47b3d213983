package c2

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pithecene-io/outpost/iox"
	"github.com/pithecene-io/outpost/log"
	"github.com/pithecene-io/outpost/types"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// maxResponseBytes caps a heartbeat response body.
var maxResponseBytes int64 = 8 * 1024 * 1024

// ErrResponseTooLarge is returned when a response body exceeds the cap.
var ErrResponseTooLarge = errors.New("c2: response too large")

// Config configures the C2 client.
type Config struct {
	// URL is the heartbeat endpoint (required).
	URL string
	// AcknowledgeURL is the acknowledgement endpoint (default: URL).
	AcknowledgeURL string
	// AgentID identifies this agent to the controller (required).
	AgentID string
	// AgentClass is the optional agent class.
	AgentClass string
	// Encoding is the wire format (default json).
	Encoding Encoding
	// Headers are custom HTTP headers added to each request.
	Headers map[string]string
	// Timeout is the per-request timeout (default 10s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	// Zero disables retries; config loading defaults it to DefaultRetries.
	Retries int
}

// Client talks to a REST controller.
type Client struct {
	config Config
	codec  codec
	client *http.Client
	logger *log.Logger
	now    func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// New creates a C2 client from the given config.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("c2 client requires a URL")
	}
	if cfg.AgentID == "" {
		return nil, errors.New("c2 client requires an agent ID")
	}
	if cfg.AcknowledgeURL == "" {
		cfg.AcknowledgeURL = cfg.URL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	enc, err := ParseEncoding(string(cfg.Encoding))
	if err != nil {
		return nil, err
	}
	cfg.Encoding = enc

	c := &Client{
		config: cfg,
		codec:  codecFor(enc),
		client: &http.Client{Timeout: cfg.Timeout},
		logger: log.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL returns the heartbeat URL. Relative asset URLs resolve against it.
func (c *Client) URL() string {
	return c.config.URL
}

// Heartbeat announces the agent and returns the operations requested by the
// controller, in controller order. An empty body or 204 means no operations.
//
// Operations that fail to decode are logged and skipped; the rest of the
// batch is still returned.
func (c *Client) Heartbeat(ctx context.Context) ([]types.Operation, error) {
	req := &HeartbeatRequest{
		Operation:  types.OperationHeartbeat,
		AgentID:    c.config.AgentID,
		AgentClass: c.config.AgentClass,
		Version:    types.Version,
		Timestamp:  c.now().UTC().Format(time.RFC3339),
	}

	resp, err := c.post(ctx, "heartbeat", c.config.URL, req)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(resp.body)) == 0 {
		return nil, nil
	}

	dec := codecForContentType(resp.contentType, c.codec)
	var hr HeartbeatResponse
	if err := dec.Unmarshal(resp.body, &hr); err == nil {
		return hr.RequestedOperations, nil
	}

	// Decode element by element so one bad operation does not lose the batch.
	var env heartbeatEnvelope
	if err := dec.Unmarshal(resp.body, &env); err != nil {
		return nil, fmt.Errorf("c2: decode heartbeat response: %w", err)
	}

	ops := make([]types.Operation, 0, len(env.RequestedOperations))
	for i, raw := range env.RequestedOperations {
		op, err := decodeOperation(dec, raw)
		if err != nil {
			salvaged, ok := salvageOperation(raw)
			fields := map[string]any{"index": i, "error": err.Error()}
			if !ok {
				c.logger.Warn("skipping malformed operation", fields)
				continue
			}
			// Keep the id so the operation is still acknowledged.
			fields["operation_id"] = salvaged.ID
			c.logger.Warn("malformed operation", fields)
			op = salvaged
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// decodeOperation re-encodes a loosely decoded element and decodes it as an
// Operation.
func decodeOperation(dec codec, raw any) (types.Operation, error) {
	var op types.Operation
	data, err := dec.Marshal(raw)
	if err != nil {
		return op, err
	}
	if err := dec.Unmarshal(data, &op); err != nil {
		return op, err
	}
	return op, nil
}

// salvageOperation extracts whatever scalar fields an undecodable element
// carries. It fails when there is no operation id to acknowledge. Args are
// left empty, so the operation is reported as not applied.
func salvageOperation(raw any) (types.Operation, bool) {
	fields, ok := raw.(map[string]any)
	if !ok {
		return types.Operation{}, false
	}
	id, ok := types.ScalarString(fields["operation_id"])
	if !ok || id == "" {
		return types.Operation{}, false
	}
	op := types.Operation{ID: id}
	op.Operation, _ = types.ScalarString(fields["operation"])
	op.Operand, _ = types.ScalarString(fields["operand"])
	return op, true
}

// Acknowledge reports the outcome of one operation.
func (c *Client) Acknowledge(ctx context.Context, ack *types.Acknowledgement) error {
	req := &AcknowledgeRequest{
		Operation:   types.OperationAcknowledge,
		AgentID:     c.config.AgentID,
		OperationID: ack.OperationID,
		State:       ack.State,
		Details:     ack.Details,
	}
	_, err := c.post(ctx, "acknowledge", c.config.AcknowledgeURL, req)
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

type response struct {
	body        []byte
	contentType string
}

// post sends msg to url, retrying with exponential backoff on 5xx responses
// and network errors. 4xx responses are non-retriable and fail immediately.
func (c *Client) post(ctx context.Context, name, url string, msg any) (*response, error) {
	body, err := c.codec.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("c2: marshal %s: %w", name, err)
	}

	var lastErr error
	// attempts = 1 initial + retries
	attempts := 1 + c.config.Retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("c2: %s: context canceled: %w", name, err)
		}

		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("c2: %s: context canceled during backoff: %w", name, ctx.Err())
			case <-time.After(backoff):
			}
		}

		resp, err := c.doRequest(ctx, url, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var statusErr *StatusError
		if errors.As(lastErr, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 {
			return nil, fmt.Errorf("c2: %s: non-retriable error: %w", name, lastErr)
		}
		if errors.Is(lastErr, ErrResponseTooLarge) {
			return nil, fmt.Errorf("c2: %s: %w", name, lastErr)
		}
	}

	return nil, fmt.Errorf("c2: %s failed after %d attempts: %w", name, attempts, lastErr)
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// doRequest performs a single HTTP POST and returns the body on 2xx.
func (c *Client) doRequest(ctx context.Context, url string, body []byte) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", c.codec.ContentType())
	req.Header.Set("Accept", c.codec.ContentType())
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain body to allow connection reuse
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, &StatusError{Code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(data)) > maxResponseBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrResponseTooLarge, maxResponseBytes)
	}
	return &response{body: data, contentType: resp.Header.Get("Content-Type")}, nil
}
