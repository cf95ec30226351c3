package separation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"stemdeck/internal/auth"
	"stemdeck/internal/config"
	"stemdeck/internal/logging"
	"stemdeck/internal/objecturl"
	"stemdeck/internal/services"
)

const (
	defaultHTTPTimeout    = 30 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultRetryMaxDelay  = 5 * time.Second
	maxErrorBodyBytes     = 64 << 10
)

// HTTPDoer executes HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Config captures the runtime settings required to talk to the service.
type Config struct {
	BaseURL     string
	UploadMode  string
	InputPrefix string
	Timeout     time.Duration
}

// ConfigFromApp extracts client settings from application config.
func ConfigFromApp(cfg *config.Config) Config {
	return Config{
		BaseURL:     cfg.Backend.BaseURL,
		UploadMode:  cfg.Backend.UploadMode,
		InputPrefix: cfg.Storage.InputPrefix,
		Timeout:     cfg.RequestTimeout(),
	}
}

// Client wraps the separation service API.
type Client struct {
	cfg      Config
	base     *url.URL
	http     HTTPDoer
	tokens   auth.TokenProvider
	store    ObjectStore
	registry *objecturl.Registry
	logger   *slog.Logger

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithTokenProvider attaches bearer tokens to requests sent to the service.
func WithTokenProvider(tokens auth.TokenProvider) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// WithObjectStore enables object-store uploads and s3:// asset fetches.
func WithObjectStore(store ObjectStore) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithRegistry resolves blob: asset URLs.
func WithRegistry(registry *objecturl.Registry) Option {
	return func(c *Client) {
		c.registry = registry
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRetryMaxAttempts overrides the default retry count for idempotent requests.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a client for cfg.BaseURL.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Host == "" {
		return nil, services.Wrap(services.ErrConfiguration, "separation", "new client", fmt.Sprintf("invalid base url %q", cfg.BaseURL), err)
	}
	if strings.TrimSpace(cfg.UploadMode) == "" {
		cfg.UploadMode = config.UploadModeMultipart
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := &Client{
		cfg:              cfg,
		base:             base,
		http:             &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "separation")
	return client, nil
}

// BaseURL returns the normalized service URL.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// resolve turns target into an absolute URL. Relative targets are joined onto
// the base URL path so a base of http://host/api keeps its prefix.
func (c *Client) resolve(target string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", target, err)
	}
	if ref.IsAbs() {
		return ref, nil
	}
	resolved := *c.base
	resolved.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	resolved.RawPath = ""
	resolved.RawQuery = ref.RawQuery
	resolved.Fragment = ""
	return &resolved, nil
}

func (c *Client) sameOrigin(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, c.base.Scheme) && strings.EqualFold(u.Host, c.base.Host)
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	endpoint, err := c.resolve(target)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if c.tokens != nil && c.sameOrigin(endpoint) {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// send executes req and returns the body of a 2xx response. Other statuses
// become typed errors.
func (c *Client) send(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "separation", req.Method+" "+req.URL.Path, "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, statusError(req.Method, req.URL.Path, resp, body)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "separation", req.Method+" "+req.URL.Path, "read body", err)
	}
	return body, nil
}
