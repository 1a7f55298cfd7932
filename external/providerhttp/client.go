package providerhttp

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"

	"github.com/riskibarqy/sports-feed/internal/platform/logging"
	"github.com/riskibarqy/sports-feed/internal/platform/resilience"
	"github.com/riskibarqy/sports-feed/internal/usecase"
)

const maxBodyBytes = 6 << 20

var errTransient = crerr.New("provider transient failure")

// Config describes one upstream JSON API.
type Config struct {
	Name           string
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	Headers        map[string]string
	Secrets        []string
	RedactParams   []string
	Logger         *logging.Logger
	CircuitBreaker resilience.BreakerConfig
}

// Client performs GET requests against a JSON API with optional retries,
// a circuit breaker and in-flight request collapsing.
type Client struct {
	name         string
	httpClient   *http.Client
	baseURL      string
	maxRetries   int
	retryBackoff time.Duration
	headers      map[string]string
	secrets      []string
	redactParams []string
	logger       *logging.Logger
	breaker      *resilience.Breaker
	flight       singleflight.Group
}

func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	// The caller's client may be shared, so defaults go on a copy.
	var httpClient *http.Client
	if cfg.HTTPClient != nil {
		copied := *cfg.HTTPClient
		httpClient = &copied
	} else {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = timeout
	}

	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	secrets := make([]string, 0, len(cfg.Secrets))
	for _, s := range cfg.Secrets {
		if s = strings.TrimSpace(s); s != "" {
			secrets = append(secrets, s)
		}
	}

	return &Client{
		name:         strings.TrimSpace(cfg.Name),
		httpClient:   httpClient,
		baseURL:      strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		maxRetries:   max(cfg.MaxRetries, 0),
		retryBackoff: backoff,
		headers:      cfg.Headers,
		secrets:      secrets,
		redactParams: cfg.RedactParams,
		logger:       logger,
		breaker:      resilience.NewBreaker(cfg.CircuitBreaker),
	}
}

// GetJSON decodes the response of GET {base}{path}?{query} into target.
// Transport and status failures wrap usecase.ErrUpstreamFetch; decode
// failures wrap usecase.ErrUpstreamSchema.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, target any) error {
	fullURL := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	var raw []byte
	err := c.breaker.Execute(func() error {
		out, err, shared := c.flight.Do(fullURL, func() (any, error) {
			return c.executeRequest(ctx, fullURL)
		})
		if err != nil {
			return err
		}
		if shared {
			c.logger.DebugContext(ctx, "provider request shared", "provider", c.name, "url", c.redact(fullURL))
		}
		raw = out.([]byte)
		return nil
	}, IsTransient)
	if err != nil {
		if stderrors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.WarnContext(ctx, "provider circuit breaker rejected request", "provider", c.name, "state", c.breaker.State())
			return fmt.Errorf("%w: %s is temporarily unavailable: %w", usecase.ErrUpstreamFetch, c.name, err)
		}
		return err
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: decode %s payload: %s", usecase.ErrUpstreamSchema, c.name, c.sanitize(err.Error()))
	}
	return nil
}

// IsTransient reports whether err counts against the circuit breaker.
func IsTransient(err error) bool {
	return err != nil && stderrors.Is(err, errTransient)
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		raw, status, err := c.roundTrip(ctx, fullURL)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%w: %w: send request: %s", usecase.ErrUpstreamFetch, errTransient, c.sanitize(err.Error()))
		case status >= 200 && status < 300:
			return raw, nil
		case isRetryableStatus(status):
			lastErr = fmt.Errorf("%w: %w: %s status=%d body=%s", usecase.ErrUpstreamFetch, errTransient, c.name, status, c.sanitize(abbreviateBody(raw)))
		default:
			lastErr = fmt.Errorf("%w: %s status=%d body=%s", usecase.ErrUpstreamFetch, c.name, status, c.sanitize(abbreviateBody(raw)))
			c.logger.WarnContext(ctx, "provider request rejected", "provider", c.name, "url", c.redact(fullURL), "status", status)
			return nil, lastErr
		}

		if attempt == c.maxRetries {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * c.retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	c.logger.WarnContext(ctx, "provider request failed", "provider", c.name, "url", c.redact(fullURL), "error", lastErr)
	return nil, lastErr
}

func (c *Client) roundTrip(ctx context.Context, fullURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, 0, crerr.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if _, err := buf.ReadFrom(io.LimitReader(resp.Body, maxBodyBytes)); err != nil {
		return nil, resp.StatusCode, crerr.Wrap(err, "read response body")
	}
	return append([]byte(nil), buf.B...), resp.StatusCode, nil
}

func (c *Client) sanitize(value string) string {
	for _, secret := range c.secrets {
		value = strings.ReplaceAll(value, secret, "REDACTED")
	}
	return value
}

func (c *Client) redact(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return c.sanitize(rawURL)
	}
	query := parsed.Query()
	changed := false
	for _, param := range c.redactParams {
		if query.Has(param) {
			query.Set(param, "REDACTED")
			changed = true
		}
	}
	if changed {
		parsed.RawQuery = query.Encode()
	}
	return c.sanitize(parsed.String())
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
