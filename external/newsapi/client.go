package newsapi

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"

	"github.com/riskibarqy/sports-feed/internal/platform/logging"
	"github.com/riskibarqy/sports-feed/internal/platform/resilience"
	"github.com/riskibarqy/sports-feed/internal/usecase"
)

const (
	defaultBaseURL  = "https://newsapi.org/v2"
	defaultTimeout  = 15 * time.Second
	defaultPageSize = 20
	defaultLanguage = "en"
)

type ClientConfig struct {
	HTTPClient     *fasthttp.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.BreakerConfig
}

// Client searches NewsAPI's /everything endpoint.
type Client struct {
	httpClient *fasthttp.Client
	baseURL    string
	apiKey     string
	timeout    time.Duration
	logger     *logging.Logger
	breaker    *resilience.Breaker
}

func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			Name:                "sports-feed",
			MaxIdleConnDuration: 30 * time.Second,
		}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		timeout:    timeout,
		logger:     logger,
		breaker:    resilience.NewBreaker(cfg.CircuitBreaker),
	}
}

// FetchArticles returns the newest articles matching query.Category.
func (c *Client) FetchArticles(ctx context.Context, query usecase.NewsQuery) ([]usecase.ExternalArticle, error) {
	language := strings.TrimSpace(query.Language)
	if language == "" {
		language = defaultLanguage
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	values := url.Values{}
	values.Set("q", query.Category)
	values.Set("sortBy", "publishedAt")
	values.Set("language", language)
	values.Set("pageSize", strconv.Itoa(pageSize))
	fullURL := c.baseURL + "/everything?" + values.Encode()

	var body []byte
	var status int
	err := c.breaker.Execute(func() error {
		var err error
		body, status, err = c.do(ctx, fullURL)
		if err != nil {
			return err
		}
		if status == fasthttp.StatusTooManyRequests || status >= fasthttp.StatusInternalServerError {
			return fmt.Errorf("%w: newsapi status=%d", errServerSide, status)
		}
		return nil
	}, func(err error) bool { return stderrors.Is(err, errServerSide) || stderrors.Is(err, errTransport) })
	if err != nil {
		if stderrors.Is(err, resilience.ErrCircuitOpen) {
			return nil, fmt.Errorf("%w: newsapi is temporarily unavailable: %w", usecase.ErrUpstreamFetch, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.WarnContext(ctx, "newsapi request failed", "category", query.Category, "error", err)
		return nil, fmt.Errorf("%w: category=%s: %s", usecase.ErrUpstreamFetch, query.Category, c.sanitize(err.Error()))
	}

	var resp everythingResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		if status < 200 || status >= 300 {
			return nil, fmt.Errorf("%w: newsapi status=%d", usecase.ErrUpstreamFetch, status)
		}
		return nil, fmt.Errorf("%w: decode newsapi payload: %s", usecase.ErrUpstreamSchema, err.Error())
	}
	if status < 200 || status >= 300 || !strings.EqualFold(resp.Status, "ok") {
		return nil, fmt.Errorf("%w: newsapi status=%d code=%s message=%s", usecase.ErrUpstreamFetch, status, resp.Code, c.sanitize(resp.Message))
	}

	out := make([]usecase.ExternalArticle, 0, len(resp.Articles))
	for _, item := range resp.Articles {
		out = append(out, usecase.ExternalArticle{
			Title:       item.Title,
			Description: item.Description,
			Content:     item.Content,
			URL:         item.URL,
			ImageURL:    item.URLToImage,
			PublishedAt: parsePublishedAt(item.PublishedAt),
			Source:      item.Source.Name,
		})
	}
	return out, nil
}

var (
	errServerSide = stderrors.New("newsapi server error")
	errTransport  = stderrors.New("newsapi transport error")
)

func (c *Client) do(ctx context.Context, fullURL string) ([]byte, int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fullURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	if err := c.httpClient.DoDeadline(req, resp, deadline); err != nil {
		return nil, 0, fmt.Errorf("%w: %s", errTransport, err.Error())
	}
	return append([]byte(nil), resp.Body()...), resp.StatusCode(), nil
}

func (c *Client) sanitize(value string) string {
	if c.apiKey == "" {
		return value
	}
	return strings.ReplaceAll(value, c.apiKey, "REDACTED")
}

func parsePublishedAt(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	ts = ts.UTC()
	return &ts
}

type everythingResponse struct {
	Status       string        `json:"status"`
	Code         string        `json:"code"`
	Message      string        `json:"message"`
	TotalResults int           `json:"totalResults"`
	Articles     []articleItem `json:"articles"`
}

type articleItem struct {
	Source struct {
		ID   *string `json:"id"`
		Name string  `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}
