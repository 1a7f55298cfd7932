package jobqueue

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/riskibarqy/sports-feed/internal/domain/jobrun"
	"github.com/riskibarqy/sports-feed/internal/platform/logging"
	"github.com/riskibarqy/sports-feed/internal/platform/resilience"
	"github.com/riskibarqy/sports-feed/internal/usecase"
)

const functionsPath = "/functions/v1/"

var errQStashTransient = crerr.New("qstash transient failure")

type QStashDispatcherConfig struct {
	HTTPClient       *http.Client
	BaseURL          string
	Token            string
	TargetBaseURL    string
	Retries          int
	InternalJobToken string
	Timeout          time.Duration
	CircuitBreaker   resilience.BreakerConfig
}

// QStashDispatcher hands scheduled runs to QStash, which then invokes the
// function endpoint of each job on this service. Runs execute wherever the
// target URL points, so replicas behind a load balancer share one schedule.
type QStashDispatcher struct {
	client           *http.Client
	baseURL          string
	token            string
	targetBaseURL    string
	retries          int
	internalJobToken string
	logger           *logging.Logger
	breaker          *resilience.Breaker
	now              func() time.Time
}

func NewQStashDispatcher(cfg QStashDispatcherConfig, logger *logging.Logger) *QStashDispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return &QStashDispatcher{
		client:           client,
		baseURL:          strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:            strings.TrimSpace(cfg.Token),
		targetBaseURL:    strings.TrimRight(strings.TrimSpace(cfg.TargetBaseURL), "/"),
		retries:          cfg.Retries,
		internalJobToken: strings.TrimSpace(cfg.InternalJobToken),
		logger:           logger.Named("qstash"),
		breaker:          resilience.NewBreaker(cfg.CircuitBreaker),
		now:              time.Now,
	}
}

// Run publishes one message per job name. Outcomes report started, since the
// job itself runs later on the receiving instance.
func (d *QStashDispatcher) Run(ctx context.Context, trigger jobrun.Trigger, names ...string) (usecase.PipelineResult, error) {
	if len(names) == 0 {
		return usecase.PipelineResult{}, fmt.Errorf("%w: at least one job name is required", usecase.ErrInvalidInput)
	}

	slot := d.now().UTC().Truncate(time.Minute).Unix()
	result := usecase.PipelineResult{Outcomes: make([]usecase.JobOutcome, 0, len(names))}
	var errs []error
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		dedupID := fmt.Sprintf("%s-%s-%d", trigger, name, slot)

		err := d.breaker.Execute(func() error {
			return d.publish(ctx, name, dedupID)
		}, isQStashCircuitFailure)
		if err != nil {
			errs = append(errs, fmt.Errorf("dispatch %s: %w", name, err))
			result.Outcomes = append(result.Outcomes, usecase.JobOutcome{Job: name, Status: jobrun.StatusFailed, Error: err.Error()})
			continue
		}
		result.Outcomes = append(result.Outcomes, usecase.JobOutcome{Job: name, Status: jobrun.StatusStarted, Message: "queued"})
	}
	return result, stderrors.Join(errs...)
}

func (d *QStashDispatcher) publish(ctx context.Context, job, dedupID string) error {
	if job == "" {
		return crerr.New("job name is required")
	}
	baseURL, err := validateHTTPBaseURL(d.baseURL)
	if err != nil {
		return crerr.Wrap(err, "invalid QSTASH_BASE_URL")
	}
	targetBaseURL, err := validateHTTPBaseURL(d.targetBaseURL)
	if err != nil {
		return crerr.Wrap(err, "invalid QSTASH_TARGET_BASE_URL")
	}

	path := functionsPath + url.PathEscape(job)
	targetURL := targetBaseURL + path
	publishURL := baseURL + "/v2/publish/" + targetURL
	preview := buildCurlPreview(publishURL, d.retries, dedupID, d.internalJobToken != "")

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.String("qstash.publish_url", publishURL),
			attribute.String("qstash.target_url", targetURL),
			attribute.String("qstash.deduplication_id", dedupID),
		)
	}
	d.logger.DebugContext(ctx, "qstash publish request", "job", job, "target_url", targetURL, "curl_preview", preview)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, publishURL, strings.NewReader("{}"))
	if err != nil {
		return crerr.Wrap(err, "create qstash request")
	}
	req.Header.Set("Authorization", "Bearer "+d.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Upstash-Method", http.MethodPost)
	req.Header.Set("Upstash-Deduplication-Id", dedupID)
	if d.retries > 0 {
		req.Header.Set("Upstash-Retries", strconv.Itoa(d.retries))
	}
	if d.internalJobToken != "" {
		req.Header.Set("Upstash-Forward-X-Internal-Job-Token", d.internalJobToken)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: publish job=%s: %v", errQStashTransient, job, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if isQStashRetryableStatus(resp.StatusCode) {
			return fmt.Errorf("%w: publish job=%s status=%d body=%s", errQStashTransient, job, resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		return fmt.Errorf("publish job=%s status=%d body=%s", job, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	d.logger.InfoContext(ctx, "qstash job published", "job", job, "deduplication_id", dedupID)
	return nil
}

func validateHTTPBaseURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", crerr.New("value is empty")
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", candidate)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", crerr.Newf("%q uses unsupported scheme=%q; expected http or https", candidate, parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", crerr.Newf("%q has empty host", candidate)
	}

	return strings.TrimRight(candidate, "/"), nil
}

// buildCurlPreview renders the publish call for logs with secrets masked.
func buildCurlPreview(publishURL string, retries int, dedupID string, withForwardToken bool) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	appendPart := func(part string) {
		if buf.Len() > 0 {
			_ = buf.WriteByte(' ')
		}
		_, _ = buf.WriteString(part)
	}
	appendHeader := func(value string) {
		appendPart("-H")
		appendPart(shellQuote(value))
	}

	appendPart("curl -X POST")
	appendPart(shellQuote(publishURL))
	appendHeader("Authorization: Bearer ***")
	appendHeader("Upstash-Method: POST")
	appendHeader("Upstash-Deduplication-Id: " + dedupID)
	if retries > 0 {
		appendHeader("Upstash-Retries: " + strconv.Itoa(retries))
	}
	if withForwardToken {
		appendHeader("Upstash-Forward-X-Internal-Job-Token: ***")
	}

	return buf.String()
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "'\"'\"'") + "'"
}

func isQStashCircuitFailure(err error) bool {
	return stderrors.Is(err, errQStashTransient)
}

func isQStashRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}
