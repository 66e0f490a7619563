package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultWebhookTimeout bounds a single delivery attempt.
	DefaultWebhookTimeout = 2500 * time.Millisecond
	// DefaultWebhookQueueSize is the number of payloads buffered for delivery.
	DefaultWebhookQueueSize = 64
	// DefaultWebhookRatePerMinute caps deliveries across all issue kinds.
	DefaultWebhookRatePerMinute = 60

	sessionHeader = "X-Session-ID"
)

var (
	// ErrQueueFull is returned by Send when the delivery queue has no room.
	ErrQueueFull = errors.New("webhook queue full")
	// ErrRateLimited is returned by Send when the global rate limit is exceeded.
	ErrRateLimited = errors.New("webhook rate limit exceeded")

	errURLRequired = errors.New("webhook URL is required")
	errURLScheme   = errors.New("webhook URL must use http or https scheme")
	errURLHost     = errors.New("webhook URL must include a host")
)

// WebhookSenderConfig holds the configuration for creating a WebhookSender.
type WebhookSenderConfig struct {
	// URL is the endpoint receiving POST requests.
	URL string
	// Timeout bounds each request. Defaults to DefaultWebhookTimeout.
	Timeout time.Duration
	// QueueSize is the delivery buffer length. Defaults to DefaultWebhookQueueSize.
	QueueSize int
	// RatePerMinute caps deliveries; zero or less disables the limit.
	RatePerMinute int
	// SessionID is sent in the X-Session-ID header when set.
	SessionID string
	// UserAgent is sent in the User-Agent header when set.
	UserAgent string
}

// WebhookSender implements Sender for generic HTTP POST webhooks.
type WebhookSender struct {
	httpClient *http.Client
	logger     *zap.SugaredLogger
	cfg        WebhookSenderConfig
	limiter    *rate.Limiter
	sendCh     chan Payload
	wg         sync.WaitGroup
}

// NewWebhookSender validates cfg and creates a WebhookSender.
func NewWebhookSender(logger *zap.SugaredLogger, cfg WebhookSenderConfig) (*WebhookSender, error) {
	if err := ValidateURL(cfg.URL); err != nil {
		return nil, err
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultWebhookTimeout
	}

	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultWebhookQueueSize
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60.0), max(1, cfg.RatePerMinute/10))
	}

	return &WebhookSender{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("webhook-sender"),
		cfg:        cfg,
		limiter:    limiter,
		sendCh:     make(chan Payload, cfg.QueueSize),
	}, nil
}

// ValidateURL checks that rawURL is an absolute http or https URL with a host.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return errURLRequired
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w, got %q", errURLScheme, u.Scheme)
	}

	if u.Host == "" {
		return errURLHost
	}

	return nil
}

// Name implements Sender.
func (ws *WebhookSender) Name() string { return "webhook" }

// Start implements Sender. It launches a single worker so deliveries keep their order.
func (ws *WebhookSender) Start(ctx context.Context) {
	ws.wg.Add(1)

	go ws.worker(ctx)

	ws.logger.Infow("Webhook sender started",
		"url", RedactURL(ws.cfg.URL),
		"timeout", ws.cfg.Timeout.String(),
		"queue_size", ws.cfg.QueueSize,
	)
}

// Close waits for the worker to drain queued payloads.
// Call after the context passed to Start is cancelled.
func (ws *WebhookSender) Close() {
	ws.wg.Wait()
}

// Send implements Sender. It enqueues p and returns immediately.
func (ws *WebhookSender) Send(ctx context.Context, p Payload) error {
	if !ws.limiter.Allow() {
		webhookSendTotal.WithLabelValues("rate_limited").Inc()
		return ErrRateLimited
	}

	select {
	case ws.sendCh <- p:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		webhookSendTotal.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

// worker drains the queue until ctx is cancelled, then delivers what is left.
// Requests run on their own timeout-bound contexts so shutdown does not abort them midway.
func (ws *WebhookSender) worker(ctx context.Context) {
	defer ws.wg.Done()

	for {
		select {
		case <-ctx.Done():
			ws.drain()
			return
		case p := <-ws.sendCh:
			ws.deliver(p)
		}
	}
}

// drain delivers the remaining buffered payloads.
func (ws *WebhookSender) drain() {
	for {
		select {
		case p := <-ws.sendCh:
			ws.deliver(p)
		default:
			return
		}
	}
}

// deliver posts p and logs the outcome.
func (ws *WebhookSender) deliver(p Payload) {
	ctx, cancel := context.WithTimeout(context.Background(), ws.cfg.Timeout)
	defer cancel()

	if err := ws.post(ctx, p); err != nil {
		ws.logger.Errorw("Webhook send failed",
			"url", RedactURL(ws.cfg.URL),
			"issue", p.Issue,
			"error", err,
		)

		return
	}

	ws.logger.Infow("Webhook sent", "issue", p.Issue, "video_time_seconds", p.VideoTimeSeconds)
}

// post executes a single HTTP POST request.
func (ws *WebhookSender) post(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		webhookSendTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ws.cfg.URL, bytes.NewReader(body))
	if err != nil {
		webhookSendTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if ws.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", ws.cfg.UserAgent)
	}

	if ws.cfg.SessionID != "" {
		req.Header.Set(sessionHeader, ws.cfg.SessionID)
	}

	start := time.Now()
	resp, err := ws.httpClient.Do(req)
	duration := time.Since(start).Seconds()

	if err != nil {
		webhookSendTotal.WithLabelValues("error").Inc()
		webhookSendDuration.WithLabelValues("error").Observe(duration)

		return fmt.Errorf("post webhook: %w", err)
	}

	defer func() {
		// Drain and close body to reuse connections.
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		webhookSendTotal.WithLabelValues("error").Inc()
		webhookSendDuration.WithLabelValues("error").Observe(duration)

		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}

	webhookSendTotal.WithLabelValues("success").Inc()
	webhookSendDuration.WithLabelValues("success").Observe(duration)

	return nil
}

// RedactURL masks credentials in a URL for safe logging.
// It redacts userinfo passwords and query parameter values.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}

	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			q.Set(key, "REDACTED")
		}

		u.RawQuery = q.Encode()
	}

	return u.Redacted()
}
