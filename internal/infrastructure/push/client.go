package push

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"

	"github.com/pitchside/matchtracker/internal/domain/notification"
	"github.com/pitchside/matchtracker/internal/platform/resilience"
	"github.com/pitchside/matchtracker/internal/usecase"
)

var errPushTransient = crerr.New("push transient failure")

type ClientConfig struct {
	BaseURL        string
	Token          string
	Retries        int
	Timeout        time.Duration
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client delivers notifications to the mobile push gateway. Delivery is
// best effort: the caller's feed write has already committed by the time
// Send runs, so failures here are logged and absorbed.
type Client struct {
	httpClient     *fasthttp.Client
	publishURL     string
	token          string
	retries        int
	timeout        time.Duration
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	logger         *slog.Logger
}

func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		publishURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/") + "/v1/notifications/send",
		token:          strings.TrimSpace(cfg.Token),
		retries:        cfg.Retries,
		timeout:        timeout,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		logger:         logger,
	}
}

type pushPayload struct {
	NotificationID string `json:"notification_id"`
	UserID         string `json:"user_id"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	MatchID        string `json:"match_id,omitempty"`
	WithSound      bool   `json:"with_sound"`
}

func (c *Client) Send(ctx context.Context, item notification.Notification) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "push circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: push gateway is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	encoded, err := sonic.Marshal(pushPayload{
		NotificationID: item.ID,
		UserID:         item.UserID,
		Type:           string(item.Type),
		Title:          item.Title,
		Body:           item.Body,
		MatchID:        item.MatchID,
		WithSound:      item.WithSound,
	})
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}
	_, _ = buf.Write(encoded)

	err = c.deliver(ctx, buf.B)
	if c.circuitEnabled {
		if err != nil && crerr.Is(err, errPushTransient) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}
	if err != nil {
		return err
	}

	c.logger.DebugContext(ctx, "push delivered", "notification_id", item.ID, "user_id", item.UserID, "type", item.Type)
	return nil
}

func (c *Client) deliver(ctx context.Context, body []byte) error {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()

		req.SetRequestURI(c.publishURL)
		req.Header.SetMethod(fasthttp.MethodPost)
		req.Header.SetContentType("application/json")
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.SetBody(body)

		err := c.httpClient.DoTimeout(req, resp, c.timeout)
		status := resp.StatusCode()

		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)

		if err != nil {
			lastErr = fmt.Errorf("%w: send push request: %v", errPushTransient, err)
		} else if status/100 == 2 {
			return nil
		} else if status >= 500 || status == fasthttp.StatusTooManyRequests {
			lastErr = fmt.Errorf("%w: push gateway status=%d", errPushTransient, status)
		} else {
			return fmt.Errorf("push gateway status=%d", status)
		}

		if attempt == c.retries {
			break
		}
		backoff := time.Duration(attempt+1) * 500 * time.Millisecond
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
