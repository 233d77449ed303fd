package rosterapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/pitchside/matchtracker/internal/domain/match"
	"github.com/pitchside/matchtracker/internal/platform/logging"
	"github.com/pitchside/matchtracker/internal/platform/resilience"
	"github.com/pitchside/matchtracker/internal/usecase"
)

const defaultBaseURL = "http://localhost:8090"

var errRosterTransient = crerr.New("roster api transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads match fixtures and squad rosters from the federation's
// match store. That store owns the data; this service only mirrors it.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		token:          strings.TrimSpace(cfg.Token),
		maxRetries:     cfg.MaxRetries,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// FetchMatch returns one match with both squad rosters hydrated.
func (c *Client) FetchMatch(ctx context.Context, matchID string) (match.Match, bool, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return match.Match{}, false, fmt.Errorf("match id is required")
	}

	var envelope matchEnvelope
	err := c.doJSON(ctx, "/v1/matches/"+url.PathEscape(matchID), map[string]string{"include": "rosters"}, &envelope)
	if err != nil {
		if isNotFoundStatus(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("fetch match %s: %w", matchID, err)
	}

	out := mapProviderMatch(envelope.Data)
	if err := out.Validate(); err != nil {
		return match.Match{}, false, fmt.Errorf("provider match %s invalid: %w", matchID, err)
	}
	return out, true, nil
}

// FetchMatchesByStatus lists matches in one lifecycle status, rosters included.
func (c *Client) FetchMatchesByStatus(ctx context.Context, status string) ([]match.Match, error) {
	var envelope matchListEnvelope
	query := map[string]string{
		"status":  match.NormalizeStatus(status),
		"include": "rosters",
	}
	if err := c.doJSON(ctx, "/v1/matches", query, &envelope); err != nil {
		return nil, fmt.Errorf("fetch matches status=%s: %w", status, err)
	}

	out := make([]match.Match, 0, len(envelope.Data))
	for _, item := range envelope.Data {
		m := mapProviderMatch(item)
		if err := m.Validate(); err != nil {
			c.logger.WarnContext(ctx, "skipping invalid provider match", "match_id", item.ID, "error", err)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "roster api circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: match store is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	key := path + "?" + values.Encode()
	out, err, _ := c.flight.Do(key, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && crerr.Is(reqErr, errRosterTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errRosterTransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errRosterTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: provider status=%d", errRosterTransient, resp.StatusCode)
			default:
				return nil, &statusError{code: resp.StatusCode}
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "roster api request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("provider status=%d", e.code)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func isNotFoundStatus(err error) bool {
	var se *statusError
	return crerr.As(err, &se) && se.code == http.StatusNotFound
}
