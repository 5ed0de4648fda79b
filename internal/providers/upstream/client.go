// Package upstream holds the GET plumbing shared by the Open-Meteo clients.
// Failed calls are never retried; a circuit breaker only makes repeated
// failures fail faster.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

const (
	DefaultTimeout = 15 * time.Second

	// consecutive failures before the breaker opens
	maxConsecutiveFailures = 5
	breakerOpenTimeout     = 30 * time.Second
)

// Error is returned for any failed outbound call: transport failure,
// non-2xx status, undecodable body or an open breaker.
type Error struct {
	Service    string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: fetch returned status %d: %s", e.Service, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Client struct {
	service    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient creates a client whose requests are bounded by timeout
func NewClient(service string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewClientWithHTTP(service, &http.Client{Timeout: timeout}, logger)
}

// NewClientWithHTTP creates a client around an existing http.Client.
// This is useful for tests pointing at an httptest server.
func NewClientWithHTTP(service string, httpClient *http.Client, logger *slog.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    service,
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > maxConsecutiveFailures
		},
		IsSuccessful: countsAsHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"service", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &Client{
		service:    service,
		httpClient: httpClient,
		breaker:    breaker,
		logger:     logger.With("component", service+"-client"),
	}
}

// countsAsHealthy reports whether err leaves the breaker's failure count alone.
// Only transport failures and 5xx responses say the upstream is unhealthy;
// 4xx answers and callers that went away do not.
func countsAsHealthy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var upErr *Error
	if errors.As(err, &upErr) {
		return upErr.StatusCode >= 400 && upErr.StatusCode < 500
	}
	return false
}

// GetRaw performs GET baseURL?query and returns the response body
func (c *Client) GetRaw(ctx context.Context, baseURL string, query url.Values) ([]byte, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	u.RawQuery = query.Encode()

	c.logger.Debug("fetching", "url", u.String())

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, u.String())
	})
	if err != nil {
		var upErr *Error
		if errors.As(err, &upErr) {
			return nil, upErr
		}
		// breaker rejected the call without touching the network
		c.logger.Error("request rejected", "error", err)
		return nil, &Error{Service: c.service, Err: err}
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, &Error{Service: c.service, Err: fmt.Errorf("unexpected result type %T", result)}
	}
	return body, nil
}

// GetJSON performs GET baseURL?query and decodes the JSON body into out
func (c *Client) GetJSON(ctx context.Context, baseURL string, query url.Values, out any) error {
	body, err := c.GetRaw(ctx, baseURL, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error("failed to decode response", "error", err)
		return &Error{Service: c.service, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func (c *Client) do(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Service: c.service, Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("failed to fetch", "error", err)
		return nil, &Error{Service: c.service, Err: fmt.Errorf("failed to fetch: %w", err)}
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Service: c.service, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("upstream returned error",
			"status_code", resp.StatusCode,
			"response_body", string(body),
		)
		return nil, &Error{Service: c.service, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
