// Package remote posts sync payloads to the aggregator.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/ayoisaiah/codetime/internal/config"
	"github.com/ayoisaiah/codetime/internal/metrics"
	"github.com/ayoisaiah/codetime/internal/models"
)

const (
	breakerName = "aggregator"

	// tripAfter consecutive failures open the breaker.
	tripAfter = 5

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 1 << 20
)

// ErrBreakerOpen is returned while the aggregator is considered unavailable.
var ErrBreakerOpen = gobreaker.ErrOpenState

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Message string
	Code    int
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("aggregator responded with status %d", e.Code)
	}

	return fmt.Sprintf("aggregator responded with status %d: %s", e.Code, e.Message)
}

// Client transmits payloads to the aggregator endpoint.
type Client struct {
	http     *http.Client
	cb       *gobreaker.CircuitBreaker[*models.SyncResponse]
	log      *slog.Logger
	endpoint string
	apiKey   string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithBreakerTimeout sets how long the breaker stays open before it lets a
// trial request through.
func WithBreakerTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.cb = newBreaker(c.log, d)
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func newBreaker(
	logger *slog.Logger,
	timeout time.Duration,
) *gobreaker.CircuitBreaker[*models.SyncResponse] {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	return gobreaker.NewCircuitBreaker[*models.SyncResponse](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(
				"circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
}

// New returns a client for the aggregator described by cfg.
func New(cfg *config.SyncConfig, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		log:      logger,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
	}

	c.cb = newBreaker(logger, 2*time.Minute)

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Push posts the payload and decodes the aggregator response. Any transport
// failure, non-2xx status or open breaker is returned as an error.
func (c *Client) Push(
	ctx context.Context,
	payload models.Payload,
) (*models.SyncResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	resp, err := c.cb.Execute(func() (*models.SyncResponse, error) {
		return c.post(ctx, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) ||
			errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.log.Debug("aggregator request rejected by breaker", slog.Any("error", err))
		}

		return nil, err
	}

	return resp, nil
}

func (c *Client) post(ctx context.Context, body []byte) (*models.SyncResponse, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.endpoint,
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post payload: %w", err)
	}

	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var out models.SyncResponse

	// Failure bodies are optional so decoding errors only matter on success
	decodeErr := json.Unmarshal(data, &out)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &StatusError{Code: res.StatusCode, Message: out.Error}
	}

	if decodeErr != nil && len(data) > 0 {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}

	return &out, nil
}

// State reports the breaker state.
func (c *Client) State() string {
	return c.cb.State().String()
}
