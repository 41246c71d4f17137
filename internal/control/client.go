package control

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/ayoisaiah/codetime/internal/apperr"
	"github.com/ayoisaiah/codetime/internal/models"
)

// ErrUnavailable is returned when no daemon is listening.
var ErrUnavailable error = &apperr.Error{
	Message: "the codetime daemon is not running",
}

// APIError is a non-2xx response from the control API.
type APIError struct {
	Message string
	Code    int
}

func (e *APIError) Error() string {
	return e.Message
}

// Client talks to a running daemon.
type Client struct {
	http *http.Client
	base string
}

// NewClient returns a client for the daemon listening on addr.
func NewClient(addr string) *Client {
	base := addr
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		base = "http://" + addr
	}

	return &Client{
		http: &http.Client{Timeout: time.Minute},
		base: base,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader

	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}

		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return ErrUnavailable
		}

		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var e errorResponse

		_ = json.NewDecoder(res.Body).Decode(&e)

		if e.Error == "" {
			e.Error = res.Status
		}

		return &APIError{Code: res.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(res.Body).Decode(out)
}

func (c *Client) statusCall(
	ctx context.Context,
	method, path string,
	body any,
) (*models.Status, error) {
	var s models.Status

	if err := c.do(ctx, method, path, body, &s); err != nil {
		return nil, err
	}

	return &s, nil
}

// Health reports whether the daemon answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Status returns the daemon's current status.
func (c *Client) Status(ctx context.Context) (*models.Status, error) {
	return c.statusCall(ctx, http.MethodGet, "/status", nil)
}

// Focus reports a change of editor focus.
func (c *Client) Focus(ctx context.Context, focused bool) (*models.Status, error) {
	return c.statusCall(ctx, http.MethodPost, "/focus", focusRequest{Focused: focused})
}

// Language reports the language of the active editor.
func (c *Client) Language(ctx context.Context, language string) (*models.Status, error) {
	return c.statusCall(ctx, http.MethodPost, "/language", languageRequest{Language: language})
}

// Toggle flips tracking on or off.
func (c *Client) Toggle(ctx context.Context) (*models.Status, error) {
	return c.statusCall(ctx, http.MethodPost, "/toggle", nil)
}

// Pause turns tracking off.
func (c *Client) Pause(ctx context.Context) (*models.Status, error) {
	return c.statusCall(ctx, http.MethodPost, "/pause", nil)
}

// Resume turns tracking on.
func (c *Client) Resume(ctx context.Context) (*models.Status, error) {
	return c.statusCall(ctx, http.MethodPost, "/resume", nil)
}

// ResetToday zeroes today's counters.
func (c *Client) ResetToday(ctx context.Context) (*models.Status, error) {
	return c.statusCall(ctx, http.MethodPost, "/reset/today", nil)
}

// ResetProject zeroes the workspace counter.
func (c *Client) ResetProject(ctx context.Context) (*models.Status, error) {
	return c.statusCall(ctx, http.MethodPost, "/reset/project", nil)
}

// Login stores the username used for syncing.
func (c *Client) Login(ctx context.Context, username string) (*models.Status, error) {
	return c.statusCall(ctx, http.MethodPost, "/login", loginRequest{Username: username})
}

// Sync runs a manual sync.
func (c *Client) Sync(ctx context.Context) (*SyncReply, error) {
	var r SyncReply

	if err := c.do(ctx, http.MethodPost, "/sync", nil, &r); err != nil {
		return nil, err
	}

	return &r, nil
}

// Stats returns the per-day totals between start and end (YYYY-MM-DD).
func (c *Client) Stats(ctx context.Context, start, end string) ([]models.DayTotals, error) {
	var days []models.DayTotals

	q := url.Values{"start": {start}, "end": {end}}

	if err := c.do(ctx, http.MethodGet, "/stats?"+q.Encode(), nil, &days); err != nil {
		return nil, err
	}

	return days, nil
}

// Projects returns the counter of every workspace.
func (c *Client) Projects(ctx context.Context) (map[string]int64, error) {
	var p map[string]int64

	if err := c.do(ctx, http.MethodGet, "/projects", nil, &p); err != nil {
		return nil, err
	}

	return p, nil
}
