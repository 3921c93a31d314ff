package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUnavailable marks a ledger call that kept failing after retries. The
// dispatcher treats it as an infrastructure failure, never a user-facing one.
var ErrUnavailable = errors.New("points ledger unavailable")

// Client talks to a StreamElements-style channel points API. Balances live
// there, not in the account store; the bot only reads and applies deltas.
type Client struct {
	baseURL    string
	channelID  string
	jwt        string
	httpClient *http.Client

	maxAttempts int
	retryDelay  time.Duration
}

func NewClient(baseURL, channelID, jwt string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		channelID: channelID,
		jwt:       jwt,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		maxAttempts: 4,
		retryDelay:  200 * time.Millisecond,
	}
}

type pointsResponse struct {
	Points    int64 `json:"points"`
	NewAmount int64 `json:"newAmount"`
}

// Balance returns the user's current point balance.
func (c *Client) Balance(ctx context.Context, userName string) (int64, error) {
	var out pointsResponse
	path := fmt.Sprintf("/points/%s/%s", c.channelID, url.PathEscape(userName))
	if err := c.do(ctx, http.MethodGet, path, &out); err != nil {
		return 0, err
	}
	return out.Points, nil
}

// ApplyDelta adds delta (negative to debit) to the user's balance and
// returns the new amount.
func (c *Client) ApplyDelta(ctx context.Context, userName string, delta int64) (int64, error) {
	var out pointsResponse
	path := fmt.Sprintf("/points/%s/%s/%d", c.channelID, url.PathEscape(userName), delta)
	if err := c.do(ctx, http.MethodPut, path, &out); err != nil {
		return 0, err
	}
	return out.NewAmount, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	delay := c.retryDelay
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepWithContext(ctx, delay); err != nil {
				return err
			}
			delay *= 2
		}
		lastErr = c.once(ctx, method, path, out)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("ledger status %d: %s", e.code, e.body)
}

func (c *Client) once(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.jwt)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ledger request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode ledger response: %w", err)
	}
	return nil
}

// retryable reports whether another attempt could help: network errors and
// 5xx / 429 responses qualify, other HTTP statuses do not.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
