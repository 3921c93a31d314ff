package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// LiveChecker answers "is the channel streaming right now". Helix needs two
// hops for that: resolve the login to a channel id, then ask the streams
// endpoint, which returns an empty data array for offline channels.
type LiveChecker struct {
	baseURL    string
	clientID   string
	channel    string
	httpClient *http.Client

	cacheTTL time.Duration

	mu        sync.Mutex
	channelID string
	lastLive  bool
	checkedAt time.Time
}

func NewLiveChecker(baseURL, clientID, channel string, cacheTTL time.Duration) *LiveChecker {
	return &LiveChecker{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		channel:  channel,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cacheTTL: cacheTTL,
	}
}

type dataEnvelope struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// IsLive reports the channel's live status, cached for the configured TTL so
// a chatty channel doesn't hammer Helix on every command.
func (c *LiveChecker) IsLive(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if time.Since(c.checkedAt) < c.cacheTTL {
		live := c.lastLive
		c.mu.Unlock()
		return live, nil
	}
	c.mu.Unlock()

	live, err := c.probe(ctx)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	c.lastLive = live
	c.checkedAt = time.Now()
	c.mu.Unlock()
	return live, nil
}

func (c *LiveChecker) probe(ctx context.Context) (bool, error) {
	id, err := c.resolveChannelID(ctx)
	if err != nil {
		return false, err
	}
	var out dataEnvelope
	if err := c.getJSON(ctx, "/streams?user_id="+url.QueryEscape(id), &out); err != nil {
		return false, fmt.Errorf("query streams: %w", err)
	}
	return len(out.Data) > 0, nil
}

func (c *LiveChecker) resolveChannelID(ctx context.Context) (string, error) {
	c.mu.Lock()
	id := c.channelID
	c.mu.Unlock()
	if id != "" {
		return id, nil
	}

	var out dataEnvelope
	if err := c.getJSON(ctx, "/users?login="+url.QueryEscape(c.channel), &out); err != nil {
		return "", fmt.Errorf("resolve channel id: %w", err)
	}
	if len(out.Data) == 0 {
		return "", fmt.Errorf("channel %q not found", c.channel)
	}

	c.mu.Lock()
	c.channelID = out.Data[0].ID
	c.mu.Unlock()
	return out.Data[0].ID, nil
}

func (c *LiveChecker) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Client-ID", c.clientID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("helix status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
