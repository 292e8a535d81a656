package webhooksim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/commitquest/internal/adapters/http/api"
)

// Client talks to a commitquest server.
type Client struct {
	baseURL string
	secret  []byte
	http    *http.Client
}

// NewClient creates a client with the given timeout. An empty secret sends
// unsigned deliveries.
func NewClient(baseURL, secret string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		secret:  []byte(secret),
		http:    &http.Client{Timeout: timeout},
	}
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

// Deliver posts one signed delivery and decodes the result.
func (c *Client) Deliver(ctx context.Context, d Delivery) (Ack, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/webhooks/github", bytes.NewReader(d.Body))
	if err != nil {
		return Ack{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.HeaderEvent, d.Event)
	req.Header.Set(api.HeaderDelivery, d.ID)
	if len(c.secret) > 0 {
		req.Header.Set(api.HeaderSignature, api.Sign(c.secret, d.Body))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Ack{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Ack{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Ack{}, fmt.Errorf("delivery %s: status %d: %s", d.ID, resp.StatusCode, bytes.TrimSpace(body))
	}
	var ack Ack
	if err := json.Unmarshal(body, &ack); err != nil {
		return Ack{}, fmt.Errorf("delivery %s: decode: %w", d.ID, err)
	}
	return ack, nil
}

// Leaderboard fetches the top n entries.
func (c *Client) Leaderboard(ctx context.Context, n int) ([]Entry, error) {
	url := c.baseURL + "/api/leaderboard"
	if n > 0 {
		url += "?limit=" + strconv.Itoa(n)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("leaderboard returned %d", resp.StatusCode)
	}
	var out []Entry
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode leaderboard: %w", err)
	}
	return out, nil
}
