/**
 * @description
 * This package provides a client for the push notification gateway. It
 * encapsulates the logic for making authenticated HTTP requests to the
 * gateway's delivery endpoint and interpreting its responses. Delivery is
 * best-effort: callers treat any returned error as a logging concern only.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package pushclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Push is a single notification addressed to one platform user.
type Push struct {
	To     string      `json:"to"`
	Type   string      `json:"type"`
	Action string      `json:"action"`
	Data   interface{} `json:"data,omitempty"`
}

// Sender is the interface implemented by types that can deliver a Push.
type Sender interface {
	Send(ctx context.Context, push Push) error
}

// Client is a client for the push notification gateway.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new push gateway client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			// Notification delivery must never hold up a settlement response.
			Timeout: 5 * time.Second,
		},
	}
}

// Send delivers a single push notification through the gateway.
func (c *Client) Send(ctx context.Context, push Push) error {
	jsonBody, err := json.Marshal(push)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	url := c.BaseURL + "/push"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("push gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("push gateway returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
