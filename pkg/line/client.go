package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// BaseURL is the LINE Messaging API base URL.
	BaseURL = "https://api.line.me/v2/bot"
)

// Client is a minimal HTTP client for the LINE Messaging API.
type Client struct {
	httpClient   *http.Client
	channelToken string
}

// NewClient constructs a new LINE client with sane defaults.
func NewClient(channelToken string) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		channelToken: channelToken,
	}
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type broadcastRequest struct {
	Messages []textMessage `json:"messages"`
}

// Broadcast sends a text message to every friend of the channel.
func (c *Client) Broadcast(ctx context.Context, text string) error {
	body, err := json.Marshal(broadcastRequest{
		Messages: []textMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return fmt.Errorf("marshal broadcast: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, BaseURL+"/message/broadcast", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build broadcast request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.channelToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send broadcast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("broadcast rejected: status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
