// Package wolfram is a minimal client for the Wolfram|Alpha Short Answers API.
package wolfram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNoAnswer is returned when the service cannot interpret the query.
var ErrNoAnswer = errors.New("no short answer available")

// Config holds configuration for the Wolfram|Alpha client
type Config struct {
	AppID   string
	BaseURL string        // Default: https://api.wolframalpha.com/v1
	Timeout time.Duration // Default: 10s
}

type Client struct {
	appID      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.wolframalpha.com/v1"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &Client{
		appID:      config.AppID,
		baseURL:    config.BaseURL,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Query sends the raw natural-language query and returns the plain-text answer.
func (c *Client) Query(ctx context.Context, query string) (string, error) {
	q := url.Values{}
	q.Set("appid", c.appID)
	q.Set("i", query)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/result?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	// 501 is the documented "cannot interpret" status.
	if resp.StatusCode == http.StatusNotImplemented {
		return "", ErrNoAnswer
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	answer := strings.TrimSpace(string(body))
	if answer == "" {
		return "", ErrNoAnswer
	}
	return answer, nil
}
