package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrNoArticles is returned when the service answers but has nothing for
// the topic, including a non-"ok" status.
var ErrNoArticles = errors.New("no articles found")

// Config holds configuration for the NewsAPI client
type Config struct {
	APIKey   string
	BaseURL  string        // Default: https://newsapi.org/v2
	Language string        // Default: en
	Timeout  time.Duration // Default: 10s
}

// Client fetches headlines from NewsAPI's "everything" endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
}

// NewClient creates a new NewsAPI client
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://newsapi.org/v2"
	}
	if config.Language == "" {
		config.Language = "en"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &Client{
		apiKey:     config.APIKey,
		baseURL:    config.BaseURL,
		language:   config.Language,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

type everythingResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Title string `json:"title"`
	} `json:"articles"`
}

// Headlines returns up to limit article titles for topic, in service order.
func (c *Client) Headlines(ctx context.Context, topic string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 3
	}

	q := url.Values{}
	q.Set("q", topic)
	q.Set("apiKey", c.apiKey)
	q.Set("language", c.language)
	q.Set("pageSize", strconv.Itoa(limit))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/everything?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	var payload everythingResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if payload.Status != "ok" {
		return nil, fmt.Errorf("%w: status=%s code=%s: %s", ErrNoArticles, payload.Status, payload.Code, payload.Message)
	}
	if len(payload.Articles) == 0 {
		return nil, ErrNoArticles
	}

	n := min(limit, len(payload.Articles))
	titles := make([]string, 0, n)
	for _, a := range payload.Articles[:n] {
		titles = append(titles, a.Title)
	}
	return titles, nil
}
