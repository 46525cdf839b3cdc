// Package duckduckgo scrapes the first result snippet from DuckDuckGo's
// HTML-only endpoint.
package duckduckgo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoResult is returned when the page has no result snippet.
var ErrNoResult = errors.New("no result snippet")

// Config holds configuration for the DuckDuckGo client
type Config struct {
	BaseURL   string        // Default: https://html.duckduckgo.com/html/
	UserAgent string        // Default: Mozilla/5.0
	Timeout   time.Duration // Default: 5s
}

type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://html.duckduckgo.com/html/"
	}
	if config.UserAgent == "" {
		config.UserAgent = "Mozilla/5.0"
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    config.BaseURL,
		userAgent:  config.UserAgent,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Snippet returns the text of the first a.result__snippet element.
func (c *Client) Snippet(ctx context.Context, query string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse results page: %w", err)
	}

	snippet := strings.TrimSpace(doc.Find("a.result__snippet").First().Text())
	if snippet == "" {
		return "", ErrNoResult
	}
	return strings.Join(strings.Fields(snippet), " "), nil
}
