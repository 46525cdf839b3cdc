// Package wikipedia fetches short article summaries through the MediaWiki
// action API, resolving free-text topics with the search generator.
package wikipedia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotFound  = errors.New("no matching article")
	ErrAmbiguous = errors.New("topic resolves to a disambiguation page")
)

// Config holds configuration for the Wikipedia client
type Config struct {
	BaseURL   string        // Default: https://en.wikipedia.org/w/api.php
	UserAgent string        // Default: commandbot/1.0
	Sentences int           // Default: 2
	Timeout   time.Duration // Default: 10s
}

type Client struct {
	baseURL    string
	userAgent  string
	sentences  int
	httpClient *http.Client
}

func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://en.wikipedia.org/w/api.php"
	}
	if config.UserAgent == "" {
		config.UserAgent = "commandbot/1.0 (https://github.com/themobileprof/commandbot)"
	}
	if config.Sentences <= 0 {
		config.Sentences = 2
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    config.BaseURL,
		userAgent:  config.UserAgent,
		sentences:  config.Sentences,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

type queryResponse struct {
	Query struct {
		Pages map[string]struct {
			Index     int               `json:"index"`
			Title     string            `json:"title"`
			Extract   string            `json:"extract"`
			PageProps map[string]string `json:"pageprops"`
		} `json:"pages"`
	} `json:"query"`
}

// Summary returns the plain-text lead of the best-matching article.
func (c *Client) Summary(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", ErrNotFound
	}

	q := url.Values{}
	q.Set("action", "query")
	q.Set("format", "json")
	q.Set("redirects", "1")
	q.Set("generator", "search")
	q.Set("gsrsearch", topic)
	q.Set("gsrlimit", "1")
	q.Set("prop", "extracts|pageprops")
	q.Set("ppprop", "disambiguation")
	q.Set("exintro", "1")
	q.Set("explaintext", "1")
	q.Set("exsentences", strconv.Itoa(c.sentences))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
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
		return "", fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var payload queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	// gsrlimit=1 yields at most one page, but pick the best index anyway.
	found := false
	bestIndex := 0
	var extract string
	var ambiguous bool
	for _, p := range payload.Query.Pages {
		if !found || p.Index < bestIndex {
			found = true
			bestIndex = p.Index
			extract = strings.TrimSpace(p.Extract)
			_, ambiguous = p.PageProps["disambiguation"]
		}
	}

	switch {
	case !found:
		return "", ErrNotFound
	case ambiguous:
		return "", ErrAmbiguous
	case extract == "":
		return "", ErrNotFound
	}
	return extract, nil
}
