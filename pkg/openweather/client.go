package openweather

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrMissingCity is returned when Current is called without a city.
var ErrMissingCity = errors.New("city is required")

// Conditions is the subset of the current-weather payload the assistant reads.
type Conditions struct {
	City        string
	StatusCode  int
	Temperature float64 // Celsius
	Description string
}

// OK reports whether the service found the city.
func (c *Conditions) OK() bool { return c.StatusCode == http.StatusOK }

// Config holds configuration for the OpenWeather client
type Config struct {
	APIKey  string
	BaseURL string        // Default: https://api.openweathermap.org/data/2.5
	Timeout time.Duration // Default: 10s
}

// Client queries the OpenWeather current-weather endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new OpenWeather client
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openweathermap.org/data/2.5"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &Client{
		apiKey:     config.APIKey,
		baseURL:    config.BaseURL,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

type currentResponse struct {
	Cod  json.RawMessage `json:"cod"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

// Current fetches current conditions in metric units. A city the service
// does not know is not an error: the returned Conditions carry its status code.
func (c *Client) Current(ctx context.Context, city string) (*Conditions, error) {
	if city == "" {
		return nil, ErrMissingCity
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var payload currentResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	code, err := parseCod(payload.Cod)
	if err != nil {
		return nil, err
	}

	cond := &Conditions{
		City:        city,
		StatusCode:  code,
		Temperature: payload.Main.Temp,
	}
	if len(payload.Weather) > 0 {
		cond.Description = payload.Weather[0].Description
	}
	return cond, nil
}

// parseCod handles the service reporting "cod" as a number on success and
// as a string on failure.
func parseCod(raw json.RawMessage) (int, error) {
	raw = bytes.Trim(bytes.TrimSpace(raw), `"`)
	if len(raw) == 0 {
		return 0, errors.New("response has no status code")
	}
	code, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid status code %q: %w", raw, err)
	}
	return code, nil
}
