// Package tools implements the data lookups exposed to MCP clients: news
// headlines and world time zones from the Juhe open data API, plus a trivial
// adder.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

const (
	// DefaultNewsURL is the Juhe headlines endpoint
	DefaultNewsURL = "http://v.juhe.cn/toutiao/index"

	// DefaultTimezoneURL is the Juhe world time endpoint
	DefaultTimezoneURL = "http://apis.juhe.cn/worldtime/"

	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

var (
	// ErrMissingAPIKey indicates a client was configured without credentials
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidChoice indicates a parameter outside its closed set of values
	ErrInvalidChoice = errors.New("invalid choice")

	// ErrUnexpectedFormat indicates an upstream reply without the expected payload
	ErrUnexpectedFormat = errors.New("unexpected response format")
)

// APIError is a non-zero error_code returned by the upstream API
type APIError struct {
	Code   int
	Reason string
}

func (e *APIError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("upstream error %d", e.Code)
	}
	return fmt.Sprintf("upstream error %d: %s", e.Code, e.Reason)
}

// StatusError is a non-2xx HTTP status from the upstream API
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

// Config configures an upstream API client
type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// envelope is the common Juhe response wrapper
type envelope struct {
	ErrorCode int             `json:"error_code"`
	Reason    string          `json:"reason"`
	Result    json.RawMessage `json:"result"`
}

// client performs keyed GET requests against one Juhe endpoint. Transport
// failures and 5xx replies trip a circuit breaker so a dead upstream fails fast.
type client struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

func newClient(name, defaultURL string, cfg Config) (*client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrMissingAPIKey)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("%s: invalid base URL: %w", name, err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &client{
		name:       name,
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("upstream circuit breaker changed state",
				"upstream", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
	})
	return c, nil
}

// get calls the endpoint with params plus the API key and decodes the
// envelope's result into out
func (c *client) get(ctx context.Context, params url.Values, out any) error {
	body, err := c.breaker.Execute(func() (any, error) {
		return c.fetch(ctx, params)
	})
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(body.([]byte), &env); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedFormat, err)
	}
	if env.ErrorCode != 0 {
		return &APIError{Code: env.ErrorCode, Reason: env.Reason}
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return ErrUnexpectedFormat
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedFormat, err)
	}
	return nil
}

func (c *client) fetch(ctx context.Context, params url.Values) ([]byte, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	for k, v := range params {
		q[k] = v
	}
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", c.name, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "upstream response", "upstream", c.name, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", c.name, err)
	}
	return body, nil
}
