package alphavantage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"stockquote/internal/httpx"
)

const baseURL = "https://www.alphavantage.co"

// ErrMissingAPIKey is returned when the client is built without a key.
var ErrMissingAPIKey = errors.New("alphavantage: api key not set")

// AdvisoryError is an HTTP 200 body carrying "Error Message", "Note" or
// "Information" instead of data. Throttling arrives this way.
type AdvisoryError struct {
	Kind    string
	Message string
}

func (e *AdvisoryError) Error() string {
	return fmt.Sprintf("alphavantage %s: %s", e.Kind, e.Message)
}

// Client is a client for the Alpha Vantage query API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP client.
	httpClient httpx.Doer
	// header contains additional headers to be sent with each request.
	header http.Header
	// apiKey is sent as the apikey query parameter.
	apiKey string
}

// Option is a configuration option for the Alpha Vantage client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(d httpx.Doer) Option {
	return func(c *Client) {
		c.httpClient = d
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewClient creates a new Alpha Vantage client.
func NewClient(key string, options ...Option) (*Client, error) {
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		apiKey:     key,
	}
	for _, option := range options {
		option(c)
	}
	return c, nil
}

func (c *Client) query(ctx context.Context, function, symbol string, v any) error {
	q := url.Values{}
	q.Set("function", function)
	q.Set("symbol", symbol)
	q.Set("apikey", c.apiKey)
	u := fmt.Sprintf("%s/query?%s", c.baseURL, q.Encode())
	return httpx.GetJSON(ctx, c.httpClient, u, c.header, v)
}

// advisory fields share the top level of every response
type advisory struct {
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

func (a advisory) err() error {
	switch {
	case a.ErrorMessage != "":
		return &AdvisoryError{Kind: "Error Message", Message: a.ErrorMessage}
	case a.Note != "":
		return &AdvisoryError{Kind: "Note", Message: a.Note}
	case a.Information != "":
		return &AdvisoryError{Kind: "Information", Message: a.Information}
	}
	return nil
}

// field reads a loosely typed value as text; null reads as "".
func field(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}
