// Package client is a small typed client for the hello service.
package client

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

// ErrUnexpectedStatus is returned alongside the response when the server does not answer 200
var ErrUnexpectedStatus = errors.New("unexpected status")

const defaultTimeout = 5 * time.Second

// Response is a decoded hello service response
type Response struct {
	Status int
	Body   string
}

// Client talks to a hello server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the server at baseURL (e.g. http://localhost:8080)
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HelloURL returns the /hello URL, with the who parameter when set
func (c *Client) HelloURL(who string) string {
	u := c.baseURL + "/hello"
	if who != "" {
		u += "?" + url.Values{"who": []string{who}}.Encode()
	}
	return u
}

// Hello calls GET /hello. A non-200 answer returns the response and ErrUnexpectedStatus.
func (c *Client) Hello(ctx context.Context, who string) (*Response, error) {
	return c.get(ctx, c.HelloURL(who))
}

// Health calls GET /health
func (c *Client) Health(ctx context.Context) (*Response, error) {
	return c.get(ctx, c.baseURL+"/health")
}

func (c *Client) get(ctx context.Context, target string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	out := &Response{
		Status: resp.StatusCode,
		Body:   string(body),
	}
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("GET %s: %w %d", target, ErrUnexpectedStatus, resp.StatusCode)
	}
	return out, nil
}
