package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
)

var ErrBadStatusCode = fmt.Errorf("bad status code")

// Client is the low-level HTTP client for the dashboard backend's REST API.
type Client struct {
	BaseURL string
	APIKey  string

	httpClient *http.Client
}

type ClientOption func(*Client)

// WithAPIKey returns a ClientOption that sets the API key sent with every
// request.
func WithAPIKey(key string) ClientOption {
	return func(cl *Client) {
		cl.APIKey = key
	}
}

// WithHTTPClient returns a ClientOption that sets the HTTP client to be used.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = httpClient
	}
}

// NewClient returns a new Client with the given baseURL and options.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	client := &Client{
		BaseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (cl *Client) urlFor(s string) string {
	return cl.BaseURL + "/" + s
}

func (cl *Client) newRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	if method == "" {
		method = http.MethodGet
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, cl.urlFor(url), reader)
	if err != nil {
		return nil, err
	}
	if cl.APIKey != "" {
		req.Header.Set("Authorization", "Key "+cl.APIKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Request performs one API call. body is JSON-encoded when non-nil; the
// response is decoded into out when non-nil.
func (cl *Client) Request(ctx context.Context, method, url string, body, out any) error {
	req, err := cl.newRequest(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	resp, err := cl.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrBadStatusCode, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
	}
	return nil
}
