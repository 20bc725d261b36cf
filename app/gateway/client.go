package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lysyi3m/folio-pulse/app/content"
)

const defaultTimeout = 15 * time.Second

var (
	ErrUnknownKind  = errors.New("no content endpoint for kind")
	ErrUnauthorized = errors.New("content API rejected the access token")
)

var endpoints = map[content.Kind]string{
	content.KindProject:     "/content/projects",
	content.KindBlog:        "/content/blogs",
	content.KindMessage:     "/content/messages",
	content.KindTestimonial: "/content/testimonials",
	content.KindExperience:  "/content/experience",
	content.KindSkill:       "/content/skills",
	content.KindService:     "/content/services",
	content.KindCertificate: "/certificates",
	content.KindAchievement: "/achievements",
}

// HTTPClient allows injecting a custom transport in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTokenSource(tokens TokenSource) ClientOption {
	return func(c *Client) {
		c.tokens = tokens
	}
}

func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// Client reads content collections from the portfolio content API.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	tokens     TokenSource
	userAgent  string
	timeout    time.Duration
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		tokens:     StaticToken(""),
		timeout:    defaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is returned when the content API answers but reports a failure.
type APIError struct {
	Kind       content.Kind
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("content API error for %s: HTTP %d", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("content API error for %s: %s (HTTP %d)", e.Kind, e.Message, e.StatusCode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *Client) Fetch(ctx context.Context, kind content.Kind) ([]content.Record, error) {
	path, ok := endpoints[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	body, status, err := c.doRequest(ctx, c.baseURL+path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", kind, err)
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, fmt.Errorf("failed to fetch %s: %w", kind, ErrUnauthorized)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if status != http.StatusOK {
			return nil, &APIError{Kind: kind, StatusCode: status}
		}
		return nil, fmt.Errorf("failed to parse %s response: %w", kind, err)
	}

	if status != http.StatusOK || !env.Success {
		return nil, &APIError{Kind: kind, StatusCode: status, Message: env.Error}
	}

	records, err := decodeRecords(env.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s records: %w", kind, err)
	}

	slog.Debug("Fetched content collection", "kind", kind, "count", len(records))
	return records, nil
}

func (c *Client) doRequest(ctx context.Context, url string) ([]byte, int, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, resp.StatusCode, nil
}

// decodeRecords keeps numbers as json.Number so large ids survive intact.
// A null payload is an empty collection.
func decodeRecords(data json.RawMessage) ([]content.Record, error) {
	records := make([]content.Record, 0)
	if len(data) == 0 || string(data) == "null" {
		return records, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}
