// Package cms is a small client for the Strapi REST API that holds every
// sponsor, sponsorship, child and content record.
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultTimeout bounds every CMS call
const DefaultTimeout = 8 * time.Second

// Observer is notified after every CMS round trip. status is 0 when the
// request never produced a response.
type Observer func(collection, method string, status int, elapsed time.Duration)

// Client talks to one CMS instance with one set of credentials
type Client struct {
	baseURL  string
	base     *http.Client
	http     *http.Client
	token    string
	timeout  time.Duration
	observer Observer
}

// Option configures a Client
type Option func(*Client)

// WithAPIToken authenticates every request with the given bearer token
func WithAPIToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout overrides DefaultTimeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient sets the underlying transport client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.base = hc }
}

// WithObserver installs a metrics hook
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New creates a client for baseURL. Without WithAPIToken the client is
// anonymous and sends no Authorization header.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		base:    http.DefaultClient,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = c.authorized(c.token)
	return c
}

// authorized wraps the base client so requests carry the bearer token
func (c *Client) authorized(token string) *http.Client {
	if token == "" {
		return c.base
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.base)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
}

// WithToken returns a copy of the client that acts as the user owning jwt
func (c *Client) WithToken(jwt string) *Client {
	clone := *c
	clone.token = jwt
	clone.http = c.authorized(jwt)
	return &clone
}

// Anonymous returns a copy of the client without credentials
func (c *Client) Anonymous() *Client {
	return c.WithToken("")
}

// HasToken reports whether requests are authenticated
func (c *Client) HasToken() bool {
	return c.token != ""
}

// BaseURL returns the CMS origin
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Raw performs a request against path and returns the response body.
// body is JSON-encoded unless it is an io.Reader.
func (c *Client) Raw(ctx context.Context, method, path string, q *Query, body any, header http.Header) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.baseURL + path
	if encoded := q.Encode(); encoded != "" {
		url += "?" + encoded
	}

	var reader io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(path, method, 0, time.Since(start))
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Printf("CMS fetch timeout: %s", path)
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("cms %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	c.observe(path, method, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to read cms response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, data)
	}
	return data, nil
}

func (c *Client) observe(path, method string, status int, elapsed time.Duration) {
	if c.observer != nil {
		c.observer(collectionOf(path), method, status, elapsed)
	}
}

// collectionOf maps /api/sponsors/abc to "sponsors"
func collectionOf(path string) string {
	path = strings.TrimPrefix(path, "/api/")
	if i := strings.IndexAny(path, "/?"); i >= 0 {
		path = path[:i]
	}
	return path
}

// DecodeData unwraps the {data: ...} envelope, flattens v4 attributes and
// decodes the result into out.
func DecodeData(raw []byte, out any) error {
	if out == nil || len(raw) == 0 {
		return nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("failed to decode cms response: %w", err)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	flat, err := FlattenJSON(envelope.Data)
	if err != nil {
		return fmt.Errorf("failed to decode cms response: %w", err)
	}
	if err := json.Unmarshal(flat, out); err != nil {
		return fmt.Errorf("failed to decode cms data: %w", err)
	}
	return nil
}

func collectionPath(collection string, id ...string) string {
	p := "/api/" + collection
	for _, part := range id {
		p += "/" + part
	}
	return p
}

// Find lists records of collection matching q into out (a pointer to a slice)
func (c *Client) Find(ctx context.Context, collection string, q *Query, out any) error {
	raw, err := c.Raw(ctx, http.MethodGet, collectionPath(collection), q, nil, nil)
	if err != nil {
		return err
	}
	return DecodeData(raw, out)
}

// FindOne fetches a single record by id or documentId
func (c *Client) FindOne(ctx context.Context, collection, id string, q *Query, out any) error {
	raw, err := c.Raw(ctx, http.MethodGet, collectionPath(collection, id), q, nil, nil)
	if err != nil {
		return err
	}
	return DecodeData(raw, out)
}

// Create posts {data: data} to the collection
func (c *Client) Create(ctx context.Context, collection string, data any, out any) error {
	raw, err := c.Raw(ctx, http.MethodPost, collectionPath(collection), nil, map[string]any{"data": data}, nil)
	if err != nil {
		return err
	}
	return DecodeData(raw, out)
}

// Update puts {data: data} to the record identified by documentID
func (c *Client) Update(ctx context.Context, collection, documentID string, data any, out any) error {
	raw, err := c.Raw(ctx, http.MethodPut, collectionPath(collection, documentID), nil, map[string]any{"data": data}, nil)
	if err != nil {
		return err
	}
	return DecodeData(raw, out)
}

// Delete removes the record identified by documentID
func (c *Client) Delete(ctx context.Context, collection, documentID string) error {
	_, err := c.Raw(ctx, http.MethodDelete, collectionPath(collection, documentID), nil, nil, nil)
	return err
}

// PostRaw posts body to an arbitrary path and decodes the plain JSON reply
// into out when out is non-nil.
func (c *Client) PostRaw(ctx context.Context, path string, header http.Header, body any, out any) error {
	raw, err := c.Raw(ctx, http.MethodPost, path, nil, body, header)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if rm, ok := out.(*json.RawMessage); ok {
		*rm = append((*rm)[:0], raw...)
		return nil
	}
	return json.Unmarshal(raw, out)
}
