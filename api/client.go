package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	errs "github.com/jrsteele09/go-tourbook/internal/errors"
)

const defaultRefreshPath = "/auth/refresh"

// Client sends JSON requests to the Tourbook backend. Every request passes
// through two decoration stages: bearer injection before transmission and
// 401 recovery after the response (see retry.go).
type Client struct {
	baseURL     string
	refreshPath string
	httpClient  *http.Client
	authority   TokenAuthority
	log         zerolog.Logger
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

// WithLogger sets the request logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithHTTPClient replaces the underlying transport (primarily for testing).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithRefreshPath overrides the path recognised as the token refresh
// endpoint. A 401 from this path is never recovered.
func WithRefreshPath(path string) Option {
	return func(c *Client) {
		c.refreshPath = path
	}
}

// New creates a Client for the given base URL. The timeout is the per-request
// ceiling; exceeding it surfaces as a network error, not a retry.
func New(baseURL string, timeout time.Duration, options ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		refreshPath: defaultRefreshPath,
		httpClient:  &http.Client{Timeout: timeout},
		log:         zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Bind attaches the token authority consulted by the bearer injection and
// 401 recovery stages. Intended to be called once, by the session manager's
// constructor.
func (c *Client) Bind(authority TokenAuthority) {
	c.authority = authority
}

// request is a single outgoing call. The retried flag is set once, at replay
// time, and is the sole authority for the retry-once rule.
type request struct {
	method  string
	path    string
	query   url.Values
	body    []byte
	retried bool
}

// RequestOption modifies a single request before it is sent.
type RequestOption func(*request)

// WithQuery attaches URL query parameters to the request.
func WithQuery(values url.Values) RequestOption {
	return func(r *request) {
		r.query = values
	}
}

// Get issues a GET request and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any, options ...RequestOption) error {
	return c.do(ctx, http.MethodGet, path, nil, out, options...)
}

// Post issues a POST request with a JSON body and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any, options ...RequestOption) error {
	return c.do(ctx, http.MethodPost, path, body, out, options...)
}

// Patch issues a PATCH request with a JSON body and decodes the response into out.
func (c *Client) Patch(ctx context.Context, path string, body, out any, options ...RequestOption) error {
	return c.do(ctx, http.MethodPatch, path, body, out, options...)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, options ...RequestOption) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, options...)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, options ...RequestOption) error {
	req := request{method: method, path: path}
	for _, opt := range options {
		opt(&req)
	}

	// Marshal once so a replay reuses the identical bytes.
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errs.Wrapf(err, "[Client.do] marshal %s %s body", method, path)
		}
		req.body = encoded
	}

	return c.send(ctx, req, out)
}

// send performs a single transmission of req and decodes the response. A 401
// hands over to recover, which may call send again exactly once with the
// retried flag set.
func (c *Client) send(ctx context.Context, req request, out any) error {
	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var reader io.Reader
	if req.body != nil {
		reader = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, reader)
	if err != nil {
		return errs.Wrapf(err, "[Client.send] build %s %s", req.method, req.path)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.authority != nil {
		if token := c.authority.AccessToken(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.log.Debug().Str("method", req.method).Str("path", req.path).Bool("retried", req.retried).Msg("sending request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Transport and timeout failures map to the network error class and
		// are never auto-retried.
		return errs.Wrapf(errs.ErrNetwork, "[Client.send] %s %s: %v", req.method, req.path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Wrapf(errs.ErrNetwork, "[Client.send] read %s %s response: %v", req.method, req.path, err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{StatusCode: resp.StatusCode, Message: serverMessage(payload, resp.Status)}
		if resp.StatusCode == http.StatusUnauthorized {
			return c.recover(ctx, req, out, apiErr)
		}
		return apiErr
	}

	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return errs.Wrapf(err, "[Client.send] decode %s %s response", req.method, req.path)
		}
	}
	return nil
}

// serverMessage extracts the human-readable message from an error payload,
// falling back to the HTTP status text.
func serverMessage(payload []byte, fallback string) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return fallback
}
