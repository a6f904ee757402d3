// ABOUTME: HTTP client for the remote sensing service with API-key and
// ABOUTME: bearer-token headers and authorization repair on 401.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
)

// TokenSource supplies the current access token, empty when none is cached.
type TokenSource interface {
	AccessToken() string
}

// Repairer runs the credential repair sequence after an authorization
// failure and returns a fresh access token. Implementations must guarantee
// at most one repair in flight; concurrent callers share the result.
type Repairer interface {
	Repair(ctx context.Context) (string, error)
}

// Client talks to the remote sensing service. All requests carry the SDK
// API key; authenticated requests carry the cached bearer token and are
// replayed exactly once after a successful repair when the server answers
// 401.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *log.Logger

	tokens TokenSource
	repair Repairer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport, mainly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger replaces the default logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient builds a client for the service at baseURL.
func NewClient(baseURL, apiKey string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  log.Default(),
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetRepairer installs the authorization repair hook. Set after
// construction because the authenticator itself needs the client for its
// registration and login calls.
func (c *Client) SetRepairer(r Repairer) {
	c.repair = r
}

// requestOpts control per-call behavior of do.
type requestOpts struct {
	noAuth bool          // identity endpoints run before a token exists
	query  url.Values
}

// do executes one API call. body and out may be nil. A 2xx with an empty
// body when out is non-nil returns ErrMissingBody.
func (c *Client) do(ctx context.Context, method, path string, body, out any, opts requestOpts) error {
	token := ""
	if !opts.noAuth && c.tokens != nil {
		token = c.tokens.AccessToken()
	}

	resp, err := c.send(ctx, method, path, body, token, opts)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && !opts.noAuth && c.repair != nil {
		_ = resp.Body.Close()
		c.logger.Debug("authorization failed, running repair", "path", path)
		token, err = c.repair.Repair(ctx)
		if err != nil {
			return fmt.Errorf("authorization repair: %w", err)
		}
		// Replay exactly once with the repaired token.
		resp, err = c.send(ctx, method, path, body, token, opts)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(raw) == 0 {
		return ErrMissingBody
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body any, token string, opts requestOpts) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}

	u := c.baseURL + path
	if len(opts.query) > 0 {
		u += "?" + opts.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}
