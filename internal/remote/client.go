// Package remote implements the Remote Store client: CRUD over HTTP against
// the coinwatch API for the authenticated user's records.
//
// Endpoints, per entity family:
// - GET    {endpoint}              list the user's records
// - POST   {endpoint}              create from a draft, 201 with the record
// - PUT    {endpoint}              {"id": ..., ...patch}
// - DELETE {endpoint}?{param}=key  remove by key
//
// plus GET /api/session, which resolves the bearer token to a user id.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = types.DefaultRequestTimeout

// maxResponseSize limits response body reads to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// SessionPath is the endpoint resolving a bearer token to its user.
const SessionPath = "/api/session"

// TokenSource supplies the bearer token of the current session. It is asked
// on every request; false means no session.
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
}

// APIError is a non-2xx response. It unwraps to the taxonomy error for its
// status, so callers can use errors.Is with the sentinels in pkg/types.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("coinwatch API error (status %d): %s", e.StatusCode, e.Body)
}

// Unwrap maps the status code onto the error taxonomy.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return types.ErrUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return types.ErrNotFound
	case e.StatusCode == http.StatusConflict:
		return types.ErrAlreadyExists
	case e.StatusCode == http.StatusBadRequest:
		return types.ErrInvalidData
	case e.StatusCode >= 500:
		return types.ErrNetwork
	}
	return nil
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client is the coinwatch HTTP client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger
}

// New creates a client for baseURL. Requests carry the bearer token from
// tokens; with no token they fail with types.ErrUnauthorized before any
// network round trip.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		tokens: tokens,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type whoAmIResponse struct {
	UserID string `json:"userId"`
}

// WhoAmI returns the user id the current token belongs to.
func (c *Client) WhoAmI(ctx context.Context) (string, error) {
	var resp whoAmIResponse
	if err := c.do(ctx, http.MethodGet, SessionPath, nil, nil, &resp); err != nil {
		return "", err
	}
	if resp.UserID == "" {
		return "", fmt.Errorf("%w: empty userId", types.ErrSerialization)
	}
	return resp.UserID, nil
}

// do sends one request and decodes the JSON response into respBody when it
// is non-nil. Errors are mapped onto the taxonomy in pkg/types.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, reqBody, respBody any) error {
	token, ok := c.tokens.Token(ctx)
	if !ok || token == "" {
		return fmt.Errorf("%s %s: %w: no session", method, path, types.ErrUnauthorized)
	}

	var body io.Reader
	if reqBody != nil {
		raw, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("%w: marshaling request: %v", types.ErrSerialization, err)
		}
		body = bytes.NewReader(raw)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%w: creating request: %v", types.ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", slog.String("method", method), slog.String("path", path), slog.Any("err", err))
		return fmt.Errorf("%w: sending request: %v", types.ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Read maxResponseSize+1 to detect oversized responses while still
	// accepting responses exactly at the limit.
	respBodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", types.ErrNetwork, err)
	}
	if int64(len(respBodyBytes)) > maxResponseSize {
		return fmt.Errorf("%w: response exceeds maximum size of %d bytes", types.ErrSerialization, maxResponseSize)
	}

	c.logger.Debug("request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       errorMessage(respBodyBytes),
		}
	}

	if respBody == nil {
		return nil
	}
	if err := json.Unmarshal(respBodyBytes, respBody); err != nil {
		return fmt.Errorf("%w: decoding response: %v", types.ErrSerialization, err)
	}
	return nil
}

// errorMessage extracts {"error": msg} from an error body, falling back to
// the raw text.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
