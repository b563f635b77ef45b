// Package client talks to the table REST API and converts every failure into
// a uniform result with a validation, api or unknown error.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-datatable/internal/notify"
	"github.com/noah-isme/sma-adp-datatable/pkg/middleware/requestid"
)

// ErrorType classifies failed calls.
type ErrorType string

const (
	// ErrorValidation means the request or response did not have the expected shape.
	ErrorValidation ErrorType = "validation"
	// ErrorAPI means the server answered with a non-2xx status.
	ErrorAPI ErrorType = "api"
	// ErrorUnknown covers network and other failures.
	ErrorUnknown ErrorType = "unknown"
)

const (
	fallbackValidationMessage = "The server returned an unexpected response."
	fallbackUnknownMessage    = "Something went wrong. Please try again later."
	sessionExpiredMessage     = "Your session has expired. Please sign in again."
	forbiddenMessage          = "You do not have access to this resource."
)

// Error is the failure half of a Result.
type Error struct {
	Type    ErrorType   `json:"type"`
	Status  int         `json:"status,omitempty"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`

	surfaced bool
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s error (%d): %s", e.Type, e.Status, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying transport or decode error.
func (e *Error) Unwrap() error { return e.Err }

// Surfaced reports whether the user was already notified.
func (e *Error) Surfaced() bool { return e.surfaced }

// Links mirrors the envelope's navigation links.
type Links struct {
	Self string `json:"self"`
	Next string `json:"next,omitempty"`
	Prev string `json:"prev,omitempty"`
}

// Result is the outcome of one call.
type Result[T any] struct {
	Success bool
	Message string
	Data    T
	Meta    map[string]json.RawMessage
	Links   *Links
	Error   *Error
}

// Err returns the failure as an error, or nil.
func (r Result[T]) Err() error {
	if r.Error == nil {
		return nil
	}
	return r.Error
}

// Client calls the table API.
type Client struct {
	baseURL        string
	http           *http.Client
	tokens         TokenStore
	logger         *zap.Logger
	notifier       notify.Notifier
	onUnauthorized func()
	onForbidden    func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithTokenStore sets where the bearer token is read from.
func WithTokenStore(s TokenStore) Option {
	return func(c *Client) {
		if s != nil {
			c.tokens = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithNotifier sets where error toasts go.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) {
		c.notifier = notify.Or(n)
	}
}

// OnUnauthorized is called after a 401 cleared the stored token.
func OnUnauthorized(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// OnForbidden is called after a 403.
func OnForbidden(fn func()) Option {
	return func(c *Client) { c.onForbidden = fn }
}

// New creates a client for the API rooted at baseURL, e.g.
// http://localhost:8080/api/v1.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 10 * time.Second},
		tokens:   NewMemoryStore(""),
		logger:   zap.NewNop(),
		notifier: notify.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tokens returns the token store.
func (c *Client) Tokens() TokenStore {
	return c.tokens
}

// send performs one request and decodes the envelope's data into T.
func send[T any](ctx context.Context, c *Client, method, path string, query url.Values, body interface{}) Result[T] {
	var res Result[T]
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			res.Error = c.surface(&Error{Type: ErrorValidation, Message: "invalid request payload", Err: err})
			return res
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		res.Error = c.surface(&Error{Type: ErrorUnknown, Message: err.Error(), Err: err})
		return res
	}
	reqID := requestid.New()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestid.Header, reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, _ := c.tokens.Get(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			res.Error = &Error{Type: ErrorUnknown, Message: "request cancelled", Err: err}
			return res
		}
		res.Error = c.surface(&Error{Type: ErrorUnknown, Message: err.Error(), Err: err})
		return res
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Error = c.surface(&Error{Type: ErrorUnknown, Status: resp.StatusCode, Message: "read response body", Err: err})
		return res
	}
	c.logger.Debug("api call",
		zap.String("method", method),
		zap.String("path", req.URL.Path),
		zap.String("request_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		res.Error = c.surface(apiError(resp.StatusCode, raw))
		return res
	}

	env, verr := decodeEnvelope(raw)
	if verr != nil {
		verr.Status = resp.StatusCode
		res.Error = c.surface(verr)
		return res
	}
	if err := json.Unmarshal(env.Data, &res.Data); err != nil {
		res.Error = c.surface(&Error{Type: ErrorValidation, Status: resp.StatusCode, Message: "response data has an unexpected shape", Err: err})
		return res
	}
	res.Success = true
	res.Message = env.Message
	res.Meta = env.Meta
	res.Links = env.Links
	return res
}

type envelope struct {
	Message string
	Data    json.RawMessage
	Meta    map[string]json.RawMessage
	Links   *Links
}

// decodeEnvelope requires a JSON object with a string message and a data key.
func decodeEnvelope(raw []byte) (*envelope, *Error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &Error{Type: ErrorValidation, Message: "response is not a JSON object", Err: err}
	}
	env := &envelope{}
	msg, ok := fields["message"]
	if !ok {
		return nil, &Error{Type: ErrorValidation, Message: "response envelope is missing message"}
	}
	if err := json.Unmarshal(msg, &env.Message); err != nil {
		return nil, &Error{Type: ErrorValidation, Message: "response message must be a string", Err: err}
	}
	data, ok := fields["data"]
	if !ok {
		return nil, &Error{Type: ErrorValidation, Message: "response envelope is missing data"}
	}
	env.Data = data
	if meta, ok := fields["meta"]; ok && string(meta) != "null" {
		if err := json.Unmarshal(meta, &env.Meta); err != nil {
			return nil, &Error{Type: ErrorValidation, Message: "response meta must be an object", Err: err}
		}
	}
	if links, ok := fields["links"]; ok && string(links) != "null" {
		if err := json.Unmarshal(links, &env.Links); err != nil {
			return nil, &Error{Type: ErrorValidation, Message: "response links must be an object", Err: err}
		}
	}
	return env, nil
}

// apiError extracts the server message from an error envelope when present.
func apiError(status int, raw []byte) *Error {
	out := &Error{Type: ErrorAPI, Status: status}
	var body struct {
		Message string `json:"message"`
		Error   *struct {
			Code    string      `json:"code"`
			Message string      `json:"message"`
			Details interface{} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		out.Message = body.Message
		if body.Error != nil {
			if body.Error.Message != "" {
				out.Message = body.Error.Message
			}
			out.Details = body.Error.Details
		}
	}
	if out.Message == "" {
		out.Message = http.StatusText(status)
	}
	return out
}

// surface applies the side effects of a failure: toasts, token clearing and
// navigation callbacks.
func (c *Client) surface(e *Error) *Error {
	c.logger.Warn("api call failed",
		zap.String("type", string(e.Type)),
		zap.Int("status", e.Status),
		zap.String("message", e.Message),
		zap.Error(e.Err),
	)
	switch {
	case e.Type == ErrorAPI && e.Status == http.StatusUnauthorized:
		if err := c.tokens.Clear(); err != nil {
			c.logger.Warn("clear token", zap.Error(err))
		}
		c.notifier.Notify(notify.LevelWarning, sessionExpiredMessage)
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
	case e.Type == ErrorAPI && e.Status == http.StatusForbidden:
		c.notifier.Notify(notify.LevelError, forbiddenMessage)
		if c.onForbidden != nil {
			c.onForbidden()
		}
	case e.Type == ErrorAPI && e.Status == http.StatusBadRequest:
		c.notifier.Notify(notify.LevelError, e.Message)
	case e.Type == ErrorAPI:
		c.notifier.Notify(notify.LevelError, e.Message+". Please try again later.")
	case e.Type == ErrorValidation:
		c.notifier.Notify(notify.LevelError, fallbackValidationMessage)
	default:
		c.notifier.Notify(notify.LevelError, fallbackUnknownMessage)
	}
	e.surfaced = true
	return e
}
