// Package apiclient is the shared HTTP client for the Jejak Liqo REST
// backend. It attaches the stored bearer token to every request and reacts to
// 401 and 419 responses for all callers.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/me/jejakliqo/internal/access"
	"github.com/me/jejakliqo/internal/session"
	"github.com/me/jejakliqo/pkg/model"
)

// Default client settings.
const (
	DefaultTimeout       = 15 * time.Second
	DefaultUploadTimeout = 30 * time.Second
	DefaultRedirectDelay = 2 * time.Second
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the backend API origin, e.g. https://api.example.org/api.
	BaseURL string

	// AssetBaseURL is the origin for static assets such as profile pictures.
	AssetBaseURL string

	// Timeout applies to requests that do not set their own.
	Timeout time.Duration

	// UploadTimeout applies to multipart requests that do not set their own.
	UploadTimeout time.Duration

	// RedirectDelay is how long after a 401 the login redirect is signalled.
	RedirectDelay time.Duration
}

// DefaultConfig returns a Config with default timeouts and no URLs.
func DefaultConfig() Config {
	return Config{
		Timeout:       DefaultTimeout,
		UploadTimeout: DefaultUploadTimeout,
		RedirectDelay: DefaultRedirectDelay,
	}
}

// WithBaseURL returns a copy of the config with the specified base URL.
func (c Config) WithBaseURL(u string) Config {
	c.BaseURL = u
	return c
}

// Client is the authenticated HTTP client. Construct one at startup and share it.
type Client struct {
	cfg        Config
	httpClient *http.Client
	sessions   *session.Manager
	notifier   Notifier
	route      func() string
	schedule   func(time.Duration, func())
	logger     *slog.Logger
}

// Option configures optional Client dependencies.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithNotifier sets the receiver of session lifecycle events.
func WithNotifier(n Notifier) Option {
	return func(c *Client) {
		c.notifier = n
	}
}

// WithRouteFunc reports the UI's current route. When it returns the login
// path, a 401 does not schedule a login redirect.
func WithRouteFunc(f func() string) Option {
	return func(c *Client) {
		c.route = f
	}
}

// WithScheduler replaces time.AfterFunc for delayed events, for tests.
func WithScheduler(f func(time.Duration, func())) Option {
	return func(c *Client) {
		c.schedule = f
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With("component", "apiclient")
	}
}

// New creates a client for cfg that reads tokens from sessions.
func New(cfg Config, sessions *session.Manager, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = DefaultUploadTimeout
	}
	if cfg.RedirectDelay < 0 {
		cfg.RedirectDelay = 0
	}

	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		sessions: sessions,
		notifier: nopNotifier{},
		route:    func() string { return "" },
		schedule: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Sessions returns the session manager the client reads tokens from.
func (c *Client) Sessions() *session.Manager {
	return c.sessions
}

// Request describes one API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header

	// Body is encoded as JSON. Ignored when Multipart is set.
	Body any

	// Multipart sends a multipart/form-data body.
	Multipart *Multipart

	// Timeout overrides the configured timeout for this call.
	Timeout time.Duration
}

// Response is a completed API call with a 2xx status.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// Envelope is the parsed JSON envelope, nil for non-JSON bodies.
	Envelope *model.Response
}

// Do sends req through the request and response interceptors.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	logger := c.logger.With("method", method, "path", req.Path)

	// Request interception: expiry short-circuit and bearer token.
	sess, err := c.sessions.Inspect(ctx)
	if errors.Is(err, session.ErrSessionExpired) {
		logger.Info("session expired before request, not sending")
		now := c.sessions.Now()
		c.notifier.Notify(Event{Reason: ReasonSessionExpired, Path: req.Path, At: now})
		c.notifier.Notify(Event{Reason: ReasonRedirectLogin, Path: req.Path, At: now})
		return nil, fmt.Errorf("%s %s: %w", method, req.Path, ErrSessionExpired)
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var (
		body        io.Reader
		contentType string
		timeout     = req.Timeout
	)
	switch {
	case req.Multipart != nil:
		buf, ct, err := req.Multipart.encode()
		if err != nil {
			return nil, fmt.Errorf("encode multipart: %w", err)
		}
		body, contentType = buf, ct
		if timeout <= 0 {
			timeout = c.cfg.UploadTimeout
		}
	case req.Body != nil:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body, contentType = bytes.NewReader(data), "application/json"
	}
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, method, c.url(req.Path, req.Query), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Multipart != nil {
		// The boundary must come from the encoder; a caller-supplied
		// multipart content type would not match the body.
		httpReq.Header.Del("Content-Type")
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if sess != nil {
		httpReq.Header.Set("Authorization", "Bearer "+sess.Token)
	}

	logger.Debug("HTTP request", "timeout", timeout, "authenticated", sess != nil)
	start := time.Now()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logger.Debug("HTTP request failed", "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("%s %s: %w", method, req.Path, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read response: %w", method, req.Path, err)
	}

	logger.Debug("HTTP response", "status", httpResp.StatusCode, "bytes", len(respBody), "duration", time.Since(start))

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
		Envelope:   parseEnvelope(httpResp.Header, respBody),
	}

	// Response interception.
	switch httpResp.StatusCode {
	case http.StatusUnauthorized:
		c.handleUnauthorized(ctx, req.Path)
	case StatusPageExpired:
		logger.Warn("page expired, requesting reload")
		c.notifier.Notify(Event{Reason: ReasonReload, StatusCode: StatusPageExpired, Path: req.Path, At: c.sessions.Now()})
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		httpErr := &HTTPError{
			Method:     method,
			Path:       req.Path,
			StatusCode: httpResp.StatusCode,
			Body:       string(respBody),
		}
		if resp.Envelope != nil {
			httpErr.Message = resp.Envelope.Message
			httpErr.Errors = resp.Envelope.Errors
		}
		return resp, httpErr
	}

	return resp, nil
}

// handleUnauthorized purges the session, signals the UI, and schedules the
// login redirect unless the UI is already on the login page.
func (c *Client) handleUnauthorized(ctx context.Context, path string) {
	// The purge must not be cut short by the request's own deadline.
	if err := c.sessions.ClearAuthData(context.WithoutCancel(ctx)); err != nil {
		c.logger.Error("clear session after 401", "error", err)
	}
	c.notifier.Notify(Event{Reason: ReasonUnauthorized, StatusCode: http.StatusUnauthorized, Path: path, At: c.sessions.Now()})

	if c.route() == access.LoginPath {
		return
	}
	c.schedule(c.cfg.RedirectDelay, func() {
		c.notifier.Notify(Event{Reason: ReasonRedirectLogin, StatusCode: http.StatusUnauthorized, Path: path, At: c.sessions.Now()})
	})
}

// url joins the base URL, path and query.
func (c *Client) url(path string, query url.Values) string {
	u := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// AssetURL returns the public URL of a stored asset path such as a profile
// picture. Absolute URLs are returned unchanged; an empty path yields "".
func (c *Client) AssetURL(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	base := c.cfg.AssetBaseURL
	if base == "" {
		base = c.cfg.BaseURL
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// parseEnvelope decodes a JSON envelope. It returns nil for non-JSON bodies.
func parseEnvelope(h http.Header, body []byte) *model.Response {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if ct := h.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err == nil && mediaType != "application/json" && !strings.HasSuffix(mediaType, "+json") {
			return nil
		}
	}
	var env model.Response
	if err := json.Unmarshal(body, &env); err != nil {
		return nil
	}
	return &env
}
