// Package auth drives login, logout and token validation against the
// backend and records the resulting session locally.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/me/jejakliqo/internal/apiclient"
	"github.com/me/jejakliqo/internal/session"
	"github.com/me/jejakliqo/pkg/model"
)

// Backend endpoints.
const (
	PathLogin     = "/login"
	PathLogout    = "/logout"
	PathLogoutAll = "/logout-all"
	PathUser      = "/user"
)

// State is the progress of a login attempt.
type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateRetrying   State = "retrying"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
)

// LoginOptions tunes the login retry policy.
type LoginOptions struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// FirstTimeout bounds the first attempt, which is more likely to hit a
	// cold connection.
	FirstTimeout time.Duration

	// RetryTimeout bounds each retry.
	RetryTimeout time.Duration

	// RetryDelay is the pause before each retry.
	RetryDelay time.Duration

	// MaintenanceSignatures are message fragments that turn a 500 into a
	// maintenance notice instead of a generic server error.
	MaintenanceSignatures []string
}

// DefaultLoginOptions returns the standard retry policy.
func DefaultLoginOptions() LoginOptions {
	return LoginOptions{
		MaxRetries:            2,
		FirstTimeout:          15 * time.Second,
		RetryTimeout:          10 * time.Second,
		RetryDelay:            time.Second,
		MaintenanceSignatures: []string{"Attempt to read property"},
	}
}

// Controller performs authentication flows.
type Controller struct {
	client   *apiclient.Client
	sessions *session.Manager
	opts     LoginOptions
	logger   *slog.Logger
	observe  func(State)
	sleep    func(context.Context, time.Duration) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithLoginOptions replaces the retry policy.
func WithLoginOptions(o LoginOptions) Option {
	return func(c *Controller) {
		c.opts = o
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger.With("component", "auth")
	}
}

// WithStateObserver receives every login state transition.
func WithStateObserver(f func(State)) Option {
	return func(c *Controller) {
		c.observe = f
	}
}

// New creates a controller on top of client and the session manager it uses.
func New(client *apiclient.Client, opts ...Option) *Controller {
	c := &Controller{
		client:   client,
		sessions: client.Sessions(),
		opts:     DefaultLoginOptions(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		observe:  func(State) {},
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.opts.MaxRetries < 0 {
		c.opts.MaxRetries = 0
	}
	return c
}

// LoginResult is a successful login.
type LoginResult struct {
	User      model.User
	ExpiresAt time.Time
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates with email and password and stores the session.
// Timeouts and aborted connections are retried up to MaxRetries times.
func (c *Controller) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	c.observe(StateIdle)

	// Drops an expired leftover session so it cannot short-circuit the call.
	if _, err := c.sessions.GetAuthData(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		timeout := c.opts.FirstTimeout
		if attempt > 0 {
			timeout = c.opts.RetryTimeout
			c.observe(StateRetrying)
			c.logger.Info("retrying login", "attempt", attempt, "max_retries", c.opts.MaxRetries, "delay", c.opts.RetryDelay)
			if err := c.sleep(ctx, c.opts.RetryDelay); err != nil {
				c.observe(StateFailed)
				return nil, err
			}
		}

		c.observe(StateRequesting)
		resp, err := c.client.Do(ctx, &apiclient.Request{
			Method:  http.MethodPost,
			Path:    PathLogin,
			Body:    credentials{Email: email, Password: password},
			Timeout: timeout,
		})
		if err != nil {
			if apiclient.IsTransient(err) {
				c.logger.Warn("login attempt failed", "attempt", attempt, "error", err)
				lastErr = err
				continue
			}
			c.observe(StateFailed)
			return nil, c.classify(err)
		}

		payload, err := parseLoginPayload(resp)
		if err != nil {
			c.observe(StateFailed)
			return nil, newLoginError(KindMalformedResponse, err)
		}
		if err := c.sessions.SetAuthData(ctx, payload.Token, &payload.User, payload.ExpiresAt); err != nil {
			c.observe(StateFailed)
			return nil, fmt.Errorf("store session: %w", err)
		}

		sess, err := c.sessions.GetAuthData(ctx)
		if err != nil {
			c.observe(StateFailed)
			return nil, err
		}
		if sess == nil {
			c.observe(StateFailed)
			return nil, newLoginError(KindMalformedResponse, fmt.Errorf("%w: session expired on arrival", ErrMalformedResponse))
		}
		result := &LoginResult{User: payload.User, ExpiresAt: sess.ExpiresAt}
		c.logger.Info("login succeeded", "role", payload.User.Role, "attempts", attempt+1)
		c.observe(StateSuccess)
		return result, nil
	}

	c.observe(StateFailed)
	return nil, lastErr
}

// classify maps a failed login call onto a LoginError. Errors without a
// known classification are returned unchanged.
func (c *Controller) classify(err error) error {
	var httpErr *apiclient.HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}
	switch httpErr.StatusCode {
	case http.StatusInternalServerError:
		for _, sig := range c.opts.MaintenanceSignatures {
			if sig != "" && (strings.Contains(httpErr.Message, sig) || strings.Contains(httpErr.Body, sig)) {
				return newLoginError(KindServerMaintenance, err)
			}
		}
		return newLoginError(KindServerError, err)
	case http.StatusUnprocessableEntity:
		return newLoginError(KindInvalidFormat, err)
	case http.StatusUnauthorized:
		return newLoginError(KindWrongCredentials, err)
	default:
		return err
	}
}

// Logout ends the current session on the backend and always clears it locally.
func (c *Controller) Logout(ctx context.Context) error {
	return c.endSession(ctx, PathLogout)
}

// LogoutAll ends every session of the user on the backend and always clears
// the local one.
func (c *Controller) LogoutAll(ctx context.Context) error {
	return c.endSession(ctx, PathLogoutAll)
}

// endSession calls path best-effort; only a failure to clear the local
// session is returned.
func (c *Controller) endSession(ctx context.Context, path string) error {
	sess, err := c.sessions.GetAuthData(ctx)
	if err != nil {
		c.logger.Warn("read session before logout", "error", err)
	}
	if sess != nil {
		if _, err := c.client.Post(ctx, path, nil, nil); err != nil {
			c.logger.Warn("remote logout failed, clearing local session anyway", "path", path, "error", err)
		}
	}

	if err := c.sessions.ClearAuthData(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	c.logger.Info("logged out", "path", path)
	return nil
}

// ValidateToken probes a protected endpoint. On success it returns the
// locally cached user (nil if none is stored). A 401 or 419 purges the
// session; the error is always returned.
func (c *Controller) ValidateToken(ctx context.Context) (*model.User, error) {
	if _, err := c.client.Get(ctx, PathUser, nil, nil); err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) || errors.Is(err, apiclient.ErrPageExpired) {
			if cerr := c.sessions.ClearAuthData(context.WithoutCancel(ctx)); cerr != nil {
				c.logger.Error("clear session after failed validation", "error", cerr)
			}
		}
		return nil, err
	}

	sess, err := c.sessions.GetAuthData(ctx)
	if err != nil || sess == nil {
		return nil, err
	}
	user := sess.User
	return &user, nil
}

// CurrentUser returns the stored user without contacting the backend.
func (c *Controller) CurrentUser(ctx context.Context) (*model.User, error) {
	sess, err := c.sessions.GetAuthData(ctx)
	if err != nil || sess == nil {
		return nil, err
	}
	user := sess.User
	return &user, nil
}

// loginPayload is a login response that carried everything a session needs.
type loginPayload struct {
	Token     string
	User      model.User
	ExpiresAt time.Time // zero when the backend sent no expiry
}

type rawLoginPayload struct {
	Token          string          `json:"token"`
	User           json.RawMessage `json:"user"`
	TokenExpiresAt json.RawMessage `json:"token_expires_at"`
}

// parseLoginPayload extracts the session from a login response. The payload
// is read from the envelope's data field, falling back to the top level.
// It returns ErrMalformedResponse when the token or user is absent.
func parseLoginPayload(resp *apiclient.Response) (loginPayload, error) {
	var candidates [][]byte
	if resp.Envelope != nil && len(resp.Envelope.Data) > 0 {
		candidates = append(candidates, resp.Envelope.Data)
	}
	candidates = append(candidates, resp.Body)

	for _, raw := range candidates {
		var p rawLoginPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		if p.Token == "" || isNull(p.User) {
			continue
		}

		var out loginPayload
		out.Token = p.Token
		if err := json.Unmarshal(p.User, &out.User); err != nil {
			return loginPayload{}, fmt.Errorf("%w: user: %v", ErrMalformedResponse, err)
		}
		if secs, ok := parseEpochSeconds(p.TokenExpiresAt); ok {
			if secs > maxEpochSeconds {
				return loginPayload{}, fmt.Errorf("%w: token_expires_at %d out of range", ErrMalformedResponse, secs)
			}
			out.ExpiresAt = time.UnixMilli(secs * 1000)
		}
		return out, nil
	}
	return loginPayload{}, ErrMalformedResponse
}

func isNull(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

// maxEpochSeconds is the largest expiry that still fits in milliseconds.
const maxEpochSeconds = math.MaxInt64 / 1000

// parseEpochSeconds accepts a JSON number or numeric string. Values too large
// for int64 are clamped above maxEpochSeconds so the caller rejects them.
func parseEpochSeconds(raw json.RawMessage) (int64, bool) {
	if isNull(raw) {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		n = json.Number(s)
	}
	if v, err := n.Int64(); err == nil && v > 0 {
		return v, true
	}
	if f, err := strconv.ParseFloat(string(n), 64); err == nil && f > 0 {
		if f > maxEpochSeconds {
			return maxEpochSeconds + 1, true
		}
		return int64(f), true
	}
	return 0, false
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
