// Package session manages the locally persisted login session: bearer token,
// user record and token expiry, stored next to UI preferences in a shared
// key-value space.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/me/jejakliqo/internal/storage"
	"github.com/me/jejakliqo/pkg/model"
)

// Storage keys.
const (
	KeyToken     = "token"
	KeyUser      = "user"
	KeyExpiresAt = "token_expires_at"

	KeyTheme    = "theme"
	KeyDarkMode = "darkMode"
)

const (
	// DefaultTokenLifetime applies when the backend does not report an expiry.
	DefaultTokenLifetime = 3 * time.Hour
	// ExpiringSoonThreshold is the remaining lifetime below which a token is
	// reported as expiring soon.
	ExpiringSoonThreshold = 5 * time.Minute
)

var (
	// ErrSessionExpired is reported by Inspect when the stored token has
	// passed its expiry. The session has already been purged.
	ErrSessionExpired = errors.New("session expired")

	// ErrMissingCredentials is returned by SetAuthData without a token or user.
	ErrMissingCredentials = errors.New("token and user are required")
)

// authKeys are removed on clear; preferenceKeys survive it.
var (
	authKeys       = []string{KeyToken, KeyUser, KeyExpiresAt}
	preferenceKeys = []string{KeyTheme, KeyDarkMode}
)

// Manager reads and writes the session in a storage.KV.
type Manager struct {
	kv     storage.KV
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger.With("component", "session")
	}
}

// NewManager creates a session manager over kv.
func NewManager(kv storage.KV, opts ...Option) *Manager {
	m := &Manager{
		kv:     kv,
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Now returns the manager's current time.
func (m *Manager) Now() time.Time {
	return m.now()
}

// SetAuthData persists token, user and expiry. A zero expiresAt stores
// now + DefaultTokenLifetime.
func (m *Manager) SetAuthData(ctx context.Context, token string, user *model.User, expiresAt time.Time) error {
	if token == "" || user == nil {
		return ErrMissingCredentials
	}
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if expiresAt.IsZero() {
		expiresAt = m.now().Add(DefaultTokenLifetime)
	}

	if err := m.kv.Set(ctx, KeyToken, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	if err := m.kv.Set(ctx, KeyUser, string(userJSON)); err != nil {
		return fmt.Errorf("store user: %w", err)
	}
	if err := m.kv.Set(ctx, KeyExpiresAt, strconv.FormatInt(expiresAt.UnixMilli(), 10)); err != nil {
		return fmt.Errorf("store expiry: %w", err)
	}

	m.logger.Debug("session stored", "role", user.Role, "expires_at", expiresAt.UTC().Format(time.RFC3339))
	return nil
}

// Inspect returns the stored session, or nil when none is stored. Expired or
// corrupt sessions are purged; for expiry the error is ErrSessionExpired.
func (m *Manager) Inspect(ctx context.Context) (*model.Session, error) {
	token, hasToken, err := m.kv.Get(ctx, KeyToken)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	rawUser, hasUser, err := m.kv.Get(ctx, KeyUser)
	if err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}
	rawExp, hasExp, err := m.kv.Get(ctx, KeyExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("read expiry: %w", err)
	}

	if !hasToken || token == "" || !hasUser || rawUser == "" {
		return nil, nil
	}

	var expiresAt time.Time
	if hasExp && rawExp != "" {
		ms, err := strconv.ParseInt(rawExp, 10, 64)
		if err != nil {
			m.logger.Warn("purging session with unparseable expiry", "value", rawExp)
			return nil, m.ClearAuthData(ctx)
		}
		expiresAt = time.UnixMilli(ms)
		if !m.now().Before(expiresAt) {
			m.logger.Info("session expired", "expired_at", expiresAt.UTC().Format(time.RFC3339))
			if err := m.ClearAuthData(ctx); err != nil {
				return nil, err
			}
			return nil, ErrSessionExpired
		}
	}

	var user model.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		m.logger.Warn("purging session with unparseable user", "error", err)
		return nil, m.ClearAuthData(ctx)
	}

	return &model.Session{
		Token:     token,
		User:      user,
		Role:      user.Role,
		ExpiresAt: expiresAt,
	}, nil
}

// GetAuthData returns the stored session or nil. Expired and corrupt
// sessions are purged and reported as nil.
func (m *Manager) GetAuthData(ctx context.Context) (*model.Session, error) {
	sess, err := m.Inspect(ctx)
	if errors.Is(err, ErrSessionExpired) {
		return nil, nil
	}
	return sess, err
}

// ClearAuthData removes the auth keys while keeping preference keys intact.
// Preferences are read first and written back after the removal. A
// preference that cannot be read is dropped rather than blocking the purge.
func (m *Manager) ClearAuthData(ctx context.Context) error {
	preserved := make(map[string]string, len(preferenceKeys))
	for _, k := range preferenceKeys {
		v, ok, err := m.kv.Get(ctx, k)
		if err != nil {
			m.logger.Warn("read preference before clearing session", "key", k, "error", err)
			continue
		}
		if ok {
			preserved[k] = v
		}
	}

	var errs []error
	for _, k := range authKeys {
		if err := m.kv.Remove(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", k, err))
		}
	}

	for _, k := range preferenceKeys {
		v, ok := preserved[k]
		if !ok {
			continue
		}
		if err := m.kv.Set(ctx, k, v); err != nil {
			errs = append(errs, fmt.Errorf("restore preference %s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}

// IsAuthenticated reports whether a valid session is stored.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	sess, err := m.GetAuthData(ctx)
	return err == nil && sess != nil
}

// IsTokenExpiringSoon reports whether a valid session has less than
// ExpiringSoonThreshold left.
func (m *Manager) IsTokenExpiringSoon(ctx context.Context) bool {
	sess, err := m.GetAuthData(ctx)
	if err != nil || sess == nil || sess.ExpiresAt.IsZero() {
		return false
	}
	return sess.ExpiresAt.Sub(m.now()) < ExpiringSoonThreshold
}

// TokenRemainingTime returns whole minutes left on the token, 0 without a
// valid session.
func (m *Manager) TokenRemainingTime(ctx context.Context) int {
	sess, err := m.GetAuthData(ctx)
	if err != nil || sess == nil {
		return 0
	}
	return int(sess.RemainingAt(m.now()) / time.Minute)
}

// Preference returns a stored UI preference.
func (m *Manager) Preference(ctx context.Context, key string) (string, bool, error) {
	return m.kv.Get(ctx, key)
}

// SetPreference stores a UI preference such as the theme.
func (m *Manager) SetPreference(ctx context.Context, key, value string) error {
	return m.kv.Set(ctx, key, value)
}
