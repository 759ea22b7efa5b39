package model

import "time"

// Session is the locally persisted login: bearer token, user record and
// absolute token expiry.
type Session struct {
	Token     string    `json:"-"`
	User      User      `json:"user"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"` // zero when the store held no expiry
}

// IsExpiredAt reports whether the token must be treated as invalid at now.
// A session without an expiry never expires locally.
func (s *Session) IsExpiredAt(now time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

// RemainingAt returns the time left before expiry, never negative.
func (s *Session) RemainingAt(now time.Time) time.Duration {
	if s.ExpiresAt.IsZero() {
		return 0
	}
	d := s.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
