package auth

import (
	"errors"
	"fmt"
)

// Kind classifies a failed login for display.
type Kind string

const (
	KindMalformedResponse Kind = "malformed_response"
	KindInvalidFormat     Kind = "invalid_credentials_format"
	KindWrongCredentials  Kind = "wrong_credentials"
	KindServerMaintenance Kind = "server_maintenance"
	KindServerError       Kind = "server_error"
)

// ErrMalformedResponse is reported when a successful login response lacks
// the token or the user.
var ErrMalformedResponse = errors.New("login response missing token or user")

// messages are the user-facing texts for each kind.
var messages = map[Kind]string{
	KindMalformedResponse: "Respons server tidak valid. Silakan coba lagi.",
	KindInvalidFormat:     "Format email atau password tidak valid.",
	KindWrongCredentials:  "Email atau password salah.",
	KindServerMaintenance: "Server sedang dalam pemeliharaan. Silakan coba beberapa saat lagi.",
	KindServerError:       "Terjadi kesalahan pada server. Silakan coba lagi nanti.",
}

// LoginError is a classified login failure. Err keeps the underlying error
// so callers can still inspect the raw status.
type LoginError struct {
	Kind    Kind
	Message string
	Err     error
}

func newLoginError(kind Kind, err error) *LoginError {
	return &LoginError{Kind: kind, Message: messages[kind], Err: err}
}

// Error implements the error interface.
func (e *LoginError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("login failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("login failed (%s)", e.Kind)
}

// Unwrap returns the underlying error.
func (e *LoginError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of a login error, or "" for unclassified errors.
func KindOf(err error) Kind {
	var le *LoginError
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

// UserMessage returns the localized message for err, falling back to a
// generic text for unclassified errors.
func UserMessage(err error) string {
	var le *LoginError
	if errors.As(err, &le) && le.Message != "" {
		return le.Message
	}
	return "Login gagal. Periksa koneksi Anda dan coba lagi."
}
