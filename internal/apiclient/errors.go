package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"

	"github.com/me/jejakliqo/internal/session"
	"github.com/me/jejakliqo/pkg/model"
)

// StatusPageExpired is the non-standard status some backends return when the
// session or CSRF state no longer matches.
const StatusPageExpired = 419

var (
	// ErrSessionExpired is returned without sending the request when the
	// stored token has already passed its expiry.
	ErrSessionExpired = session.ErrSessionExpired

	// ErrUnauthorized matches any *HTTPError with status 401.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPageExpired matches any *HTTPError with status 419.
	ErrPageExpired = errors.New("page expired")
)

// HTTPError is returned for every non-2xx response.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Errors     map[string][]string
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if msg == "" && e.Body != "" {
		msg = e.Body
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// Is lets errors.Is match ErrUnauthorized and ErrPageExpired by status.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrPageExpired:
		return e.StatusCode == StatusPageExpired
	}
	return false
}

// ErrorBody returns the message and field errors as a model.ErrorBody.
func (e *HTTPError) ErrorBody() *model.ErrorBody {
	return &model.ErrorBody{Message: e.Message, Errors: e.Errors}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// IsTransient reports whether err is a timeout or an aborted connection,
// the failures worth retrying. Cancellation by the caller is not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
