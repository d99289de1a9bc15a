package backend

import (
	"errors"
	"fmt"
	"net/http"

	appErrors "github.com/noah-isme/myteacher-portal/pkg/errors"
)

// ErrRefreshRejected means every refresh endpoint answered without issuing a
// new access token. The refresh token should be considered dead.
var ErrRefreshRejected = errors.New("token refresh rejected")

// ErrNoRefreshToken is reported when a refresh is needed but none is held.
var ErrNoRefreshToken = errors.New("no refresh token")

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status     int
	StatusText string
	URL        string
	Detail     string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("[%d %s] %s — %s", e.Status, e.StatusText, e.URL, e.Detail)
}

// TransportError wraps failures to reach the backend at all.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsAuthFailure reports 401 and 403 answers.
func IsAuthFailure(err error) bool {
	status := StatusOf(err)
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// IsTransport reports whether the backend could not be reached.
func IsTransport(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr)
}

// ToAppError maps backend failures onto the portal's error taxonomy. Errors
// that are already typed pass through untouched.
func ToAppError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var tErr *TransportError
	if errors.As(err, &tErr) {
		return appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, appErrors.ErrUpstreamUnavailable.Message)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return appErrors.FromError(err)
	}

	base := appErrors.ErrUpstream
	message := ""
	switch {
	case apiErr.Status == http.StatusUnauthorized:
		base = appErrors.ErrUnauthorized
	case apiErr.Status == http.StatusForbidden:
		base = appErrors.ErrForbidden
		message = apiErr.Detail
	case apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnprocessableEntity:
		base = appErrors.ErrValidation
		message = apiErr.Detail
	case apiErr.Status == http.StatusNotFound:
		base = appErrors.ErrNotFound
	case apiErr.Status == http.StatusConflict:
		base = appErrors.ErrConflict
		message = apiErr.Detail
	case apiErr.Status >= http.StatusInternalServerError:
		base = appErrors.ErrUpstream
	default:
		message = apiErr.Detail
	}
	if message == "" || message == defaultDetail {
		message = base.Message
	}
	return appErrors.Wrap(err, base.Code, base.Status, message)
}
