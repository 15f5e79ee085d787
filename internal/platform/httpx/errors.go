package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors handlers wrap to pick a status code.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("service unavailable")
)

// StatusFor maps an error to the HTTP status used by RespondError.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes a problem document for err. Internal errors hide
// their detail.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	detail := ""
	if status != http.StatusInternalServerError {
		detail = err.Error()
	}
	Problem(w, status, http.StatusText(status), detail)
}
