package api

import (
	"errors"
	"net/http"

	"github.com/okian/commitquest/pkg/errs"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrTrailingData     = errors.New("unexpected data after JSON body")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrBodyTooLarge     = errors.New("request body too large")
)

// statusFor maps an error kind to an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}

func writeAuthError(w http.ResponseWriter, _ *http.Request, err error) {
	writeServiceError(w, err)
}
