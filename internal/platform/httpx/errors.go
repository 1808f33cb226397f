// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/fruivita/sci/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Forbidden responses never describe which check failed.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(err, shared.ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// IsClientError reports whether err maps to a 4xx response.
func IsClientError(err error) bool {
	for _, target := range []error{shared.ErrNotFound, shared.ErrDuplicate, shared.ErrValidation, shared.ErrForbidden, shared.ErrUnauthorized} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Fail logs err and writes the matching response. Client errors are logged
// at info, everything else at error.
func Fail(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	if logger != nil {
		if IsClientError(err) {
			logger.Info(msg, slog.Any("error", err))
		} else {
			logger.Error(msg, slog.Any("error", err))
		}
	}
	RespondError(w, err)
}
