package handlers

import (
	"errors"
	"net/http"
	"strings"

	"agrismart/internal/services"
)

// mapServiceError translates service-layer errors into envelope codes and HTTP
// statuses. Unmatched errors fall through to a 500.
func mapServiceError(err error) (string, int) {
	switch {
	case errors.Is(err, services.ErrMissingRequiredFields):
		return "VALIDATION_ERROR", http.StatusBadRequest
	case errors.Is(err, services.ErrNotCropOwner):
		return "FORBIDDEN", http.StatusForbidden
	case errors.Is(err, services.ErrNoCropImage), errors.Is(err, services.ErrImageFetchFailed):
		return "VALIDATION_ERROR", http.StatusBadRequest
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"):
		return "NOT_FOUND", http.StatusNotFound
	case strings.Contains(msg, "invalid credentials"), strings.Contains(msg, "account deactivated"):
		return "UNAUTHORIZED", http.StatusUnauthorized
	case strings.Contains(msg, "already registered"):
		return "VALIDATION_ERROR", http.StatusBadRequest
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "must be"):
		return "VALIDATION_ERROR", http.StatusBadRequest
	case strings.Contains(msg, "API"), strings.Contains(msg, "analysis failed"):
		return "UPSTREAM_ERROR", http.StatusBadGateway
	default:
		return "INTERNAL_ERROR", http.StatusInternalServerError
	}
}
