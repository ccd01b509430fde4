// Package domain provides the entities, errors and repository contracts for
// the BMS auth core.
package domain

import (
	"errors"
	"log/slog"
	"net/http"
)

// APIError represents the error payload returned to HTTP clients.
type APIError struct {
	Type    string                 `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ErrorHandler converts domain errors to HTTP status codes and API payloads.
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{logger: logger}
}

// HandleError maps an error to an HTTP status code and response body.
func (h *ErrorHandler) HandleError(err error) (statusCode int, response interface{}) {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		h.LogError(err)
		return statusForType(domainErr.Type), APIError{
			Type:    string(domainErr.Type),
			Code:    domainErr.Code,
			Message: domainErr.Message,
			Details: domainErr.Details,
		}
	}

	h.LogError(err)
	return http.StatusInternalServerError, APIError{
		Type:    string(InternalError),
		Code:    "INTERNAL_ERROR",
		Message: "An internal error occurred",
	}
}

// LogError logs the error at a level appropriate to its type.
func (h *ErrorHandler) LogError(err error) {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		switch domainErr.Type {
		case ValidationError, NotFoundError, ConflictError:
			h.logger.Info("client error", "code", domainErr.Code, "error", err)
		case AuthenticationError, AuthorizationError:
			h.logger.Warn("auth error", "code", domainErr.Code, "error", err)
		default:
			h.logger.Error("server error", "code", domainErr.Code, "error", err)
		}
		return
	}
	h.logger.Error("unexpected error", "error", err)
}

func statusForType(t ErrorType) int {
	switch t {
	case ValidationError:
		return http.StatusBadRequest
	case NotFoundError:
		return http.StatusNotFound
	case ConflictError:
		return http.StatusConflict
	case AuthenticationError:
		return http.StatusUnauthorized
	case AuthorizationError:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
