package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/haneul/authgate/internal/domain"
)

// SuccessEnvelope is the standard API success wrapper.
type SuccessEnvelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

// ErrorEnvelope is the standard API error wrapper.
type ErrorEnvelope struct {
	Success   bool     `json:"success"`
	Error     APIError `json:"error"`
	Timestamp string   `json:"timestamp"`
	Path      string   `json:"path"`
}

// APIError carries a stable machine-readable code and a human message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSON writes a success envelope.
func JSON(c echo.Context, status int, data any) error {
	return c.JSON(status, SuccessEnvelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// JSONError writes an error envelope directly, bypassing the error handler.
func JSONError(c echo.Context, status int, code, message string) error {
	return c.JSON(status, ErrorEnvelope{
		Success:   false,
		Error:     APIError{Code: code, Message: message},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      c.Request().URL.Path,
	})
}

// HTTPErrorHandler is the global echo error handler. It maps domain errors
// to the error envelope; unexpected errors are logged and returned as a
// generic internal message.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, apiErr := mapError(err, c)
	if writeErr := JSONError(c, status, apiErr.Code, apiErr.Message); writeErr != nil {
		slog.Error("failed to send error response", "error", writeErr)
	}
}

func mapError(err error, c echo.Context) (int, APIError) {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return appErr.Status, APIError{Code: appErr.Code, Message: appErr.Message}
	}

	// echo's own HTTP errors (404 route miss, 405, etc.)
	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		msg, _ := echoErr.Message.(string)
		if msg == "" {
			msg = http.StatusText(echoErr.Code)
		}
		return echoErr.Code, APIError{Code: statusCode(echoErr.Code), Message: msg}
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, APIError{Code: "NOT_FOUND", Message: "Resource not found"}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, APIError{Code: "UNAUTHORIZED", Message: "Authentication required"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, APIError{Code: "FORBIDDEN", Message: "Access denied"}
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, APIError{Code: "BAD_REQUEST", Message: "Invalid request"}
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, APIError{Code: "CONFLICT", Message: "Resource conflict"}
	default:
		slog.Error("unhandled error",
			"error", err,
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
		)
		return http.StatusInternalServerError, APIError{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}
	}
}

func statusCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	default:
		return "INTERNAL_ERROR"
	}
}
