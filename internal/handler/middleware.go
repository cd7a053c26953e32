package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/haneul/authgate/internal/domain"
	"github.com/haneul/authgate/internal/token"
)

const (
	// AuthCookieName is the session cookie carrying the signed token.
	AuthCookieName = "auth_token"

	contextKeyIdentity = "identity"
)

// extractToken pulls the session token from the request. The cookie takes
// precedence over the Authorization header.
func extractToken(c echo.Context) (string, bool) {
	if cookie, err := c.Cookie(AuthCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		if t := strings.TrimPrefix(header, "Bearer "); t != "" {
			return t, true
		}
	}
	return "", false
}

// IdentityFrom returns the authenticated identity attached by RequireAuth or
// OptionalAuth. The claims are a token-time snapshot of the user; callers
// needing fields the token does not carry (e.g. picture URL) must look up
// the store explicitly.
func IdentityFrom(c echo.Context) (*token.Claims, bool) {
	claims, ok := c.Get(contextKeyIdentity).(*token.Claims)
	return claims, ok
}

// RequireAuth extracts and decodes the session token, attaching the identity
// to the request context. Requests without a valid token are rejected with
// 401.
func RequireAuth(codec *token.Codec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := extractToken(c)
			if !ok {
				return domain.NewAppError(http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			}

			claims, err := codec.Decode(raw)
			if err != nil {
				return domain.NewAppError(http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			}

			c.Set(contextKeyIdentity, claims)
			return next(c)
		}
	}
}

// OptionalAuth attaches the identity when a valid token is present but never
// rejects the request. Downstream handlers treat an absent identity as
// anonymous.
func OptionalAuth(codec *token.Codec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := extractToken(c); ok {
				if claims, err := codec.Decode(raw); err == nil {
					c.Set(contextKeyIdentity, claims)
				}
			}
			return next(c)
		}
	}
}

// RequireApproved rejects requests whose identity is not approved. It must
// run after RequireAuth.
func RequireApproved() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := IdentityFrom(c)
			if !ok {
				return domain.NewAppError(http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			}
			if claims.Status != domain.StatusApproved {
				return domain.NewAppError(http.StatusForbidden, "FORBIDDEN", "Account pending approval")
			}
			return next(c)
		}
	}
}

// RequireAdmin rejects requests unless the identity is an approved admin.
// An unapproved admin is treated as non-admin. It must run after RequireAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := IdentityFrom(c)
			if !ok {
				return domain.NewAppError(http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			}
			if claims.Role != domain.RoleAdmin || claims.Status != domain.StatusApproved {
				return domain.NewAppError(http.StatusForbidden, "FORBIDDEN", "Admin access required")
			}
			return next(c)
		}
	}
}

// RequestLogger logs each HTTP request with structured fields.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			slog.Info("http request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)
			return err
		}
	}
}
