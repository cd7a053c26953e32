package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/haneul/authgate/internal/token"
)

// Handlers bundles the route handlers for registration.
type Handlers struct {
	Auth       *AuthHandler
	Verify     *VerifyHandler
	Admin      *AdminHandler
	Calculator *CalculatorHandler
	Health     *HealthHandler
}

// Register mounts all routes. authLimiter, when non-nil, rate limits the
// /auth group.
func Register(e *echo.Echo, h Handlers, codec *token.Codec, authLimiter echo.MiddlewareFunc) {
	e.GET("/health", h.Health.Live)
	e.GET("/db/health", h.Health.Database)

	auth := e.Group("/auth")
	if authLimiter != nil {
		auth.Use(authLimiter)
	}
	auth.GET("/google", h.Auth.GoogleRedirect)
	auth.GET("/google/callback", h.Auth.GoogleCallback)
	auth.GET("/failure", h.Auth.Failure)
	auth.POST("/logout", h.Auth.Logout)
	auth.GET("/me", h.Auth.Me, RequireAuth(codec))
	auth.GET("/status", h.Auth.Status, RequireAuth(codec))

	e.GET("/verify", h.Verify.Verify)
	e.GET("/verify/admin", h.Verify.VerifyAdmin)

	admin := e.Group("/admin", RequireAuth(codec), RequireAdmin())
	admin.GET("/users", h.Admin.ListUsers)
	admin.GET("/users/pending", h.Admin.ListPendingUsers)
	admin.POST("/users/:id/approve", h.Admin.ApproveUser)
	admin.POST("/users/:id/reject", h.Admin.RejectUser)
	admin.GET("/audit-logs", h.Admin.ListAuditLogs)
	admin.GET("/stats", h.Admin.Stats)

	calc := e.Group("/api/calculator", RequireAuth(codec), RequireApproved())
	calc.GET("/data", h.Calculator.GetData)
	calc.POST("/data", h.Calculator.SaveData)
}
