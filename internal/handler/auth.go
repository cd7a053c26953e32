package handler

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/haneul/authgate/internal/domain"
	"github.com/haneul/authgate/internal/metrics"
	"github.com/haneul/authgate/internal/service"
	"github.com/haneul/authgate/internal/token"
)

const stateCookieName = "oauth_state"

// AuthConfig holds the settings the auth handler needs for cookies and
// redirects.
type AuthConfig struct {
	FrontendURL  string
	CookieDomain string
	SecureCookie bool
}

// AuthHandler handles the OAuth flow and session endpoints.
type AuthHandler struct {
	provider service.OAuthProvider
	resolver *service.IdentityResolver
	users    service.UserStore
	codec    *token.Codec
	metrics  metrics.Recorder
	cfg      AuthConfig
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	provider service.OAuthProvider,
	resolver *service.IdentityResolver,
	users service.UserStore,
	codec *token.Codec,
	rec metrics.Recorder,
	cfg AuthConfig,
) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		resolver: resolver,
		users:    users,
		codec:    codec,
		metrics:  rec,
		cfg:      cfg,
	}
}

// GoogleRedirect sends the browser to Google's consent page.
func (h *AuthHandler) GoogleRedirect(c echo.Context) error {
	state := generateState()
	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cfg.SecureCookie,
		MaxAge:   600,
	})
	return c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

// GoogleCallback completes the OAuth handshake: it validates the provider's
// code, resolves the local user, mints a session token into the auth cookie
// and redirects according to the user's approval status.
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	if err := h.validateState(c); err != nil {
		slog.Warn("oauth state validation failed", "error", err)
		return h.failLogin(c)
	}

	code := c.QueryParam("code")
	if code == "" {
		return h.failLogin(c)
	}

	ident, err := h.provider.Exchange(c.Request().Context(), code)
	if err != nil {
		slog.Error("oauth code exchange failed", "error", err)
		return h.failLogin(c)
	}

	user, err := h.resolver.Resolve(c.Request().Context(), *ident)
	if err != nil {
		slog.Error("identity resolution failed", "error", err)
		return h.failLogin(c)
	}

	signed, err := h.codec.Encode(user)
	if err != nil {
		slog.Error("token encoding failed", "error", err)
		return h.failLogin(c)
	}

	h.setAuthCookie(c, signed)
	h.metrics.RecordLogin(metrics.LoginOutcomeSuccess)

	return c.Redirect(http.StatusFound, h.redirectTarget(user.Status))
}

// redirectTarget maps every status to a destination. Pending and rejected
// carry a query flag; approved lands on the app root. An unrecognized status
// must never land on the approved path.
func (h *AuthHandler) redirectTarget(status domain.Status) string {
	switch status {
	case domain.StatusApproved:
		return h.cfg.FrontendURL + "/"
	case domain.StatusRejected:
		return h.cfg.FrontendURL + "/?status=rejected"
	case domain.StatusPending:
		return h.cfg.FrontendURL + "/?status=pending"
	default:
		return h.cfg.FrontendURL + "/?status=pending"
	}
}

// Failure reports a failed OAuth handshake.
func (h *AuthHandler) Failure(c echo.Context) error {
	return JSONError(c, http.StatusUnauthorized, "AUTH_FAILED", "Google authentication failed")
}

// Logout clears the auth cookie. It succeeds whether or not a session exists.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.cfg.CookieDomain,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cfg.SecureCookie,
		MaxAge:   -1,
	})
	return JSON(c, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Me returns the stored profile of the authenticated user. The token only
// carries a claim snapshot, so the store is consulted for the full record.
func (h *AuthHandler) Me(c echo.Context) error {
	claims, ok := IdentityFrom(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	user, err := h.users.FindByID(c.Request().Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewAppError(http.StatusNotFound, "NOT_FOUND", "User no longer exists")
		}
		return err
	}

	return JSON(c, http.StatusOK, map[string]any{"user": user})
}

// Status reports whether the request carries a valid session.
func (h *AuthHandler) Status(c echo.Context) error {
	claims, ok := IdentityFrom(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	user, err := h.users.FindByID(c.Request().Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewAppError(http.StatusNotFound, "NOT_FOUND", "User no longer exists")
		}
		return err
	}

	return JSON(c, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          user,
	})
}

func (h *AuthHandler) failLogin(c echo.Context) error {
	h.metrics.RecordLogin(metrics.LoginOutcomeFailure)
	return c.Redirect(http.StatusFound, "/auth/failure")
}

func (h *AuthHandler) setAuthCookie(c echo.Context, value string) {
	c.SetCookie(&http.Cookie{
		Name:     AuthCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.cfg.CookieDomain,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cfg.SecureCookie,
		MaxAge:   int(h.codec.TTL().Seconds()),
	})
}

func (h *AuthHandler) validateState(c echo.Context) error {
	cookie, err := c.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" {
		return fmt.Errorf("missing %s cookie", stateCookieName)
	}
	if state := c.QueryParam("state"); state == "" || state != cookie.Value {
		return fmt.Errorf("state mismatch")
	}
	return nil
}

func generateState() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "fallback-state"
	}
	return base64.URLEncoding.EncodeToString(b)
}
