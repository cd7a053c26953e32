package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/haneul/authgate/internal/domain"
	"github.com/haneul/authgate/internal/metrics"
	"github.com/haneul/authgate/internal/token"
)

// Identity headers emitted for the reverse proxy to forward upstream.
const (
	HeaderAuthUserID    = "X-Auth-User-Id"
	HeaderAuthUserEmail = "X-Auth-User-Email"
	HeaderAuthUserRole  = "X-Auth-User-Role"
)

// VerifyHandler implements the edge-verification endpoints consumed by a
// reverse proxy (nginx auth_request). Responses are fixed plain-text strings,
// not the JSON envelope: the caller is a proxy, not a browser client.
type VerifyHandler struct {
	codec   *token.Codec
	metrics metrics.Recorder
}

// NewVerifyHandler creates a new VerifyHandler.
func NewVerifyHandler(codec *token.Codec, rec metrics.Recorder) *VerifyHandler {
	return &VerifyHandler{codec: codec, metrics: rec}
}

// Verify checks the session token and, for approved users, emits the
// identity headers with 200 "OK".
func (h *VerifyHandler) Verify(c echo.Context) error {
	claims, handled, err := h.check(c, "verify")
	if handled {
		return err
	}

	h.metrics.RecordVerify("verify", metrics.VerifyOutcomeOK)
	return h.ok(c, claims)
}

// VerifyAdmin is the admin-only variant. The approval check runs before the
// role check: an unapproved admin gets "Not approved", never "Admin required".
func (h *VerifyHandler) VerifyAdmin(c echo.Context) error {
	claims, handled, err := h.check(c, "verify_admin")
	if handled {
		return err
	}

	if claims.Role != domain.RoleAdmin {
		h.metrics.RecordVerify("verify_admin", metrics.VerifyOutcomeNotAdmin)
		return c.String(http.StatusForbidden, "Admin required")
	}

	h.metrics.RecordVerify("verify_admin", metrics.VerifyOutcomeOK)
	return h.ok(c, claims)
}

// check runs the shared extraction, decode and approval steps. When handled
// is true the short-circuit response has already been written.
func (h *VerifyHandler) check(c echo.Context, endpoint string) (claims *token.Claims, handled bool, err error) {
	raw, ok := extractToken(c)
	if !ok {
		h.metrics.RecordVerify(endpoint, metrics.VerifyOutcomeUnauthorized)
		return nil, true, c.String(http.StatusUnauthorized, "Unauthorized")
	}

	claims, decodeErr := h.codec.Decode(raw)
	if decodeErr != nil {
		h.metrics.RecordVerify(endpoint, metrics.VerifyOutcomeInvalidToken)
		return nil, true, c.String(http.StatusUnauthorized, "Invalid token")
	}

	if claims.Status != domain.StatusApproved {
		h.metrics.RecordVerify(endpoint, metrics.VerifyOutcomeNotApproved)
		return nil, true, c.String(http.StatusForbidden, "Not approved")
	}

	return claims, false, nil
}

func (h *VerifyHandler) ok(c echo.Context, claims *token.Claims) error {
	header := c.Response().Header()
	header.Set(HeaderAuthUserID, strconv.FormatInt(claims.UserID, 10))
	header.Set(HeaderAuthUserEmail, claims.Email)
	header.Set(HeaderAuthUserRole, string(claims.Role))
	return c.String(http.StatusOK, "OK")
}
