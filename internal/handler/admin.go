package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/haneul/authgate/internal/domain"
)

// AdminUserStore is the user access the admin console needs.
type AdminUserStore interface {
	SetStatus(ctx context.Context, id int64, status domain.Status, adminID int64) (*domain.User, error)
	List(ctx context.Context, status *domain.Status) ([]domain.User, error)
	ListPending(ctx context.Context) ([]domain.User, error)
	CountByStatus(ctx context.Context) (map[domain.Status]int, error)
}

// AuditStore is the append-only sink for admin actions.
type AuditStore interface {
	Insert(ctx context.Context, entry domain.AuditEntry) error
	List(ctx context.Context, limit, offset int) ([]domain.AuditRecord, error)
}

// AdminHandler implements the account approval console API.
type AdminHandler struct {
	users AdminUserStore
	audit AuditStore
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(users AdminUserStore, audit AuditStore) *AdminHandler {
	return &AdminHandler{users: users, audit: audit}
}

// ListUsers returns all users, optionally filtered by ?status=.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	var status *domain.Status
	filter := "all"
	if q := c.QueryParam("status"); q != "" {
		s := domain.Status(q)
		switch s {
		case domain.StatusPending, domain.StatusApproved, domain.StatusRejected:
			status = &s
			filter = q
		default:
			return domain.NewAppError(http.StatusBadRequest, "BAD_REQUEST", "Invalid status filter")
		}
	}

	users, err := h.users.List(c.Request().Context(), status)
	if err != nil {
		return err
	}

	return JSON(c, http.StatusOK, map[string]any{
		"users":  users,
		"count":  len(users),
		"filter": filter,
	})
}

// ListPendingUsers returns users awaiting review.
func (h *AdminHandler) ListPendingUsers(c echo.Context) error {
	users, err := h.users.ListPending(c.Request().Context())
	if err != nil {
		return err
	}

	return JSON(c, http.StatusOK, map[string]any{
		"users": users,
		"count": len(users),
	})
}

// ApproveUser transitions a pending user to approved and records the action.
func (h *AdminHandler) ApproveUser(c echo.Context) error {
	return h.review(c, domain.StatusApproved, domain.AuditActionApproveUser, "User approved successfully")
}

// RejectUser transitions a pending user to rejected and records the action.
func (h *AdminHandler) RejectUser(c echo.Context) error {
	return h.review(c, domain.StatusRejected, domain.AuditActionRejectUser, "User rejected successfully")
}

// Stats reports user counts by approval status.
func (h *AdminHandler) Stats(c echo.Context) error {
	counts, err := h.users.CountByStatus(c.Request().Context())
	if err != nil {
		return err
	}

	pending := counts[domain.StatusPending]
	approved := counts[domain.StatusApproved]
	rejected := counts[domain.StatusRejected]

	return JSON(c, http.StatusOK, map[string]any{
		"stats": map[string]int{
			"total":    pending + approved + rejected,
			"pending":  pending,
			"approved": approved,
			"rejected": rejected,
		},
	})
}

// ListAuditLogs returns audit entries newest first.
func (h *AdminHandler) ListAuditLogs(c echo.Context) error {
	limit := queryInt(c, "limit", 100)
	offset := queryInt(c, "offset", 0)
	if limit < 1 || limit > 1000 || offset < 0 {
		return domain.NewAppError(http.StatusBadRequest, "BAD_REQUEST", "Invalid pagination parameters")
	}

	logs, err := h.audit.List(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}

	return JSON(c, http.StatusOK, map[string]any{
		"logs":  logs,
		"count": len(logs),
	})
}

func (h *AdminHandler) review(c echo.Context, status domain.Status, action, message string) error {
	claims, ok := IdentityFrom(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return domain.NewAppError(http.StatusBadRequest, "BAD_REQUEST", "Invalid user ID")
	}

	user, err := h.users.SetStatus(c.Request().Context(), userID, status, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewAppError(http.StatusNotFound, "NOT_FOUND", "User not found")
		}
		if errors.Is(err, domain.ErrConflict) {
			return domain.NewAppError(http.StatusConflict, "CONFLICT", "User has already been reviewed")
		}
		return err
	}

	details, err := json.Marshal(map[string]any{"email": user.Email, "name": user.Name})
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	entry := domain.AuditEntry{
		AdminID:      claims.UserID,
		Action:       action,
		TargetUserID: &userID,
		Details:      details,
		IPAddress:    strPtr(c.RealIP()),
		UserAgent:    strPtr(c.Request().UserAgent()),
	}
	if err := h.audit.Insert(c.Request().Context(), entry); err != nil {
		return err
	}

	return JSON(c, http.StatusOK, map[string]any{
		"message": message,
		"user":    user,
	})
}

func queryInt(c echo.Context, name string, fallback int) int {
	v := c.QueryParam(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
