package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jmoiron/sqlx/types"
	"github.com/labstack/echo/v4"

	"github.com/haneul/authgate/internal/domain"
)

// CalculatorStore persists per-user calculator form data.
type CalculatorStore interface {
	GetFormData(ctx context.Context, userID int64) (*domain.CalculatorData, error)
	UpsertFormData(ctx context.Context, userID int64, formData types.JSONText) (*domain.CalculatorData, error)
}

// CalculatorHandler serves the admission-calculator data endpoints. Scoring
// is a client concern; the gateway only stores the form payload.
type CalculatorHandler struct {
	store CalculatorStore
}

// NewCalculatorHandler creates a new CalculatorHandler.
func NewCalculatorHandler(store CalculatorStore) *CalculatorHandler {
	return &CalculatorHandler{store: store}
}

type saveFormDataRequest struct {
	FormData json.RawMessage `json:"form_data" validate:"required"`
}

// GetData returns the caller's saved form data, or null when nothing has
// been saved yet.
func (h *CalculatorHandler) GetData(c echo.Context) error {
	claims, ok := IdentityFrom(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	data, err := h.store.GetFormData(c.Request().Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return JSON(c, http.StatusOK, map[string]any{"data": nil})
		}
		return err
	}

	return JSON(c, http.StatusOK, map[string]any{"data": data})
}

// SaveData creates or replaces the caller's form data.
func (h *CalculatorHandler) SaveData(c echo.Context) error {
	claims, ok := IdentityFrom(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	var req saveFormDataRequest
	if err := c.Bind(&req); err != nil {
		return domain.NewAppError(http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	data, err := h.store.UpsertFormData(c.Request().Context(), claims.UserID, types.JSONText(req.FormData))
	if err != nil {
		return err
	}

	return JSON(c, http.StatusOK, map[string]any{"data": data})
}
