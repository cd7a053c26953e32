package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Pinger reports database connectivity.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves the liveness and database health probes. Both return
// plain JSON, not the API envelope: the consumers are monitors, not clients.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Live reports process liveness.
func (h *HealthHandler) Live(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Database reports whether the database answers a ping.
func (h *HealthHandler) Database(c echo.Context) error {
	state := "connected"
	if err := h.db.PingContext(c.Request().Context()); err != nil {
		state = "disconnected"
	}
	return c.JSON(http.StatusOK, map[string]string{"database": state})
}
