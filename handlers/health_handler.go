package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports on the usage store (MySQL) and the ledger (Redis).
// Both are required for the webhook to work, so either being down is "down".
type HealthHandler struct {
	db           *sqlx.DB
	ledger       pinger
	checkTimeout time.Duration
}

func NewHealthHandler(db *sqlx.DB, ledger pinger) *HealthHandler {
	return &HealthHandler{
		db:           db,
		ledger:       ledger,
		checkTimeout: 2 * time.Second,
	}
}

// Health returns overall status and basic component statuses (DB and Redis).
// @Summary Health check
// @Description Returns overall status with usage store and idempotency ledger connectivity
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.checkTimeout)
	defer cancel()

	dbStatus := "up"
	if h.db == nil {
		dbStatus = "down"
	} else if err := h.db.PingContext(ctx); err != nil {
		dbStatus = "down"
	}

	ledgerStatus := "up"
	if h.ledger == nil {
		ledgerStatus = "down"
	} else if err := h.ledger.Ping(ctx); err != nil {
		ledgerStatus = "down"
	}

	overallStatus := "ok"
	code := http.StatusOK
	if dbStatus != "up" || ledgerStatus != "up" {
		overallStatus = "down"
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().Format(time.RFC3339),
		"components": map[string]any{
			"database": map[string]any{
				"status": dbStatus,
			},
			"redis": map[string]any{
				"status": ledgerStatus,
			},
		},
	})
}
