package handlers

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/whatsapp-copilot/environments"
	"github.com/onurcolak/whatsapp-copilot/internal/scheduler"
	"github.com/onurcolak/whatsapp-copilot/pkg/response"
	"github.com/onurcolak/whatsapp-copilot/pkg/validator"
)

type SweeperHandler struct {
	sweeper *scheduler.Sweeper
	ctx     context.Context
	config  environments.UsageConfig
}

type StartSweeperRequest struct {
	// Interval between sweeps in seconds.
	Interval *int `json:"interval,omitempty" validate:"omitempty,min=1,max=3600"`
}

func NewSweeperHandler(
	sweeper *scheduler.Sweeper,
	ctx context.Context,
	cfg environments.UsageConfig,
) *SweeperHandler {
	return &SweeperHandler{
		sweeper: sweeper,
		ctx:     ctx,
		config:  cfg,
	}
}

// StartSweeper godoc
// @Summary Start the notification sweeper
// @Description Starts the periodic clearing of expired threshold notifications
// @Tags sweeper
// @Accept json
// @Produce json
// @Param x-admin-api-key header string true "Admin API key"
// @Param request body StartSweeperRequest false "Sweeper parameters (optional)"
// @Success 200 {object} response.SuccessResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/sweeper/start [post]
func (h *SweeperHandler) StartSweeper(c echo.Context) error {
	if h.sweeper.IsRunning() {
		return response.OkWithMessage(c, "Sweeper is already running", h.sweeper.GetStatus())
	}

	var req StartSweeperRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	intervalSeconds := int(h.config.SweepInterval.Seconds())
	if req.Interval != nil {
		intervalSeconds = *req.Interval
	}

	// The sweeper must outlive this request, so it runs on the server context.
	if err := h.sweeper.StartWithParams(h.ctx, intervalSeconds); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Sweeper started successfully", h.sweeper.GetStatus())
}

// StopSweeper godoc
// @Summary Stop the notification sweeper
// @Description Stops the periodic clearing; flags still expire on read
// @Tags sweeper
// @Accept json
// @Produce json
// @Param x-admin-api-key header string true "Admin API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/sweeper/stop [post]
func (h *SweeperHandler) StopSweeper(c echo.Context) error {
	if !h.sweeper.IsRunning() {
		return response.OkWithMessage(c, "Sweeper is already stopped", h.sweeper.GetStatus())
	}

	if err := h.sweeper.Stop(); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Sweeper stopped successfully", h.sweeper.GetStatus())
}

// GetSweeperStatus godoc
// @Summary Get sweeper status
// @Description Returns run counters and the number of flags cleared so far
// @Tags sweeper
// @Accept json
// @Produce json
// @Param x-admin-api-key header string true "Admin API key"
// @Success 200 {object} response.SuccessResponse
// @Router /api/v1/sweeper/status [get]
func (h *SweeperHandler) GetSweeperStatus(c echo.Context) error {
	return response.Ok(c, h.sweeper.GetStatus())
}
