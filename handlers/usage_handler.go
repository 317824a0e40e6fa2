package handlers

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/whatsapp-copilot/internal/service"
	"github.com/onurcolak/whatsapp-copilot/pkg/phone"
	"github.com/onurcolak/whatsapp-copilot/pkg/response"
	"github.com/onurcolak/whatsapp-copilot/pkg/validator"
)

// UsageHandler exposes the usage counter store to support staff.
type UsageHandler struct {
	service *service.UsageService
}

func NewUsageHandler(service *service.UsageService) *UsageHandler {
	return &UsageHandler{service: service}
}

type SetCountRequest struct {
	Count *int `json:"count" validate:"required,min=0"`
}

// ListUsage godoc
// @Summary List usage records
// @Description Retrieves a paginated list of per-sender usage counters
// @Tags usage
// @Accept json
// @Produce json
// @Param x-admin-api-key header string true "Admin API key"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/usage [get]
func (h *UsageHandler) ListUsage(c echo.Context) error {
	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	records, totalCount, err := h.service.ListRecords(c.Request().Context(), page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, records, page, pageSize, totalCount)
}

// GetStats godoc
// @Summary Get usage statistics
// @Description Returns number of senders, delivered replies and active threshold notifications
// @Tags usage
// @Accept json
// @Produce json
// @Param x-admin-api-key header string true "Admin API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/usage/stats [get]
func (h *UsageHandler) GetStats(c echo.Context) error {
	stats, err := h.service.GetStats(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, stats)
}

// GetUsage godoc
// @Summary Get usage for a sender
// @Tags usage
// @Accept json
// @Produce json
// @Param x-admin-api-key header string true "Admin API key"
// @Param phone path string true "Sender phone number"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/usage/{phone} [get]
func (h *UsageHandler) GetUsage(c echo.Context) error {
	number, err := phoneParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	record, err := h.service.GetRecord(c.Request().Context(), number)
	if err != nil {
		return response.InternalServerError(c, err)
	}
	if record == nil {
		return response.NotFound(c, fmt.Sprintf("no usage recorded for %s", number))
	}

	return response.Ok(c, record)
}

// SetCount godoc
// @Summary Overwrite a sender's counter
// @Tags usage
// @Accept json
// @Produce json
// @Param x-admin-api-key header string true "Admin API key"
// @Param phone path string true "Sender phone number"
// @Param request body SetCountRequest true "New counter value"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/usage/{phone}/count [put]
func (h *UsageHandler) SetCount(c echo.Context) error {
	number, err := phoneParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	var req SetCountRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	if err := h.service.SetCount(c.Request().Context(), number, *req.Count); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Usage count updated", map[string]any{
		"phoneNumber":  number,
		"messageCount": *req.Count,
	})
}

// ResetUsage godoc
// @Summary Reset a sender's counter
// @Description Sets the counter to zero and clears the threshold notification, as a completed payment would
// @Tags usage
// @Accept json
// @Produce json
// @Param x-admin-api-key header string true "Admin API key"
// @Param phone path string true "Sender phone number"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/usage/{phone}/reset [post]
func (h *UsageHandler) ResetUsage(c echo.Context) error {
	number, err := phoneParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	ctx := c.Request().Context()
	if err := h.service.SetCount(ctx, number, 0); err != nil {
		return response.InternalServerError(c, err)
	}
	if err := h.service.ClearNotification(ctx, number); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Usage reset", map[string]any{
		"phoneNumber": number,
	})
}

// ClearNotification godoc
// @Summary Clear a sender's threshold notification
// @Description Lets the next breach notify the sender again without waiting for the cool-down
// @Tags usage
// @Accept json
// @Produce json
// @Param x-admin-api-key header string true "Admin API key"
// @Param phone path string true "Sender phone number"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/usage/{phone}/notification [delete]
func (h *UsageHandler) ClearNotification(c echo.Context) error {
	number, err := phoneParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	if err := h.service.ClearNotification(c.Request().Context(), number); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Notification cleared", map[string]any{
		"phoneNumber": number,
	})
}

// phoneParam normalises the :phone path parameter so it matches stored rows.
func phoneParam(c echo.Context) (string, error) {
	number, err := phone.Normalize(c.Param("phone"))
	if err != nil {
		return "", fmt.Errorf("invalid phone number")
	}
	return number, nil
}
