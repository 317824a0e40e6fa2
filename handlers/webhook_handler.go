package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/whatsapp-copilot/internal/domain"
	"github.com/onurcolak/whatsapp-copilot/internal/service"
	"github.com/onurcolak/whatsapp-copilot/pkg/logger"
	"github.com/onurcolak/whatsapp-copilot/pkg/response"
)

// Bodies returned to the messaging provider.
const (
	BodyNotFound        = "Not Found"
	BodyInvalidJSON     = "Invalid JSON"
	BodyMissingType     = "Message type is undefined"
	BodyMissingImageURL = "Image URL is missing"
	BodyUnsupportedType = "Message type not supported."
	BodyHighDemand      = "Due to high demand, you have exceeded your conversational limit. Please try again after some time."
)

type inboundDispatcher interface {
	Dispatch(ctx context.Context, msg *domain.InboundMessage) (domain.DispatchResult, error)
}

type WebhookHandler struct {
	dispatcher inboundDispatcher
}

func NewWebhookHandler(dispatcher inboundDispatcher) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher}
}

// Inbound godoc
// @Summary Inbound WhatsApp webhook
// @Description Receives a message from the provider, answers it through the conversation engine and enforces the free-message threshold
// @Tags webhooks
// @Accept json
// @Produce json
// @Param message body domain.InboundMessage true "Inbound message"
// @Success 200 {object} response.WebhookReply
// @Failure 400 {string} string
// @Failure 404 {string} string
// @Failure 500 {string} string
// @Router /webhooks/inbound [post]
func (h *WebhookHandler) Inbound(c echo.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Recovered from panic while handling inbound webhook: %v", r)
			err = response.Text(c, http.StatusInternalServerError, BodyHighDemand)
		}
	}()

	if c.Request().Method != http.MethodPost {
		return response.Text(c, http.StatusNotFound, BodyNotFound)
	}

	var msg domain.InboundMessage
	// Deserialize ignores Content-Type; providers do not always set it.
	if err := c.Echo().JSONSerializer.Deserialize(c, &msg); err != nil {
		logger.Warnf("Rejected inbound webhook with malformed JSON: %v", err)
		return response.Text(c, http.StatusBadRequest, BodyInvalidJSON)
	}

	if err := c.Validate(&msg); err != nil {
		logger.Warnf("Rejected inbound webhook %q: %v", msg.MessageUUID, err)
		return response.Text(c, http.StatusBadRequest, err.Error())
	}

	logger.WithFields(map[string]any{
		"message_uuid": msg.MessageUUID,
		"from":         msg.From,
		"message_type": msg.MessageType,
		"channel":      msg.Channel,
	}).Info("Inbound message received")

	// The payment flow can outlive the provider's connection.
	ctx := context.WithoutCancel(c.Request().Context())

	result, err := h.dispatcher.Dispatch(ctx, &msg)
	if err != nil {
		return h.dispatchError(c, &msg, err)
	}

	switch result.Outcome {
	case domain.OutcomeDuplicate:
		return c.NoContent(http.StatusOK)
	case domain.OutcomeIgnored:
		return response.Text(c, http.StatusOK, result.Reply)
	default:
		return response.WebhookOk(c, result.Reply)
	}
}

func (h *WebhookHandler) dispatchError(c echo.Context, msg *domain.InboundMessage, err error) error {
	switch {
	case errors.Is(err, service.ErrMissingType):
		return response.Text(c, http.StatusBadRequest, BodyMissingType)
	case errors.Is(err, service.ErrMissingImageURL):
		return response.Text(c, http.StatusBadRequest, BodyMissingImageURL)
	case errors.Is(err, service.ErrUnsupportedType):
		return response.Text(c, http.StatusBadRequest, BodyUnsupportedType)
	}

	logger.Errorf("Failed to dispatch inbound message %s: %v", msg.MessageUUID, err)
	return response.Text(c, http.StatusInternalServerError, BodyHighDemand)
}
