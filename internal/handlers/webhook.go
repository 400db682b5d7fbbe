package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/syncwell/zoomcrm/internal/webhook"
	"github.com/syncwell/zoomcrm/internal/zoom"
)

// EventProcessor handles one verified event and reports whether its CRM
// writes completed.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, evt zoom.Event) bool
}

// WebhookHandler receives Zoom webhook deliveries: it answers the URL
// validation handshake, verifies the request signature, and hands verified
// events to the processor.
type WebhookHandler struct {
	processor   EventProcessor
	secretToken string
	logger      *slog.Logger
}

// NewWebhookHandler creates the webhook handler. secretToken is the Zoom
// app's webhook secret used for both signature checks and the handshake.
func NewWebhookHandler(log *slog.Logger, processor EventProcessor, secretToken string) *WebhookHandler {
	return &WebhookHandler{
		processor:   processor,
		secretToken: secretToken,
		logger:      log.With(slog.String("handler", "webhook")),
	}
}

// Register mounts POST /zoom-webhook.
func (h *WebhookHandler) Register(e *echo.Echo) {
	e.POST("/zoom-webhook", h.Receive)
}

// Receive processes one webhook delivery. A 500 tells Zoom to redeliver;
// anything already written stays deduplicated on the retry.
func (h *WebhookHandler) Receive(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "unreadable body"})
	}

	evt, err := zoom.ParseEvent(body)
	if err != nil {
		h.logger.Warn("undecodable webhook body", "error", err)
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid payload"})
	}

	// The handshake precedes signature checks: Zoom sends it before the
	// endpoint has ever been verified.
	if evt.Event == zoom.EventURLValidation {
		h.logger.Info("answering url validation handshake")
		return c.JSON(http.StatusOK, webhook.ValidationResponse(evt.Payload.PlainToken, h.secretToken))
	}

	signature := c.Request().Header.Get(webhook.SignatureHeader)
	if !webhook.Verify(body, signature, h.secretToken) {
		h.logger.Warn("rejected webhook with bad signature", "event", evt.Event)
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "invalid signature"})
	}

	if !h.processor.ProcessEvent(c.Request().Context(), evt) {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "event processing failed"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}
