package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/supportbase/keel/internal/ingest"
)

// WebhooksHandler accepts inbound webhook deliveries.
type WebhooksHandler struct {
	pipeline *ingest.Pipeline
	logger   *zap.Logger
}

// NewWebhooksHandler constructs handler.
func NewWebhooksHandler(pipeline *ingest.Pipeline, logger *zap.Logger) *WebhooksHandler {
	return &WebhooksHandler{pipeline: pipeline, logger: logger}
}

// Telephony POST /webhooks/quo. The upstream sender must never see a
// failure for an ordinary "no match": the response always acknowledges.
func (h *WebhooksHandler) Telephony(c *fiber.Ctx) error {
	var payload ingest.WebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		h.logger.Warn("webhook: unparseable payload", zap.Error(err))
		return c.JSON(fiber.Map{"received": true, "matched": false})
	}

	matched, err := h.pipeline.Process(c.UserContext(), payload)
	if err != nil {
		// Fan-out already settled; acknowledging here keeps the upstream
		// sender from redelivering and duplicating notifications.
		h.logger.Error("webhook: ticket persistence failed", zap.Error(err))
	}
	return c.JSON(fiber.Map{"received": true, "matched": matched})
}

// ShopifyOrder POST /webhooks/shopify. Acknowledged, not processed.
func (h *WebhooksHandler) ShopifyOrder(c *fiber.Ctx) error {
	topic := c.Get("X-Shopify-Topic")
	h.logger.Info("shopify webhook received", zap.String("topic", topic))
	return c.JSON(fiber.Map{"received": true, "topic": topic})
}
