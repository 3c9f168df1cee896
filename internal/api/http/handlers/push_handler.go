package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/supportbase/keel/internal/api/dto"
	"github.com/supportbase/keel/internal/auth"
	"github.com/supportbase/keel/internal/push"
	"github.com/supportbase/keel/internal/service"
	apperrors "github.com/supportbase/keel/pkg/util"
)

// PushHandler manages per-agent push subscriptions.
type PushHandler struct {
	agents *service.AgentService
	web    *push.WebPushClient
}

// NewPushHandler constructs handler.
func NewPushHandler(agents *service.AgentService, web *push.WebPushClient) *PushHandler {
	return &PushHandler{agents: agents, web: web}
}

// VapidKey GET /push/vapid-key.
func (h *PushHandler) VapidKey(c *fiber.Ctx) error {
	if !h.web.Enabled() {
		return apperrors.NewDomainError("NOT_CONFIGURED", "VAPID keys not configured", http.StatusInternalServerError, nil)
	}
	return c.JSON(dto.VapidKeyResponse{PublicKey: h.web.PublicKey()})
}

// Subscribe POST /push/subscribe.
func (h *PushHandler) Subscribe(c *fiber.Ctx) error {
	agent, ok := auth.AgentFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.SubscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.agents.SaveWebPushSubscription(c.UserContext(), agent, req.Subscription); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// Unsubscribe DELETE /push/subscribe.
func (h *PushHandler) Unsubscribe(c *fiber.Ctx) error {
	agent, ok := auth.AgentFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	if err := h.agents.RemoveWebPushSubscription(c.UserContext(), agent); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// RegisterToken POST /push/token.
func (h *PushHandler) RegisterToken(c *fiber.Ctx) error {
	agent, ok := auth.AgentFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.agents.SavePushToken(c.UserContext(), agent, req.Token); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// RemoveToken DELETE /push/token.
func (h *PushHandler) RemoveToken(c *fiber.Ctx) error {
	agent, ok := auth.AgentFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	if err := h.agents.RemovePushToken(c.UserContext(), agent); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// SetAvailability PUT /push/availability.
func (h *PushHandler) SetAvailability(c *fiber.Ctx) error {
	agent, ok := auth.AgentFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.AvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.agents.SetAvailability(c.UserContext(), agent, req.Available); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
