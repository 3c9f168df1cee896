package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/supportbase/keel/internal/api/dto"
	"github.com/supportbase/keel/internal/auth"
	"github.com/supportbase/keel/internal/domain"
	"github.com/supportbase/keel/internal/service"
	apperrors "github.com/supportbase/keel/pkg/util"
)

// AuthHandler manages agent sessions.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	token, expiresAt, agent, err := h.service.Login(c.UserContext(), strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Agent:     agentResponse(agent),
	})
}

// Me GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	agent, ok := auth.AgentFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	return c.JSON(fiber.Map{"agent": agentResponse(agent)})
}

func agentResponse(agent *domain.Agent) dto.AgentResponse {
	return dto.AgentResponse{
		ID:          agent.ID,
		Email:       agent.Email,
		Name:        agent.Name,
		Role:        string(agent.Role),
		IsAvailable: agent.IsAvailable,
	}
}
