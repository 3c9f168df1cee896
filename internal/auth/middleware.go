package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/supportbase/keel/internal/domain"
	"github.com/supportbase/keel/internal/repository"
	apperrors "github.com/supportbase/keel/pkg/util"
)

const agentKey = "auth_agent"

// AuthMiddleware validates bearer tokens and loads the agent record.
type AuthMiddleware struct {
	tokens *TokenManager
	agents repository.AgentRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, agents repository.AgentRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, agents: agents}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	agent, err := m.agents.GetByID(c.UserContext(), claims.AgentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("agent not found")
		}
		return apperrors.MapError(err)
	}

	c.Locals(agentKey, agent)
	return c.Next()
}

// RequireAdmin restricts a route to admin agents. Must run after Handle.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		agent, ok := AgentFromContext(c)
		if !ok || agent.Role != domain.AgentRoleAdmin {
			return apperrors.NewForbidden("admin access required")
		}
		return c.Next()
	}
}

// AgentFromContext returns the authenticated agent for the request.
func AgentFromContext(c *fiber.Ctx) (*domain.Agent, bool) {
	agent, ok := c.Locals(agentKey).(*domain.Agent)
	return agent, ok
}
