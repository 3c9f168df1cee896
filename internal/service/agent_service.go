package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/supportbase/keel/internal/domain"
	"github.com/supportbase/keel/internal/repository"
	apperrors "github.com/supportbase/keel/pkg/util"
)

// AgentService manages agent push subscriptions and availability.
type AgentService struct {
	agents repository.AgentRepository
	logger *zap.Logger
}

// NewAgentService constructs the service.
func NewAgentService(agents repository.AgentRepository, logger *zap.Logger) *AgentService {
	return &AgentService{agents: agents, logger: logger}
}

// SaveWebPushSubscription stores the agent's browser push subscription.
func (s *AgentService) SaveWebPushSubscription(ctx context.Context, agent *domain.Agent, sub domain.WebPushSubscription) error {
	if strings.TrimSpace(sub.Endpoint) == "" {
		return apperrors.NewValidationError("invalid subscription object", nil)
	}
	if err := s.agents.SaveWebPushSub(ctx, agent.ID, &sub); err != nil {
		return err
	}
	s.logger.Info("web push subscription saved", zap.String("agent", agent.Name))
	return nil
}

// RemoveWebPushSubscription clears the agent's browser push subscription.
func (s *AgentService) RemoveWebPushSubscription(ctx context.Context, agent *domain.Agent) error {
	if err := s.agents.SaveWebPushSub(ctx, agent.ID, nil); err != nil {
		return err
	}
	s.logger.Info("web push subscription removed", zap.String("agent", agent.Name))
	return nil
}

// SavePushToken stores the agent's mobile push token.
func (s *AgentService) SavePushToken(ctx context.Context, agent *domain.Agent, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperrors.NewValidationError("token is required", nil)
	}
	return s.agents.SavePushToken(ctx, agent.ID, &token)
}

// RemovePushToken clears the agent's mobile push token.
func (s *AgentService) RemovePushToken(ctx context.Context, agent *domain.Agent) error {
	return s.agents.SavePushToken(ctx, agent.ID, nil)
}

// SetAvailability flags whether the agent receives notifications.
func (s *AgentService) SetAvailability(ctx context.Context, agent *domain.Agent, available bool) error {
	return s.agents.SetAvailability(ctx, agent.ID, available)
}
