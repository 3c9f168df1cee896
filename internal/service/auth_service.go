package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/supportbase/keel/internal/auth"
	"github.com/supportbase/keel/internal/config"
	"github.com/supportbase/keel/internal/domain"
	"github.com/supportbase/keel/internal/repository"
	apperrors "github.com/supportbase/keel/pkg/util"
)

// AuthService handles agent login sessions.
type AuthService struct {
	agents repository.AgentRepository
	tokens *auth.TokenManager
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.AuthConfig, agents repository.AgentRepository) *AuthService {
	return &AuthService{
		agents: agents,
		tokens: auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLHours),
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// Login verifies credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, time.Time, *domain.Agent, error) {
	agent, err := s.agents.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", time.Time{}, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return "", time.Time{}, nil, err
	}
	if err := auth.ComparePassword(agent.PasswordHash, password); err != nil {
		return "", time.Time{}, nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(agent)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	return token, expiresAt, agent, nil
}
