package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportbase/keel/internal/domain"
)

func TestGenerateAndParseToken(t *testing.T) {
	tm := NewTokenManager("test-secret", 1)
	agent := &domain.Agent{ID: "agent-1", Email: "ana@example.com", Name: "Ana", Role: domain.AgentRoleAgent}

	token, expiresAt, err := tm.GenerateToken(agent)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", claims.AgentID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, domain.AgentRoleAgent, claims.Role)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", 1)
	verifier := NewTokenManager("secret-b", 1)

	token, _, err := issuer.GenerateToken(&domain.Agent{ID: "agent-1"})
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	assert.Error(t, err)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2!", 10)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "hunter2!"))
	assert.Error(t, ComparePassword(hash, "wrong"))
}
