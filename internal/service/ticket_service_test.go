package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportbase/keel/internal/domain"
	apperrors "github.com/supportbase/keel/pkg/util"
)

func newTicketFixture(t *testing.T) (*TicketService, *fakeTicketRepo, *fakeMessageRepo) {
	t.Helper()
	tickets := newFakeTicketRepo()
	messages := &fakeMessageRepo{}
	return NewTicketService(tickets, messages), tickets, messages
}

func seedOpenTicket(t *testing.T, tickets *fakeTicketRepo) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		Channel:       domain.ChannelText,
		Status:        domain.TicketStatusOpen,
		Priority:      domain.TicketPriorityNormal,
		Subject:       "Text from +15551234567",
		CustomerPhone: "+15551234567",
	}
	require.NoError(t, tickets.Create(context.Background(), ticket))
	return ticket
}

func TestCreateTicketRequiresSubject(t *testing.T) {
	svc, _, _ := newTicketFixture(t)

	_, err := svc.CreateTicket(context.Background(), "agent-1", TicketCreateInput{Channel: domain.ChannelPhone})
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestCreateTicketWithInitialMessage(t *testing.T) {
	svc, _, messages := newTicketFixture(t)

	ticket, err := svc.CreateTicket(context.Background(), "agent-1", TicketCreateInput{
		Channel:       domain.ChannelShopifyWeb,
		Subject:       "  Refund request  ",
		CustomerPhone: "+15551234567",
		Body:          "I want a refund for order #1042",
	})
	require.NoError(t, err)

	assert.Equal(t, "Refund request", ticket.Subject)
	assert.Equal(t, domain.TicketPriorityNormal, ticket.Priority)
	require.NotNil(t, ticket.AssignedAgentID)
	assert.Equal(t, "agent-1", *ticket.AssignedAgentID)
	require.Len(t, messages.messages, 1)
	assert.Equal(t, domain.SenderCustomer, messages.messages[0].SenderType)
}

func TestUpdateTicketStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from domain.TicketStatus
		to   domain.TicketStatus
		ok   bool
	}{
		{"open to in_progress", domain.TicketStatusOpen, domain.TicketStatusInProgress, true},
		{"open to resolved", domain.TicketStatusOpen, domain.TicketStatusResolved, true},
		{"open to closed", domain.TicketStatusOpen, domain.TicketStatusClosed, false},
		{"in_progress to resolved", domain.TicketStatusInProgress, domain.TicketStatusResolved, true},
		{"resolved to open", domain.TicketStatusResolved, domain.TicketStatusOpen, true},
		{"resolved to closed", domain.TicketStatusResolved, domain.TicketStatusClosed, true},
		{"closed is terminal", domain.TicketStatusClosed, domain.TicketStatusOpen, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, tickets, _ := newTicketFixture(t)
			seeded := seedOpenTicket(t, tickets)
			seeded.Status = tt.from
			require.NoError(t, tickets.Update(context.Background(), seeded))

			status := tt.to
			updated, err := svc.UpdateTicket(context.Background(), seeded.ID, TicketUpdateInput{Status: &status})
			if !tt.ok {
				require.Error(t, err)
				assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, updated.Status)
		})
	}
}

func TestUpdateTicketStampsResolution(t *testing.T) {
	svc, tickets, _ := newTicketFixture(t)
	seeded := seedOpenTicket(t, tickets)

	status := domain.TicketStatusResolved
	resolutionType := "answered"
	updated, err := svc.UpdateTicket(context.Background(), seeded.ID, TicketUpdateInput{
		Status:         &status,
		ResolutionType: &resolutionType,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.ResolvedAt)
	assert.Equal(t, "answered", *updated.ResolutionType)

	// Reopening clears the resolution stamp.
	status = domain.TicketStatusOpen
	updated, err = svc.UpdateTicket(context.Background(), seeded.ID, TicketUpdateInput{Status: &status})
	require.NoError(t, err)
	assert.Nil(t, updated.ResolvedAt)
	assert.Nil(t, updated.ResolutionType)
}

func TestAddAgentMessageClaimsOpenTicket(t *testing.T) {
	svc, tickets, messages := newTicketFixture(t)
	seeded := seedOpenTicket(t, tickets)

	msg, err := svc.AddMessage(context.Background(), "agent-1", seeded.ID, domain.SenderAgent, "On it!")
	require.NoError(t, err)
	require.NotNil(t, msg.SenderAgentID)
	assert.Equal(t, "agent-1", *msg.SenderAgentID)
	require.Len(t, messages.messages, 1)

	stored, err := tickets.GetByID(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, stored.Status)
	require.NotNil(t, stored.AssignedAgentID)
	assert.Equal(t, "agent-1", *stored.AssignedAgentID)
}

func TestAddMessageRejectsEmptyBody(t *testing.T) {
	svc, tickets, _ := newTicketFixture(t)
	seeded := seedOpenTicket(t, tickets)

	_, err := svc.AddMessage(context.Background(), "agent-1", seeded.ID, domain.SenderAgent, "   ")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}
