package service

import (
	"context"
	"strings"
	"time"

	"github.com/supportbase/keel/internal/domain"
	"github.com/supportbase/keel/internal/repository"
	apperrors "github.com/supportbase/keel/pkg/util"
)

// TicketService coordinates operator-side ticket workflows.
type TicketService struct {
	tickets  repository.TicketRepository
	messages repository.TicketMessageRepository
}

// NewTicketService constructs the service.
func NewTicketService(tickets repository.TicketRepository, messages repository.TicketMessageRepository) *TicketService {
	return &TicketService{tickets: tickets, messages: messages}
}

// TicketCreateInput describes an agent-initiated ticket.
type TicketCreateInput struct {
	Channel           domain.TicketChannel
	Subject           string
	CustomerName      *string
	CustomerEmail     *string
	CustomerPhone     string
	ShopifyCustomerID *string
	Priority          domain.TicketPriority
	Body              string
}

// TicketUpdateInput describes a partial operator update.
type TicketUpdateInput struct {
	Status           *domain.TicketStatus
	Priority         *domain.TicketPriority
	AssignedAgentID  *string
	ClearAssignment  bool
	ResolutionType   *string
	ResolutionReason *string
}

// TicketListItem is one row of the inbox listing.
type TicketListItem struct {
	Ticket       domain.Ticket
	LastMessage  *domain.TicketMessage
	MessageCount int64
}

// ListTickets returns tickets ordered by recency plus the total count.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]TicketListItem, int64, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.tickets.CountWithFilter(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	items := make([]TicketListItem, 0, len(tickets))
	for _, ticket := range tickets {
		last, err := s.messages.LatestByTicket(ctx, ticket.ID)
		if err != nil {
			return nil, 0, err
		}
		count, err := s.messages.CountByTicket(ctx, ticket.ID)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, TicketListItem{Ticket: ticket, LastMessage: last, MessageCount: count})
	}
	return items, total, nil
}

// GetTicket returns a ticket with its full message thread.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, []domain.TicketMessage, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, msgs, nil
}

// CreateTicket creates an agent-initiated ticket, optionally with an
// initial customer message.
func (s *TicketService) CreateTicket(ctx context.Context, agentID string, input TicketCreateInput) (*domain.Ticket, error) {
	if input.Channel == "" || strings.TrimSpace(input.Subject) == "" {
		return nil, apperrors.NewValidationError("channel and subject are required", nil)
	}

	ticket := &domain.Ticket{
		ExternalKey:       generateTicketKey(),
		Channel:           input.Channel,
		Status:            domain.TicketStatusOpen,
		Priority:          input.Priority,
		Subject:           strings.TrimSpace(input.Subject),
		CustomerName:      input.CustomerName,
		CustomerEmail:     input.CustomerEmail,
		CustomerPhone:     input.CustomerPhone,
		ShopifyCustomerID: input.ShopifyCustomerID,
		AssignedAgentID:   &agentID,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityNormal
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.Body) != "" {
		msg := &domain.TicketMessage{
			TicketID:   ticket.ID,
			SenderType: domain.SenderCustomer,
			Body:       strings.TrimSpace(input.Body),
		}
		if err := s.messages.Create(ctx, msg); err != nil {
			return nil, err
		}
	}
	return ticket, nil
}

// UpdateTicket applies a partial operator update, validating status
// transitions against the ticket lifecycle.
func (s *TicketService) UpdateTicket(ctx context.Context, id string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Status != nil && *input.Status != ticket.Status {
		if !isValidTransition(ticket.Status, *input.Status) {
			return nil, apperrors.NewValidationError("invalid status transition", map[string]any{
				"from": ticket.Status,
				"to":   *input.Status,
			})
		}
		ticket.Status = *input.Status
		switch *input.Status {
		case domain.TicketStatusResolved, domain.TicketStatusClosed:
			now := time.Now()
			ticket.ResolvedAt = &now
		case domain.TicketStatusOpen:
			ticket.ResolvedAt = nil
			ticket.ResolutionType = nil
			ticket.ResolutionReason = nil
		}
	}
	if input.Priority != nil {
		ticket.Priority = *input.Priority
	}
	if input.ClearAssignment {
		ticket.AssignedAgentID = nil
	} else if input.AssignedAgentID != nil {
		ticket.AssignedAgentID = input.AssignedAgentID
	}
	if input.ResolutionType != nil {
		ticket.ResolutionType = input.ResolutionType
	}
	if input.ResolutionReason != nil {
		ticket.ResolutionReason = input.ResolutionReason
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// AddMessage appends a message to a ticket thread. An agent reply to an
// open ticket moves it to in_progress and assigns the author.
func (s *TicketService) AddMessage(ctx context.Context, agentID, ticketID string, senderType domain.SenderType, body string) (*domain.TicketMessage, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("body is required", nil)
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	msg := &domain.TicketMessage{
		TicketID:   ticket.ID,
		SenderType: senderType,
		Body:       strings.TrimSpace(body),
	}
	if senderType == domain.SenderAgent {
		msg.SenderAgentID = &agentID
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	if senderType == domain.SenderAgent && ticket.Status == domain.TicketStatusOpen {
		ticket.Status = domain.TicketStatusInProgress
		ticket.AssignedAgentID = &agentID
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return nil, err
		}
	} else if err := s.tickets.Touch(ctx, ticket.ID); err != nil {
		return nil, err
	}
	return msg, nil
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusResolved},
	domain.TicketStatusInProgress: {domain.TicketStatusOpen, domain.TicketStatusResolved},
	domain.TicketStatusResolved:   {domain.TicketStatusOpen, domain.TicketStatusClosed},
	domain.TicketStatusClosed:     {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
