package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/supportbase/keel/internal/domain"
	"github.com/supportbase/keel/internal/repository"
)

// ThreadOutcome reports how an inbound event was threaded.
type ThreadOutcome string

const (
	OutcomeExisting ThreadOutcome = "existing"
	OutcomeReopened ThreadOutcome = "reopened"
	OutcomeCreated  ThreadOutcome = "created"
)

// ThreadResult is the ticket an inbound event landed on.
type ThreadResult struct {
	Ticket  *domain.Ticket
	Outcome ThreadOutcome
	Message *domain.TicketMessage
}

// ContactInfo carries resolver output into ticket creation.
type ContactInfo struct {
	Name              string
	Email             string
	ShopifyCustomerID string
}

// ThreadingService decides whether an inbound event belongs to an
// existing ticket, reopens a recently resolved one, or starts a new one.
// The decision-and-write sequence for one (phone, channel) key is
// serialized through a per-key mutex so concurrent duplicate webhook
// deliveries cannot create duplicate active tickets.
type ThreadingService struct {
	tickets      repository.TicketRepository
	messages     repository.TicketMessageRepository
	reopenWindow time.Duration
	logger       *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewThreadingService constructs the engine.
func NewThreadingService(tickets repository.TicketRepository, messages repository.TicketMessageRepository, reopenWindow time.Duration, logger *zap.Logger) *ThreadingService {
	return &ThreadingService{
		tickets:      tickets,
		messages:     messages,
		reopenWindow: reopenWindow,
		logger:       logger,
		locks:        make(map[string]*sync.Mutex),
	}
}

// Thread persists an inbound event into a ticket. body is empty for
// calls; for texts it is appended as a customer message and the ticket's
// updated_at is touched so it resurfaces in the operator inbox.
func (s *ThreadingService) Thread(ctx context.Context, phone string, channel domain.TicketChannel, body string, contact ContactInfo) (*ThreadResult, error) {
	unlock := s.lockKey(phone, channel)
	defer unlock()

	result, err := s.decide(ctx, phone, channel, contact)
	if err != nil {
		return nil, err
	}

	if body != "" {
		msg := &domain.TicketMessage{
			TicketID:   result.Ticket.ID,
			SenderType: domain.SenderCustomer,
			Body:       body,
		}
		if err := s.messages.Create(ctx, msg); err != nil {
			return nil, err
		}
		result.Message = msg
		if result.Outcome == OutcomeExisting {
			if err := s.tickets.Touch(ctx, result.Ticket.ID); err != nil {
				return nil, err
			}
		}
	}

	s.logger.Info("threaded inbound event",
		zap.String("ticket_id", result.Ticket.ID),
		zap.String("channel", string(channel)),
		zap.String("outcome", string(result.Outcome)))
	return result, nil
}

func (s *ThreadingService) decide(ctx context.Context, phone string, channel domain.TicketChannel, contact ContactInfo) (*ThreadResult, error) {
	active, err := s.tickets.FindActiveByContact(ctx, phone, channel)
	if err == nil {
		return &ThreadResult{Ticket: active, Outcome: OutcomeExisting}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	cutoff := time.Now().Add(-s.reopenWindow)
	resolved, err := s.tickets.FindResolvedByContact(ctx, phone, channel, cutoff)
	if err == nil {
		return s.reopen(ctx, resolved)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	return s.create(ctx, phone, channel, contact)
}

// reopen sends a resolved ticket back to open and clears its resolution
// fields, recording the transition as a system message.
func (s *ThreadingService) reopen(ctx context.Context, ticket *domain.Ticket) (*ThreadResult, error) {
	ticket.Status = domain.TicketStatusOpen
	ticket.ResolvedAt = nil
	ticket.ResolutionType = nil
	ticket.ResolutionReason = nil
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	note := &domain.TicketMessage{
		TicketID:   ticket.ID,
		SenderType: domain.SenderSystem,
		Body:       "Ticket reopened: customer contacted again",
	}
	if err := s.messages.Create(ctx, note); err != nil {
		return nil, err
	}
	return &ThreadResult{Ticket: ticket, Outcome: OutcomeReopened}, nil
}

func (s *ThreadingService) create(ctx context.Context, phone string, channel domain.TicketChannel, contact ContactInfo) (*ThreadResult, error) {
	display := contact.Name
	if display == "" {
		display = phone
	}

	ticket := &domain.Ticket{
		ExternalKey:   generateTicketKey(),
		Channel:       channel,
		Status:        domain.TicketStatusOpen,
		Priority:      domain.TicketPriorityNormal,
		Subject:       subjectFor(channel, display),
		CustomerPhone: phone,
	}
	if contact.Name != "" {
		ticket.CustomerName = &contact.Name
	}
	if contact.Email != "" {
		ticket.CustomerEmail = &contact.Email
	}
	if contact.ShopifyCustomerID != "" {
		ticket.ShopifyCustomerID = &contact.ShopifyCustomerID
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	return &ThreadResult{Ticket: ticket, Outcome: OutcomeCreated}, nil
}

// CloseStale bulk-transitions resolved tickets whose resolution is older
// than the reopen window to closed. Idempotent: a sweep finding nothing
// to close is a no-op.
func (s *ThreadingService) CloseStale(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.reopenWindow)
	closed, err := s.tickets.CloseResolvedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if closed > 0 {
		s.logger.Info("auto-closed stale resolved tickets", zap.Int64("count", closed))
	}
	return closed, nil
}

// lockKey serializes threading per (phone, channel). Lock entries are
// retained for the process lifetime; the key space is bounded by the
// number of distinct contacts.
func (s *ThreadingService) lockKey(phone string, channel domain.TicketChannel) func() {
	key := phone + "|" + string(channel)

	s.mu.Lock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func subjectFor(channel domain.TicketChannel, display string) string {
	if channel == domain.ChannelPhone {
		return fmt.Sprintf("Call from %s", display)
	}
	return fmt.Sprintf("Text from %s", display)
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
