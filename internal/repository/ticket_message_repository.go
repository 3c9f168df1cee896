package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportbase/keel/internal/domain"
)

// TicketMessageRepository encapsulates ticket message persistence.
type TicketMessageRepository interface {
	Create(ctx context.Context, msg *domain.TicketMessage) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error)
	LatestByTicket(ctx context.Context, ticketID string) (*domain.TicketMessage, error)
	CountByTicket(ctx context.Context, ticketID string) (int64, error)
}

type ticketMessageRepository struct {
	pool *pgxpool.Pool
}

// NewTicketMessageRepository instantiates repository.
func NewTicketMessageRepository(pool *pgxpool.Pool) TicketMessageRepository {
	return &ticketMessageRepository{pool: pool}
}

func (r *ticketMessageRepository) Create(ctx context.Context, msg *domain.TicketMessage) error {
	const query = `
        INSERT INTO ticket_messages (ticket_id, sender_type, sender_agent_id, body)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.TicketID,
		msg.SenderType,
		msg.SenderAgentID,
		msg.Body,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *ticketMessageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error) {
	const query = `
        SELECT id, ticket_id, sender_type, sender_agent_id, body, created_at
        FROM ticket_messages WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketMessage
	for rows.Next() {
		var msg domain.TicketMessage
		if err := rows.Scan(&msg.ID, &msg.TicketID, &msg.SenderType, &msg.SenderAgentID, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func (r *ticketMessageRepository) LatestByTicket(ctx context.Context, ticketID string) (*domain.TicketMessage, error) {
	const query = `
        SELECT id, ticket_id, sender_type, sender_agent_id, body, created_at
        FROM ticket_messages WHERE ticket_id=$1 ORDER BY created_at DESC LIMIT 1`
	var msg domain.TicketMessage
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&msg.ID, &msg.TicketID, &msg.SenderType, &msg.SenderAgentID, &msg.Body, &msg.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *ticketMessageRepository) CountByTicket(ctx context.Context, ticketID string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ticket_messages WHERE ticket_id=$1`, ticketID).Scan(&count)
	return count, err
}
