package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportbase/keel/internal/domain"
)

const ticketColumns = `id, external_key, channel, status, priority, subject,
               customer_name, customer_email, customer_phone, shopify_customer_id,
               assigned_agent_id, resolution_type, resolution_reason,
               created_at, updated_at, resolved_at`

// TicketFilter captures listing parameters for the operator inbox view.
type TicketFilter struct {
	Channel    *domain.TicketChannel
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Touch(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	FindActiveByContact(ctx context.Context, phone string, channel domain.TicketChannel) (*domain.Ticket, error)
	FindResolvedByContact(ctx context.Context, phone string, channel domain.TicketChannel, resolvedAfter time.Time) (*domain.Ticket, error)
	CloseResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountWithFilter(ctx context.Context, filter TicketFilter) (int64, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, channel, status, priority, subject,
            customer_name, customer_email, customer_phone, shopify_customer_id, assigned_agent_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.Channel,
		ticket.Status,
		ticket.Priority,
		ticket.Subject,
		ticket.CustomerName,
		ticket.CustomerEmail,
		ticket.CustomerPhone,
		ticket.ShopifyCustomerID,
		ticket.AssignedAgentID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, priority=$2, subject=$3, customer_name=$4,
            customer_email=$5, shopify_customer_id=$6, assigned_agent_id=$7,
            resolution_type=$8, resolution_reason=$9, resolved_at=$10, updated_at=NOW()
        WHERE id=$11`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		ticket.Priority,
		ticket.Subject,
		ticket.CustomerName,
		ticket.CustomerEmail,
		ticket.ShopifyCustomerID,
		ticket.AssignedAgentID,
		ticket.ResolutionType,
		ticket.ResolutionReason,
		ticket.ResolvedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Touch bumps updated_at so the ticket resurfaces at the top of the inbox.
func (r *ticketRepository) Touch(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE tickets SET updated_at=NOW() WHERE id=$1`, id)
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

// FindActiveByContact returns the most recently updated open or in_progress
// ticket for the (phone, channel) key, or pgx.ErrNoRows.
func (r *ticketRepository) FindActiveByContact(ctx context.Context, phone string, channel domain.TicketChannel) (*domain.Ticket, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE customer_phone=$1 AND channel=$2 AND status IN ('open','in_progress')
        ORDER BY updated_at DESC
        LIMIT 1`, ticketColumns)
	return r.fetchSingle(ctx, query, phone, channel)
}

// FindResolvedByContact returns the most recently resolved ticket for the key
// whose resolved_at is strictly after the given cutoff, or pgx.ErrNoRows.
func (r *ticketRepository) FindResolvedByContact(ctx context.Context, phone string, channel domain.TicketChannel, resolvedAfter time.Time) (*domain.Ticket, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE customer_phone=$1 AND channel=$2 AND status='resolved' AND resolved_at > $3
        ORDER BY resolved_at DESC
        LIMIT 1`, ticketColumns)
	return r.fetchSingle(ctx, query, phone, channel, resolvedAfter)
}

// CloseResolvedBefore bulk-transitions stale resolved tickets to closed and
// returns how many rows changed. Safe to run concurrently with itself.
func (r *ticketRepository) CloseResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `
        UPDATE tickets SET status='closed', updated_at=NOW()
        WHERE status='resolved' AND resolved_at <= $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.Channel,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Subject,
		&ticket.CustomerName,
		&ticket.CustomerEmail,
		&ticket.CustomerPhone,
		&ticket.ShopifyCustomerID,
		&ticket.AssignedAgentID,
		&ticket.ResolutionType,
		&ticket.ResolutionReason,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses, args := filterClauses(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountWithFilter(ctx context.Context, filter TicketFilter) (int64, error) {
	clauses, args := filterClauses(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM tickets WHERE %s`, strings.Join(clauses, " AND "))

	var total int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func filterClauses(filter TicketFilter) ([]string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Channel != nil {
		args = append(args, *filter.Channel)
		clauses = append(clauses, fmt.Sprintf("channel=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	return clauses, args
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.ExternalKey,
			&ticket.Channel,
			&ticket.Status,
			&ticket.Priority,
			&ticket.Subject,
			&ticket.CustomerName,
			&ticket.CustomerEmail,
			&ticket.CustomerPhone,
			&ticket.ShopifyCustomerID,
			&ticket.AssignedAgentID,
			&ticket.ResolutionType,
			&ticket.ResolutionReason,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.ResolvedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
