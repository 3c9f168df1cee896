package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportbase/keel/internal/domain"
)

// AgentRepository encapsulates agent persistence.
type AgentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	GetByEmail(ctx context.Context, email string) (*domain.Agent, error)
	ListAvailableWithPushToken(ctx context.Context) ([]domain.Agent, error)
	ListAvailableWithWebPush(ctx context.Context) ([]domain.Agent, error)
	SavePushToken(ctx context.Context, agentID string, token *string) error
	SaveWebPushSub(ctx context.Context, agentID string, sub *domain.WebPushSubscription) error
	SetAvailability(ctx context.Context, agentID string, available bool) error
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

const agentColumns = `id, email, name, role, password_hash, is_available, push_token, web_push_sub, created_at, updated_at`

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	return r.fetchSingle(ctx, `SELECT `+agentColumns+` FROM agents WHERE id=$1`, id)
}

func (r *agentRepository) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	return r.fetchSingle(ctx, `SELECT `+agentColumns+` FROM agents WHERE email=$1`, email)
}

func (r *agentRepository) ListAvailableWithPushToken(ctx context.Context) ([]domain.Agent, error) {
	return r.list(ctx, `SELECT `+agentColumns+` FROM agents WHERE is_available AND push_token IS NOT NULL`)
}

func (r *agentRepository) ListAvailableWithWebPush(ctx context.Context) ([]domain.Agent, error) {
	return r.list(ctx, `SELECT `+agentColumns+` FROM agents WHERE is_available AND web_push_sub IS NOT NULL`)
}

func (r *agentRepository) SavePushToken(ctx context.Context, agentID string, token *string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE agents SET push_token=$1, updated_at=NOW() WHERE id=$2`, token, agentID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *agentRepository) SaveWebPushSub(ctx context.Context, agentID string, sub *domain.WebPushSubscription) error {
	var payload any
	if sub != nil {
		encoded, err := json.Marshal(sub)
		if err != nil {
			return err
		}
		payload = encoded
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE agents SET web_push_sub=$1, updated_at=NOW() WHERE id=$2`, payload, agentID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *agentRepository) SetAvailability(ctx context.Context, agentID string, available bool) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE agents SET is_available=$1, updated_at=NOW() WHERE id=$2`, available, agentID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *agentRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Agent, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	return scanAgent(row)
}

func (r *agentRepository) list(ctx context.Context, query string) ([]domain.Agent, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *agent)
	}
	return result, rows.Err()
}

func scanAgent(row pgx.Row) (*domain.Agent, error) {
	var agent domain.Agent
	var rawSub []byte
	if err := row.Scan(
		&agent.ID,
		&agent.Email,
		&agent.Name,
		&agent.Role,
		&agent.PasswordHash,
		&agent.IsAvailable,
		&agent.PushToken,
		&rawSub,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(rawSub) > 0 {
		var sub domain.WebPushSubscription
		if err := json.Unmarshal(rawSub, &sub); err == nil {
			agent.WebPushSub = &sub
		}
	}
	return &agent, nil
}
