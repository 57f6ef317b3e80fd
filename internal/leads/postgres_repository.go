package leads

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the pgxpool surface the repository needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// Upsert inserts or refreshes a lead keyed by its CRM contact ID.
func (r *PostgresRepository) Upsert(ctx context.Context, lead *Lead) error {
	if err := lead.Validate(); err != nil {
		return err
	}

	status := lead.CallStatus
	if status == "" {
		status = CallStatusPending
	}

	query := `
		INSERT INTO leads (id, first_name, last_name, phone, email, source, dnc_listed, call_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			source = EXCLUDED.source,
			dnc_listed = EXCLUDED.dnc_listed,
			updated_at = now()
	`
	if _, err := r.pool.Exec(ctx, query,
		lead.ID,
		lead.FirstName,
		lead.LastName,
		lead.Phone,
		lead.Email,
		lead.Source,
		lead.DNCListed,
		status,
	); err != nil {
		return fmt.Errorf("leads: upsert failed: %w", err)
	}
	return nil
}

// GetByID fetches a lead by its CRM contact ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	query := `
		SELECT id, first_name, last_name, phone, email, source, dnc_listed, call_status,
			COALESCE(call_sid, ''), created_at, updated_at
		FROM leads
		WHERE id = $1
	`
	row := r.pool.QueryRow(ctx, query, id)
	var lead Lead
	if err := row.Scan(
		&lead.ID,
		&lead.FirstName,
		&lead.LastName,
		&lead.Phone,
		&lead.Email,
		&lead.Source,
		&lead.DNCListed,
		&lead.CallStatus,
		&lead.CallSID,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return &lead, nil
}

// UpdateCallStatus records the latest dial attempt for a lead.
func (r *PostgresRepository) UpdateCallStatus(ctx context.Context, id, callSID, status string) error {
	query := `
		UPDATE leads
		SET call_status = $2,
			call_sid = COALESCE(NULLIF($3, ''), call_sid),
			updated_at = now()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, status, callSID)
	if err != nil {
		return fmt.Errorf("leads: status update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}
