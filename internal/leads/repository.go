package leads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/perfiamatic/audit-flash/internal/audit"
	"github.com/perfiamatic/audit-flash/internal/platform/db"
)

// Repository persists leads in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository wrapper.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const schema = `CREATE TABLE IF NOT EXISTS audit_leads (
	id UUID PRIMARY KEY,
	clinic_name TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	average_revenue NUMERIC(10,2) NOT NULL,
	status TEXT NOT NULL,
	no_show_rate DOUBLE PRECISION,
	error_message TEXT NOT NULL DEFAULT '',
	report_path TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
)`

const schemaIndex = `CREATE INDEX IF NOT EXISTS audit_leads_created_idx ON audit_leads (created_at DESC)`

// EnsureSchema creates the table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("leads: repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, stmt := range []string{schema, schemaIndex} {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("leads: ensure schema: %w", err)
			}
		}
		return nil
	})
}

// Insert stores a new lead. Inserting an existing ID is a no-op.
func (r *Repository) Insert(ctx context.Context, lead Lead) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("leads: repository not initialised")
	}
	const query = `INSERT INTO audit_leads (id, clinic_name, email, average_revenue, status, created_at)
VALUES ($1::uuid, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, lead.ID.String(), lead.ClinicName, lead.Email, lead.AverageRevenue, string(lead.Status), lead.CreatedAt)
	return err
}

// Complete records the analysis result on a lead.
func (r *Repository) Complete(ctx context.Context, lead Lead) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("leads: repository not initialised")
	}
	const query = `UPDATE audit_leads
SET status = $2, no_show_rate = $3, error_message = $4, completed_at = $5
WHERE id = $1::uuid`
	tag, err := r.pool.Exec(ctx, query, lead.ID.String(), string(lead.Status), lead.NoShowRate, lead.ErrorMessage, lead.CompletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetReportPath stores where the archived PDF lives.
func (r *Repository) SetReportPath(ctx context.Context, id uuid.UUID, path string) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("leads: repository not initialised")
	}
	tag, err := r.pool.Exec(ctx, `UPDATE audit_leads SET report_path = $2 WHERE id = $1::uuid`, id.String(), path)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get loads a lead by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Lead, error) {
	if r == nil || r.pool == nil {
		return Lead{}, fmt.Errorf("leads: repository not initialised")
	}
	lead, err := scanLead(r.pool.QueryRow(ctx, selectLeads+` WHERE id = $1::uuid`, id.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, err
	}
	return lead, nil
}

// List returns the most recent leads first.
func (r *Repository) List(ctx context.Context, limit int) ([]Lead, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("leads: repository not initialised")
	}
	rows, err := r.pool.Query(ctx, selectLeads+` ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lead)
	}
	return out, rows.Err()
}

const selectLeads = `SELECT id::text, clinic_name, email, average_revenue::float8, status, no_show_rate,
error_message, report_path, created_at, completed_at
FROM audit_leads`

func scanLead(row pgx.Row) (Lead, error) {
	var (
		lead      Lead
		id        string
		status    string
		completed *time.Time
	)
	if err := row.Scan(&id, &lead.ClinicName, &lead.Email, &lead.AverageRevenue, &status, &lead.NoShowRate,
		&lead.ErrorMessage, &lead.ReportPath, &lead.CreatedAt, &completed); err != nil {
		return Lead{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Lead{}, err
	}
	lead.ID = parsed
	lead.Status = audit.Status(status)
	lead.CompletedAt = completed
	return lead, nil
}
