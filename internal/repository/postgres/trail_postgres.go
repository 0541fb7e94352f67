package postgres

import (
	"context"
	"database/sql"

	"auditflow/internal/model"
	"auditflow/internal/repository"
)

// TrailPostgres appends to the audit_trail table. The table is
// append-only; the core never reads it.
type TrailPostgres struct {
	db *sql.DB
}

// NewTrailPostgres creates a new TrailPostgres repository.
func NewTrailPostgres(db *sql.DB) *TrailPostgres {
	return &TrailPostgres{db: db}
}

var _ repository.TrailRepository = (*TrailPostgres)(nil)

// Append writes one trail entry.
func (r *TrailPostgres) Append(ctx context.Context, entry *model.TrailEntry) error {
	const q = `
		INSERT INTO audit_trail (audit_id, actor_id, action, detail, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, q,
		entry.AuditID,
		nullableID(entry.ActorID),
		entry.Action,
		entry.Detail,
		entry.CreatedAt,
	)
	return err
}
