package postgres

import (
	"context"
	"database/sql"
	"time"

	"auditflow/internal/model"
	"auditflow/internal/repository"
)

// AuditPostgres is a PostgreSQL implementation of repository.AuditRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type AuditPostgres struct {
	db *sql.DB
}

// NewAuditPostgres creates a new AuditPostgres repository.
func NewAuditPostgres(db *sql.DB) *AuditPostgres {
	return &AuditPostgres{db: db}
}

var _ repository.AuditRepository = (*AuditPostgres)(nil)

const auditColumns = `id, site_id, period_code, state, upload_deadline, scheduled_visit, created_at, updated_at`

func scanAudit(row interface{ Scan(dest ...any) error }) (*model.Audit, error) {
	var a model.Audit
	if err := row.Scan(
		&a.ID,
		&a.SiteID,
		&a.PeriodCode,
		&a.State,
		&a.UploadDeadline,
		&a.ScheduledVisit,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByID fetches a single audit by its ID.
func (r *AuditPostgres) FindByID(ctx context.Context, id int64) (*model.Audit, error) {
	const q = `
		SELECT ` + auditColumns + `
		FROM audits
		WHERE id = $1
	`
	return scanAudit(r.db.QueryRowContext(ctx, q, id))
}

// UpdateState writes the new state only when the current state still
// matches expected. Zero rows affected means the guard missed.
func (r *AuditPostgres) UpdateState(ctx context.Context, id int64, expected, next model.AuditState, at time.Time) (bool, error) {
	const q = `
		UPDATE audits
		SET state = $1, updated_at = $2
		WHERE id = $3 AND state = $4
	`
	res, err := r.db.ExecContext(ctx, q, next, at, id, expected)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListDeadlinePassed returns audits past their upload deadline in one of
// the given states, oldest deadline first.
func (r *AuditPostgres) ListDeadlinePassed(ctx context.Context, before time.Time, states []model.AuditState) ([]model.Audit, error) {
	const q = `
		SELECT ` + auditColumns + `
		FROM audits
		WHERE upload_deadline < $1 AND state = ANY($2::text[])
		ORDER BY upload_deadline ASC
	`
	raw := make([]string, len(states))
	for i, s := range states {
		raw[i] = string(s)
	}
	rows, err := r.db.QueryContext(ctx, q, before, pgTextArray(raw))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	audits := make([]model.Audit, 0)
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		audits = append(audits, *a)
	}
	return audits, rows.Err()
}

// CountByState returns per-state counts; a non-zero since restricts the
// count to audits created at or after it.
func (r *AuditPostgres) CountByState(ctx context.Context, since time.Time) (map[model.AuditState]int, error) {
	const qAll = `SELECT state, COUNT(*) FROM audits GROUP BY state`
	const qSince = `SELECT state, COUNT(*) FROM audits WHERE created_at >= $1 GROUP BY state`

	var rows *sql.Rows
	var err error
	if since.IsZero() {
		rows, err = r.db.QueryContext(ctx, qAll)
	} else {
		rows, err = r.db.QueryContext(ctx, qSince, since)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.AuditState]int)
	for rows.Next() {
		var state model.AuditState
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		counts[state] = n
	}
	return counts, rows.Err()
}
