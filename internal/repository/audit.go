package repository

import (
	"context"
	"time"

	"auditflow/internal/model"
)

// AuditRepository defines persistence operations for audits.
// Missing rows surface as sql.ErrNoRows; the service layer maps them
// to the error taxonomy.
type AuditRepository interface {
	// FindByID returns a single audit by its ID.
	FindByID(ctx context.Context, id int64) (*model.Audit, error)

	// UpdateState performs a compare-and-set write: the state column is
	// changed to next only if it still equals expected. It reports false
	// when the guard missed (row gone or concurrently mutated).
	UpdateState(ctx context.Context, id int64, expected, next model.AuditState, at time.Time) (bool, error)

	// ListDeadlinePassed returns audits whose upload deadline is before
	// the given instant and whose state is one of states.
	ListDeadlinePassed(ctx context.Context, before time.Time, states []model.AuditState) ([]model.Audit, error)

	// CountByState returns per-state audit counts; when since is non-zero
	// only audits created at or after it are counted.
	CountByState(ctx context.Context, since time.Time) (map[model.AuditState]int, error)
}
