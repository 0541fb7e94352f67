package postgres

import (
	"context"
	"database/sql"

	"auditflow/internal/model"
	"auditflow/internal/repository"
)

// SectionPostgres reads the technical-section catalog from PostgreSQL.
type SectionPostgres struct {
	db *sql.DB
}

// NewSectionPostgres creates a new SectionPostgres repository.
func NewSectionPostgres(db *sql.DB) *SectionPostgres {
	return &SectionPostgres{db: db}
}

var _ repository.SectionRepository = (*SectionPostgres)(nil)

const sectionColumns = `id, code, name, mandatory, active`

// FindByID fetches a single section by its ID.
func (r *SectionPostgres) FindByID(ctx context.Context, id int64) (*model.TechnicalSection, error) {
	const q = `
		SELECT ` + sectionColumns + `
		FROM technical_sections
		WHERE id = $1
	`
	var s model.TechnicalSection
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.Code, &s.Name, &s.Mandatory, &s.Active); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListActive returns every active section ordered by code.
func (r *SectionPostgres) ListActive(ctx context.Context) ([]model.TechnicalSection, error) {
	const q = `
		SELECT ` + sectionColumns + `
		FROM technical_sections
		WHERE active
		ORDER BY code ASC
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sections := make([]model.TechnicalSection, 0)
	for rows.Next() {
		var s model.TechnicalSection
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.Mandatory, &s.Active); err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}
