package postgres

import (
	"context"
	"database/sql"
	"errors"

	"auditflow/internal/model"
	"auditflow/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, audit_id, section_id, stored_filename, original_filename, file_type, size_bytes, storage_path, content_hash, version, notes, uploaded_by, created_at, updated_at`

func scanDocument(row interface{ Scan(dest ...any) error }) (*model.Document, error) {
	var d model.Document
	var uploadedBy sql.NullInt64
	if err := row.Scan(
		&d.ID,
		&d.AuditID,
		&d.SectionID,
		&d.StoredFilename,
		&d.OriginalFilename,
		&d.FileType,
		&d.SizeBytes,
		&d.StoragePath,
		&d.ContentHash,
		&d.Version,
		&d.Notes,
		&uploadedBy,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if uploadedBy.Valid {
		d.UploadedBy = &uploadedBy.Int64
	}
	return &d, nil
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id int64) (*model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE id = $1
	`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// Upsert inserts the document or bumps the version of the row already
// holding the same content hash. A transaction-scoped advisory lock on
// the hash serializes concurrent identical uploads; the unique
// constraint on (audit_id, content_hash) backs the insert as a fallback
// update path should anything slip past the lock.
func (r *DocumentPostgres) Upsert(ctx context.Context, doc *model.Document, scope repository.DedupScope) (*repository.UpsertResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, doc.ContentHash); err != nil {
		return nil, err
	}

	existing, err := findByHashTx(ctx, tx, doc, scope)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var stored *model.Document
	created := false
	if existing != nil {
		const qBump = `
			UPDATE documents
			SET version = version + 1, notes = $2, updated_at = $3
			WHERE id = $1
			RETURNING ` + documentColumns + `
		`
		stored, err = scanDocument(tx.QueryRowContext(ctx, qBump, existing.ID, doc.Notes, doc.UpdatedAt))
	} else {
		const qInsert = `
			INSERT INTO documents
				(audit_id, section_id, stored_filename, original_filename, file_type, size_bytes, storage_path, content_hash, version, notes, uploaded_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $10, $11, $11)
			ON CONFLICT (audit_id, content_hash) DO UPDATE
				SET version = documents.version + 1, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at
			RETURNING ` + documentColumns + `, (xmax = 0) AS inserted
		`
		stored, created, err = scanDocumentInserted(tx.QueryRowContext(ctx, qInsert,
			doc.AuditID,
			doc.SectionID,
			doc.StoredFilename,
			doc.OriginalFilename,
			doc.FileType,
			doc.SizeBytes,
			doc.StoragePath,
			doc.ContentHash,
			doc.Notes,
			nullableID(doc.UploadedBy),
			doc.CreatedAt,
		))
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &repository.UpsertResult{Document: stored, Created: created}, nil
}

func findByHashTx(ctx context.Context, tx *sql.Tx, doc *model.Document, scope repository.DedupScope) (*model.Document, error) {
	if scope == repository.DedupPerAudit {
		const q = `
			SELECT ` + documentColumns + `
			FROM documents
			WHERE content_hash = $1 AND audit_id = $2
			LIMIT 1
		`
		return scanDocument(tx.QueryRowContext(ctx, q, doc.ContentHash, doc.AuditID))
	}
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE content_hash = $1
		LIMIT 1
	`
	return scanDocument(tx.QueryRowContext(ctx, q, doc.ContentHash))
}

func scanDocumentInserted(row interface{ Scan(dest ...any) error }) (*model.Document, bool, error) {
	var d model.Document
	var uploadedBy sql.NullInt64
	var inserted bool
	if err := row.Scan(
		&d.ID,
		&d.AuditID,
		&d.SectionID,
		&d.StoredFilename,
		&d.OriginalFilename,
		&d.FileType,
		&d.SizeBytes,
		&d.StoragePath,
		&d.ContentHash,
		&d.Version,
		&d.Notes,
		&uploadedBy,
		&d.CreatedAt,
		&d.UpdatedAt,
		&inserted,
	); err != nil {
		return nil, false, err
	}
	if uploadedBy.Valid {
		d.UploadedBy = &uploadedBy.Int64
	}
	return &d, inserted, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// ListByAudit returns all documents of an audit, newest first.
func (r *DocumentPostgres) ListByAudit(ctx context.Context, auditID int64) ([]model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE audit_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, q, auditID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// CountByAudit returns the number of documents attached to an audit.
func (r *DocumentPostgres) CountByAudit(ctx context.Context, auditID int64) (int, error) {
	const q = `SELECT COUNT(*) FROM documents WHERE audit_id = $1`
	var n int
	if err := r.db.QueryRowContext(ctx, q, auditID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CoveredSectionIDs returns the distinct section ids with at least one
// document for the audit.
func (r *DocumentPostgres) CoveredSectionIDs(ctx context.Context, auditID int64) ([]int64, error) {
	const q = `SELECT DISTINCT section_id FROM documents WHERE audit_id = $1`
	rows, err := r.db.QueryContext(ctx, q, auditID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes a document row by ID.
func (r *DocumentPostgres) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM documents WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
