package repository

import (
	"context"

	"auditflow/internal/model"
)

// UpsertResult reports what happened to an ingested document row.
type UpsertResult struct {
	Document *model.Document
	// Created is true when a new row was inserted; false when an existing
	// row with the same content hash had its version bumped instead.
	Created bool
}

// DocumentRepository defines persistence operations for evidence
// documents.
type DocumentRepository interface {
	// FindByID returns a single document by its ID.
	FindByID(ctx context.Context, id int64) (*model.Document, error)

	// Upsert inserts doc, or bumps the version and refreshes notes and
	// timestamp of the row already holding the same content hash. The
	// check-then-write sequence is serialized per hash so concurrent
	// identical uploads never produce two rows. Scope decides whether
	// the hash lookup spans the whole store or only doc's audit.
	Upsert(ctx context.Context, doc *model.Document, scope DedupScope) (*UpsertResult, error)

	// ListByAudit returns all documents of an audit, newest first.
	ListByAudit(ctx context.Context, auditID int64) ([]model.Document, error)

	// CountByAudit returns the number of documents attached to an audit.
	CountByAudit(ctx context.Context, auditID int64) (int, error)

	// CoveredSectionIDs returns the distinct section ids of an audit that
	// have at least one document.
	CoveredSectionIDs(ctx context.Context, auditID int64) ([]int64, error)

	// Delete removes a document row by ID.
	Delete(ctx context.Context, id int64) error
}

// SectionRepository reads the technical-section catalog. The catalog is
// owned by an external collaborator; the core only consumes it.
type SectionRepository interface {
	// FindByID returns a section by its ID.
	FindByID(ctx context.Context, id int64) (*model.TechnicalSection, error)

	// ListActive returns every active section.
	ListActive(ctx context.Context) ([]model.TechnicalSection, error)
}

// TrailRepository appends to the external audit-trail sink. Entries are
// never read back by the core.
type TrailRepository interface {
	Append(ctx context.Context, entry *model.TrailEntry) error
}
