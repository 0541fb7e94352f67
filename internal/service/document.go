package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"

	"auditflow/internal/apperrors"
	"auditflow/internal/model"
	"auditflow/internal/progress"
	"auditflow/internal/repository"
	"auditflow/internal/storage"
)

// DefaultMaxUploadSize is the per-file ceiling when config does not
// override it.
const DefaultMaxUploadSize = 200 << 20 // 200 MiB

// filenamePattern is the allowed character set for original filenames.
var filenamePattern = regexp.MustCompile(`^[A-Za-z0-9._ -]+$`)

// IngestFile is one file of an ingestion batch. Reader is consumed
// exactly once, streamed to storage while the content hash accumulates.
type IngestFile struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
}

// FileError is a per-file rejection carried inside a successful batch
// response.
type FileError struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// IngestResult summarizes one ingestion batch.
type IngestResult struct {
	SavedCount int                    `json:"saved_count"`
	Saved      []model.Document       `json:"saved"`
	Updated    []model.Document       `json:"updated"`
	Errors     []FileError            `json:"errors"`
	Progress   model.ProgressSnapshot `json:"progress"`
}

// SectionDocuments is one group of the per-section document listing.
type SectionDocuments struct {
	Section   model.TechnicalSection `json:"section"`
	Documents []model.Document       `json:"documents"`
}

// PermissionChecker answers whether an actor may manage documents of an
// audit. The decision itself belongs to an external collaborator.
type PermissionChecker interface {
	CanManage(ctx context.Context, actorID, auditID int64) (bool, error)
}

// LifecycleChecker triggers the automatic transition checks after an
// ingestion batch. AuditService satisfies it.
type LifecycleChecker interface {
	CheckStartLoading(ctx context.Context, auditID int64) error
	CheckLoadingComplete(ctx context.Context, auditID int64) error
}

// DocumentService is the evidence ingestion pipeline.
type DocumentService interface {
	// Ingest validates, deduplicates and persists a batch of uploads.
	// Per-file failures are collected, not fatal to the batch.
	Ingest(ctx context.Context, auditID, sectionID int64, files []IngestFile, notes string, actorID *int64) (*IngestResult, error)

	// Remove deletes a document: best-effort backup copy and physical
	// delete, then the database row.
	Remove(ctx context.Context, documentID, actorID int64) error

	// List returns the audit's documents grouped by section, newest first.
	List(ctx context.Context, auditID int64) ([]SectionDocuments, error)
}

// DocumentConfig carries the ingestion policy knobs.
type DocumentConfig struct {
	MaxUploadSize int64
	DedupScope    repository.DedupScope
	BackupPrefix  string
}

type documentService struct {
	store     storage.Storage
	documents repository.DocumentRepository
	audits    repository.AuditRepository
	sections  repository.SectionRepository
	trail     repository.TrailRepository
	authz     PermissionChecker
	lifecycle LifecycleChecker
	logger    *slog.Logger
	metrics   *Metrics
	cfg       DocumentConfig
}

// NewDocumentService constructs the ingestion pipeline.
func NewDocumentService(
	store storage.Storage,
	documents repository.DocumentRepository,
	audits repository.AuditRepository,
	sections repository.SectionRepository,
	trail repository.TrailRepository,
	authz PermissionChecker,
	lifecycle LifecycleChecker,
	logger *slog.Logger,
	metrics *Metrics,
	cfg DocumentConfig,
) DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}
	if cfg.BackupPrefix == "" {
		cfg.BackupPrefix = "backup"
	}
	if cfg.DedupScope == "" {
		cfg.DedupScope = repository.DedupGlobal
	}
	return &documentService{
		store:     store,
		documents: documents,
		audits:    audits,
		sections:  sections,
		trail:     trail,
		authz:     authz,
		lifecycle: lifecycle,
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg,
	}
}

func (s *documentService) Ingest(ctx context.Context, auditID, sectionID int64, files []IngestFile, notes string, actorID *int64) (*IngestResult, error) {
	if _, err := s.audits.FindByID(ctx, auditID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("audit", auditID)
		}
		return nil, err
	}
	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("section", sectionID)
		}
		return nil, err
	}
	if !section.Active {
		// Inactive sections no longer accept evidence.
		return nil, apperrors.NewNotFound("section", sectionID)
	}

	result := &IngestResult{
		Saved:   make([]model.Document, 0, len(files)),
		Updated: make([]model.Document, 0),
		Errors:  make([]FileError, 0),
	}

	for i := range files {
		f := &files[i]
		if reason := s.validateFile(f); reason != "" {
			result.Errors = append(result.Errors, FileError{Filename: f.Filename, Reason: reason})
			continue
		}
		if err := s.ingestOne(ctx, auditID, sectionID, f, notes, actorID, result); err != nil {
			result.Errors = append(result.Errors, FileError{Filename: f.Filename, Reason: err.Error()})
		}
	}
	result.SavedCount = len(result.Saved) + len(result.Updated)

	// Automatic transition checks are best-effort: their failure never
	// fails an ingestion that already persisted documents.
	if result.SavedCount > 0 {
		if err := s.lifecycle.CheckStartLoading(ctx, auditID); err != nil {
			s.logger.Error("start-loading check failed", "audit_id", auditID, "error", err)
		}
		if err := s.lifecycle.CheckLoadingComplete(ctx, auditID); err != nil {
			s.logger.Error("loading-complete check failed", "audit_id", auditID, "error", err)
		}
	}

	// The batch outcome is already committed; a failed snapshot must not
	// swallow the saved/updated report.
	snapshot, err := s.snapshot(ctx, auditID)
	if err != nil {
		s.logger.Error("progress snapshot failed", "audit_id", auditID, "error", err)
		return result, nil
	}
	result.Progress = snapshot
	return result, nil
}

func (s *documentService) validateFile(f *IngestFile) string {
	switch {
	case f.Size == 0:
		return "file is empty"
	case f.Size > s.cfg.MaxUploadSize:
		return fmt.Sprintf("file exceeds the %d byte limit", s.cfg.MaxUploadSize)
	case !filenamePattern.MatchString(f.Filename):
		return "filename contains characters outside [A-Za-z0-9._ -]"
	}
	return ""
}

// ingestOne streams the file to storage while hashing, then commits the
// metadata under the per-hash lock held by the repository. Storage I/O
// deliberately happens before any database lock is taken.
func (s *documentService) ingestOne(ctx context.Context, auditID, sectionID int64, f *IngestFile, notes string, actorID *int64, result *IngestResult) error {
	ext := filepath.Ext(f.Filename)
	storedName := uuid.New().String() + ext
	key := fmt.Sprintf("audits/%d/sections/%d/%s", auditID, sectionID, storedName)

	hasher := sha256.New()
	tee := io.TeeReader(f.Reader, hasher)
	if _, err := s.store.Put(ctx, key, tee, storage.PutObjectOptions{
		Size:        f.Size,
		ContentType: f.ContentType,
		Metadata:    map[string]string{"original-filename": f.Filename},
	}); err != nil {
		return &apperrors.StorageError{Op: "put", Key: key, Err: err}
	}
	hash := hex.EncodeToString(hasher.Sum(nil))

	now := time.Now().UTC()
	doc := &model.Document{
		AuditID:          auditID,
		SectionID:        sectionID,
		StoredFilename:   storedName,
		OriginalFilename: f.Filename,
		FileType:         f.ContentType,
		SizeBytes:        f.Size,
		StoragePath:      key,
		ContentHash:      hash,
		Version:          1,
		Notes:            notes,
		UploadedBy:       actorID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	upserted, err := s.documents.Upsert(ctx, doc, s.cfg.DedupScope)
	if err != nil {
		// Metadata commit failed; drop the orphaned object.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Error("orphan cleanup failed", "key", key, "error", delErr)
		}
		return err
	}

	if upserted.Created {
		result.Saved = append(result.Saved, *upserted.Document)
		s.appendTrail(ctx, auditID, actorID, model.TrailActionDocumentSaved,
			fmt.Sprintf("section %d: %s (%s)", sectionID, f.Filename, hash))
		return nil
	}

	// Duplicate content: the existing row got a version bump, the
	// freshly staged object is redundant.
	s.metrics.observeDedupHit()
	if delErr := s.store.Delete(ctx, key); delErr != nil {
		s.logger.Error("duplicate object cleanup failed", "key", key, "error", delErr)
	}
	result.Updated = append(result.Updated, *upserted.Document)
	s.appendTrail(ctx, auditID, actorID, model.TrailActionDocumentUpdate,
		fmt.Sprintf("section %d: %s -> version %d", sectionID, f.Filename, upserted.Document.Version))
	return nil
}

func (s *documentService) Remove(ctx context.Context, documentID, actorID int64) error {
	doc, err := s.documents.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFound("document", documentID)
		}
		return err
	}

	allowed, err := s.authz.CanManage(ctx, actorID, doc.AuditID)
	if err != nil {
		return err
	}
	if !allowed {
		return &apperrors.PermissionError{ActorID: actorID, AuditID: doc.AuditID}
	}

	// Backup copy and physical delete are best-effort; only the row
	// delete decides the outcome.
	backupKey := path.Join(s.cfg.BackupPrefix, doc.StoragePath)
	if err := s.store.Copy(ctx, doc.StoragePath, backupKey); err != nil {
		s.logger.Error("backup copy failed", "document_id", documentID, "key", doc.StoragePath, "error", err)
	}
	if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
		s.logger.Error("object delete failed", "document_id", documentID, "key", doc.StoragePath, "error", err)
	}

	if err := s.documents.Delete(ctx, documentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFound("document", documentID)
		}
		return err
	}

	s.appendTrail(ctx, doc.AuditID, &actorID, model.TrailActionDocumentRemove,
		fmt.Sprintf("document %d (%s) removed", documentID, doc.OriginalFilename))
	return nil
}

func (s *documentService) List(ctx context.Context, auditID int64) ([]SectionDocuments, error) {
	if _, err := s.audits.FindByID(ctx, auditID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("audit", auditID)
		}
		return nil, err
	}

	sections, err := s.sections.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := s.documents.ListByAudit(ctx, auditID)
	if err != nil {
		return nil, err
	}

	bySection := make(map[int64][]model.Document)
	for _, d := range docs {
		bySection[d.SectionID] = append(bySection[d.SectionID], d)
	}

	// Groups follow the catalog order; ListByAudit already sorts each
	// group newest first.
	groups := make([]SectionDocuments, 0, len(sections))
	for _, sec := range sections {
		if members, ok := bySection[sec.ID]; ok {
			groups = append(groups, SectionDocuments{Section: sec, Documents: members})
			delete(bySection, sec.ID)
		}
	}

	// Documents keep their section assignment even after the section is
	// deactivated; those groups trail the active catalog.
	if len(bySection) > 0 {
		leftover := make([]int64, 0, len(bySection))
		for id := range bySection {
			leftover = append(leftover, id)
		}
		sort.Slice(leftover, func(i, j int) bool { return leftover[i] < leftover[j] })
		for _, id := range leftover {
			sec, err := s.sections.FindByID(ctx, id)
			if err != nil {
				return nil, err
			}
			groups = append(groups, SectionDocuments{Section: *sec, Documents: bySection[id]})
		}
	}
	return groups, nil
}

func (s *documentService) snapshot(ctx context.Context, auditID int64) (model.ProgressSnapshot, error) {
	sections, err := s.sections.ListActive(ctx)
	if err != nil {
		return model.ProgressSnapshot{}, err
	}
	ids, err := s.documents.CoveredSectionIDs(ctx, auditID)
	if err != nil {
		return model.ProgressSnapshot{}, err
	}
	covered := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		covered[id] = struct{}{}
	}
	return progress.Compute(sections, covered), nil
}

func (s *documentService) appendTrail(ctx context.Context, auditID int64, actorID *int64, action, detail string) {
	entry := &model.TrailEntry{
		AuditID:   auditID,
		ActorID:   actorID,
		Action:    action,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.trail.Append(ctx, entry); err != nil {
		s.logger.Error("audit trail write failed", "audit_id", auditID, "action", action, "error", err)
	}
}
