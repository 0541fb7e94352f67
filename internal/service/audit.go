package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"auditflow/internal/apperrors"
	"auditflow/internal/event"
	"auditflow/internal/model"
	"auditflow/internal/progress"
	"auditflow/internal/repository"
)

// SweepEmptyPolicy decides what the deadline sweep does with audits that
// have zero documents: leave them untouched, or emit a deadline event
// without transitioning.
type SweepEmptyPolicy string

const (
	SweepEmptyHold   SweepEmptyPolicy = "hold"
	SweepEmptyNotify SweepEmptyPolicy = "notify"
)

// systemReason prefixes reasons for transitions the machine performs on
// its own rather than on an actor's request.
const (
	reasonFirstEvidence    = "automatic: first evidence document received"
	reasonMandatoryCovered = "automatic: all mandatory sections covered"
	reasonDeadlinePassed   = "automatic: upload deadline passed"
)

// AuditService owns the lifecycle state machine.
type AuditService interface {
	// ChangeState moves an audit to newState if the transition table
	// allows it, then fires best-effort side effects.
	ChangeState(ctx context.Context, auditID int64, newState model.AuditState, reason string, actorID *int64) (*model.Audit, error)

	// CheckStartLoading moves a programmed audit with at least one
	// document into loading. No-op in any other state.
	CheckStartLoading(ctx context.Context, auditID int64) error

	// CheckLoadingComplete moves a loading audit into pending_evaluation
	// once every active mandatory section has a document. No-op otherwise.
	CheckLoadingComplete(ctx context.Context, auditID int64) error

	// RunScheduledChecks sweeps audits past their upload deadline.
	RunScheduledChecks(ctx context.Context) (*model.SweepResult, error)

	// GetMetrics returns per-state audit counts.
	GetMetrics(ctx context.Context) (*model.StateMetrics, error)

	// GetProgress returns the coarse state percentage and the
	// fine-grained section snapshot for one audit.
	GetProgress(ctx context.Context, auditID int64) (*model.AuditProgress, error)
}

type auditService struct {
	audits     repository.AuditRepository
	documents  repository.DocumentRepository
	sections   repository.SectionRepository
	trail      repository.TrailRepository
	dispatcher *event.Dispatcher
	logger     *slog.Logger
	metrics    *Metrics

	sweepEmptyPolicy SweepEmptyPolicy

	// hooks holds the per-new-state side effects, keyed by destination
	// state so the table stays exhaustive over the state set.
	hooks map[model.AuditState]func(ctx context.Context, audit *model.Audit, ev event.StateChange)
}

// NewAuditService constructs the state machine service.
func NewAuditService(
	audits repository.AuditRepository,
	documents repository.DocumentRepository,
	sections repository.SectionRepository,
	trail repository.TrailRepository,
	dispatcher *event.Dispatcher,
	logger *slog.Logger,
	metrics *Metrics,
	sweepEmptyPolicy SweepEmptyPolicy,
) AuditService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &auditService{
		audits:           audits,
		documents:        documents,
		sections:         sections,
		trail:            trail,
		dispatcher:       dispatcher,
		logger:           logger,
		metrics:          metrics,
		sweepEmptyPolicy: sweepEmptyPolicy,
	}
	s.hooks = map[model.AuditState]func(context.Context, *model.Audit, event.StateChange){
		model.StateProgrammed:        nil,
		model.StateLoading:           s.onLoading,
		model.StatePendingEvaluation: s.onPendingEvaluation,
		model.StateEvaluated:         nil,
		model.StateClosed:            s.onClosed,
	}
	return s
}

func (s *auditService) ChangeState(ctx context.Context, auditID int64, newState model.AuditState, reason string, actorID *int64) (*model.Audit, error) {
	audit, err := s.audits.FindByID(ctx, auditID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("audit", auditID)
		}
		return nil, err
	}

	if !model.IsValidTransition(audit.State, newState) {
		return nil, &apperrors.InvalidTransitionError{From: string(audit.State), To: string(newState)}
	}

	now := time.Now().UTC()
	ok, err := s.audits.UpdateState(ctx, auditID, audit.State, newState, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Someone moved the audit between our read and write.
		return nil, &apperrors.ConflictError{Resource: "audit", ID: auditID}
	}
	s.metrics.observeTransition(string(audit.State), string(newState))

	if actorID != nil {
		entry := &model.TrailEntry{
			AuditID:   auditID,
			ActorID:   actorID,
			Action:    model.TrailActionStateChange,
			Detail:    fmt.Sprintf("%s -> %s: %s", audit.State, newState, reason),
			CreatedAt: now,
		}
		if err := s.trail.Append(ctx, entry); err != nil {
			s.logger.Error("audit trail write failed", "audit_id", auditID, "error", err)
		}
	}

	ev := event.StateChange{
		AuditID:   auditID,
		OldState:  audit.State,
		NewState:  newState,
		Reason:    reason,
		Timestamp: now,
	}
	s.dispatcher.StateChanged(ev)
	if hook := s.hooks[newState]; hook != nil {
		hook(ctx, audit, ev)
	}

	updated := *audit
	updated.State = newState
	updated.UpdatedAt = now
	return &updated, nil
}

func (s *auditService) onLoading(ctx context.Context, audit *model.Audit, ev event.StateChange) {
	s.logger.Info("audit entered loading", "audit_id", audit.ID, "period", audit.PeriodCode)
}

func (s *auditService) onPendingEvaluation(ctx context.Context, audit *model.Audit, ev event.StateChange) {
	s.logger.Info("audit ready for evaluation", "audit_id", audit.ID, "period", audit.PeriodCode)
}

func (s *auditService) onClosed(ctx context.Context, audit *model.Audit, ev event.StateChange) {
	s.logger.Info("audit closed", "audit_id", audit.ID, "period", audit.PeriodCode)
}

func (s *auditService) CheckStartLoading(ctx context.Context, auditID int64) error {
	audit, err := s.audits.FindByID(ctx, auditID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFound("audit", auditID)
		}
		return err
	}
	if audit.State != model.StateProgrammed {
		return nil
	}

	count, err := s.documents.CountByAudit(ctx, auditID)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	_, err = s.ChangeState(ctx, auditID, model.StateLoading, reasonFirstEvidence, nil)
	return err
}

func (s *auditService) CheckLoadingComplete(ctx context.Context, auditID int64) error {
	audit, err := s.audits.FindByID(ctx, auditID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFound("audit", auditID)
		}
		return err
	}
	if audit.State != model.StateLoading {
		return nil
	}

	sections, err := s.sections.ListActive(ctx)
	if err != nil {
		return err
	}
	covered, err := s.coveredSet(ctx, auditID)
	if err != nil {
		return err
	}

	for _, sec := range sections {
		if !sec.Mandatory {
			continue
		}
		if _, ok := covered[sec.ID]; !ok {
			return nil
		}
	}

	_, err = s.ChangeState(ctx, auditID, model.StatePendingEvaluation, reasonMandatoryCovered, nil)
	return err
}

func (s *auditService) RunScheduledChecks(ctx context.Context) (*model.SweepResult, error) {
	now := time.Now().UTC()
	overdue, err := s.audits.ListDeadlinePassed(ctx, now, []model.AuditState{model.StateProgrammed, model.StateLoading})
	if err != nil {
		return nil, err
	}

	result := &model.SweepResult{Timestamp: now}
	for i := range overdue {
		audit := overdue[i]
		transitions, err := s.sweepOne(ctx, &audit)
		if err != nil {
			// One bad audit never halts the sweep over the rest.
			result.Failures++
			s.logger.Error("deadline sweep failed for audit", "audit_id", audit.ID, "error", err)
			continue
		}
		result.TransitionsCount += transitions
	}
	return result, nil
}

// sweepOne handles a single overdue audit and returns the number of
// transitions it performed.
func (s *auditService) sweepOne(ctx context.Context, audit *model.Audit) (int, error) {
	count, err := s.documents.CountByAudit(ctx, audit.ID)
	if err != nil {
		return 0, err
	}

	if count == 0 {
		if s.sweepEmptyPolicy == SweepEmptyNotify {
			s.dispatcher.DeadlineReached(event.DeadlinePassed{
				AuditID:       audit.ID,
				State:         audit.State,
				Deadline:      audit.UploadDeadline,
				DocumentCount: 0,
				Transitioned:  false,
			})
		}
		return 0, nil
	}

	// The table has no programmed -> pending_evaluation edge, so audits
	// still in programmed pass through loading first.
	transitions := 0
	state := audit.State
	if state == model.StateProgrammed {
		if _, err := s.ChangeState(ctx, audit.ID, model.StateLoading, reasonDeadlinePassed, nil); err != nil {
			return transitions, err
		}
		transitions++
		state = model.StateLoading
	}
	if _, err := s.ChangeState(ctx, audit.ID, model.StatePendingEvaluation, reasonDeadlinePassed, nil); err != nil {
		return transitions, err
	}
	transitions++
	s.metrics.observeSweepTransition()

	s.dispatcher.DeadlineReached(event.DeadlinePassed{
		AuditID:       audit.ID,
		State:         model.StatePendingEvaluation,
		Deadline:      audit.UploadDeadline,
		DocumentCount: count,
		Transitioned:  true,
	})
	return transitions, nil
}

func (s *auditService) GetMetrics(ctx context.Context) (*model.StateMetrics, error) {
	allTime, err := s.audits.CountByState(ctx, time.Time{})
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	month, err := s.audits.CountByState(ctx, monthStart)
	if err != nil {
		return nil, err
	}

	metrics := &model.StateMetrics{
		AllTime:      make(map[model.AuditState]int, len(model.AllStates)),
		CurrentMonth: make(map[model.AuditState]int, len(model.AllStates)),
	}
	for _, st := range model.AllStates {
		metrics.AllTime[st] = allTime[st]
		metrics.CurrentMonth[st] = month[st]
	}
	return metrics, nil
}

func (s *auditService) GetProgress(ctx context.Context, auditID int64) (*model.AuditProgress, error) {
	audit, err := s.audits.FindByID(ctx, auditID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("audit", auditID)
		}
		return nil, err
	}

	sections, err := s.sections.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	covered, err := s.coveredSet(ctx, auditID)
	if err != nil {
		return nil, err
	}

	return &model.AuditProgress{
		AuditID:      auditID,
		State:        audit.State,
		StatePercent: model.StatePercent[audit.State],
		Sections:     progress.Compute(sections, covered),
	}, nil
}

func (s *auditService) coveredSet(ctx context.Context, auditID int64) (map[int64]struct{}, error) {
	ids, err := s.documents.CoveredSectionIDs(ctx, auditID)
	if err != nil {
		return nil, err
	}
	covered := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		covered[id] = struct{}{}
	}
	return covered, nil
}
