package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"auditflow/internal/apperrors"
	"auditflow/internal/event"
	eventMocks "auditflow/internal/event/mocks"
	"auditflow/internal/model"
	repoMocks "auditflow/internal/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type auditServiceFixture struct {
	audits    *repoMocks.MockAuditRepository
	documents *repoMocks.MockDocumentRepository
	sections  *repoMocks.MockSectionRepository
	trail     *repoMocks.MockTrailRepository
	notifier  *eventMocks.MockNotifier

	dispatcher *event.Dispatcher
	svc        AuditService
}

func newAuditServiceFixture(policy SweepEmptyPolicy) *auditServiceFixture {
	f := &auditServiceFixture{
		audits:    new(repoMocks.MockAuditRepository),
		documents: new(repoMocks.MockDocumentRepository),
		sections:  new(repoMocks.MockSectionRepository),
		trail:     new(repoMocks.MockTrailRepository),
		notifier:  new(eventMocks.MockNotifier),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.dispatcher = event.NewDispatcher(f.notifier, nil, logger)
	f.svc = NewAuditService(f.audits, f.documents, f.sections, f.trail, f.dispatcher, logger, nil, policy)
	return f
}

func programmedAudit(id int64) *model.Audit {
	return &model.Audit{
		ID:             id,
		SiteID:         7,
		PeriodCode:     "2026-H1",
		State:          model.StateProgrammed,
		UploadDeadline: time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
	}
}

func TestAuditService_ChangeState(t *testing.T) {
	ctx := context.Background()
	actorID := int64(42)

	t.Run("happy path with actor writes trail", func(t *testing.T) {
		f := newAuditServiceFixture(SweepEmptyHold)
		f.audits.On("FindByID", ctx, int64(1)).Return(programmedAudit(1), nil)
		f.audits.On("UpdateState", ctx, int64(1), model.StateProgrammed, model.StateLoading, mock.AnythingOfType("time.Time")).
			Return(true, nil)
		f.trail.On("Append", ctx, mock.MatchedBy(func(e *model.TrailEntry) bool {
			return e.AuditID == 1 && e.Action == model.TrailActionStateChange && *e.ActorID == actorID
		})).Return(nil)
		f.notifier.On("NotifyStateChange", mock.Anything, mock.Anything).Return(nil)

		updated, err := f.svc.ChangeState(ctx, 1, model.StateLoading, "evidence received", &actorID)
		f.dispatcher.Flush()

		assert.NoError(t, err)
		assert.Equal(t, model.StateLoading, updated.State)
		f.trail.AssertNumberOfCalls(t, "Append", 1)
		f.notifier.AssertNumberOfCalls(t, "NotifyStateChange", 1)
	})

	t.Run("system transition skips trail", func(t *testing.T) {
		f := newAuditServiceFixture(SweepEmptyHold)
		f.audits.On("FindByID", ctx, int64(1)).Return(programmedAudit(1), nil)
		f.audits.On("UpdateState", ctx, int64(1), model.StateProgrammed, model.StateLoading, mock.AnythingOfType("time.Time")).
			Return(true, nil)
		f.notifier.On("NotifyStateChange", mock.Anything, mock.Anything).Return(nil)

		_, err := f.svc.ChangeState(ctx, 1, model.StateLoading, "automatic", nil)
		f.dispatcher.Flush()

		assert.NoError(t, err)
		f.trail.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})

	t.Run("audit not found", func(t *testing.T) {
		f := newAuditServiceFixture(SweepEmptyHold)
		f.audits.On("FindByID", ctx, int64(99)).Return(nil, sql.ErrNoRows)

		_, err := f.svc.ChangeState(ctx, 99, model.StateLoading, "x", nil)

		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("invalid transition rejected", func(t *testing.T) {
		f := newAuditServiceFixture(SweepEmptyHold)
		f.audits.On("FindByID", ctx, int64(1)).Return(programmedAudit(1), nil)

		_, err := f.svc.ChangeState(ctx, 1, model.StateEvaluated, "skip ahead", &actorID)

		assert.True(t, apperrors.IsInvalidTransition(err))
		f.audits.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("concurrent update yields conflict", func(t *testing.T) {
		f := newAuditServiceFixture(SweepEmptyHold)
		f.audits.On("FindByID", ctx, int64(1)).Return(programmedAudit(1), nil)
		f.audits.On("UpdateState", ctx, int64(1), model.StateProgrammed, model.StateLoading, mock.AnythingOfType("time.Time")).
			Return(false, nil)

		_, err := f.svc.ChangeState(ctx, 1, model.StateLoading, "race", nil)

		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("trail failure does not fail the transition", func(t *testing.T) {
		f := newAuditServiceFixture(SweepEmptyHold)
		f.audits.On("FindByID", ctx, int64(1)).Return(programmedAudit(1), nil)
		f.audits.On("UpdateState", ctx, int64(1), model.StateProgrammed, model.StateLoading, mock.AnythingOfType("time.Time")).
			Return(true, nil)
		f.trail.On("Append", ctx, mock.Anything).Return(errors.New("trail db down"))
		f.notifier.On("NotifyStateChange", mock.Anything, mock.Anything).Return(nil)

		updated, err := f.svc.ChangeState(ctx, 1, model.StateLoading, "evidence", &actorID)
		f.dispatcher.Flush()

		assert.NoError(t, err)
		assert.Equal(t, model.StateLoading, updated.State)
	})

	t.Run("notification failure does not fail the transition", func(t *testing.T) {
		f := newAuditServiceFixture(SweepEmptyHold)
		f.audits.On("FindByID", ctx, int64(1)).Return(programmedAudit(1), nil)
		f.audits.On("UpdateState", ctx, int64(1), model.StateProgrammed, model.StateLoading, mock.AnythingOfType("time.Time")).
			Return(true, nil)
		f.notifier.On("NotifyStateChange", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

		_, err := f.svc.ChangeState(ctx, 1, model.StateLoading, "evidence", nil)
		f.dispatcher.Flush()

		assert.NoError(t, err)
	})
}

// Every pair outside the transition table must be rejected, including
// self-transitions and anything out of the terminal state.
func TestAuditService_ChangeState_RejectsAllInvalidPairs(t *testing.T) {
	ctx := context.Background()

	for _, from := range model.AllStates {
		for _, to := range model.AllStates {
			if model.IsValidTransition(from, to) {
				continue
			}
			t.Run(string(from)+"_to_"+string(to), func(t *testing.T) {
				f := newAuditServiceFixture(SweepEmptyHold)
				audit := programmedAudit(1)
				audit.State = from
				f.audits.On("FindByID", ctx, int64(1)).Return(audit, nil)

				_, err := f.svc.ChangeState(ctx, 1, to, "bad", nil)

				assert.True(t, apperrors.IsInvalidTransition(err))
			})
		}
	}
}

func TestAuditService_CheckStartLoading(t *testing.T) {
	ctx := context.Background()

	t.Run("no documents leaves audit programmed", func(t *testing.T) {
		f := newAuditServiceFixture(SweepEmptyHold)
		f.audits.On("FindByID", ctx, int64(1)).Return(programmedAudit(1), nil)
		f.documents.On("CountByAudit", ctx, int64(1)).Return(0, nil)

		err := f.svc.CheckStartLoading(ctx, 1)

		assert.NoError(t, err)
		f.audits.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("first document moves audit to loading", func(t *testing.T) {
		f := newAuditServiceFixture(SweepEmptyHold)
		f.audits.On("FindByID", ctx, int64(1)).Return(programmedAudit(1), nil)
		f.documents.On("CountByAudit", ctx, int64(1)).Return(1, nil)
		f.audits.On("UpdateState", ctx, int64(1), model.StateProgrammed, model.StateLoading, mock.AnythingOfType("time.Time")).
			Return(true, nil)
		f.notifier.On("NotifyStateChange", mock.Anything, mock.Anything).Return(nil)

		err := f.svc.CheckStartLoading(ctx, 1)
		f.dispatcher.Flush()

		assert.NoError(t, err)
		f.audits.AssertCalled(t, "UpdateState", ctx, int64(1), model.StateProgrammed, model.StateLoading, mock.AnythingOfType("time.Time"))
	})

	t.Run("non-programmed audit is a no-op", func(t *testing.T) {
		f := newAuditServiceFixture(SweepEmptyHold)
		audit := programmedAudit(1)
		audit.State = model.StateEvaluated
		f.audits.On("FindByID", ctx, int64(1)).Return(audit, nil)

		err := f.svc.CheckStartLoading(ctx, 1)

		assert.NoError(t, err)
		f.documents.AssertNotCalled(t, "CountByAudit", mock.Anything, mock.Anything)
	})
}

func TestAuditService_CheckLoadingComplete(t *testing.T) {
	ctx := context.Background()

	catalog := []model.TechnicalSection{
		{ID: 1, Code: "S1", Name: "Fire safety", Mandatory: true, Active: true},
		{ID: 2, Code: "S2", Name: "Electrical", Mandatory: true, Active: true},
		{ID: 3, Code: "S3", Name: "Structural", Mandatory: true, Active: true},
		{ID: 4, Code: "S4", Name: "Appendix", Mandatory: false, Active: true},
	}

	loadingAudit := func() *model.Audit {
		a := programmedAudit(1)
		a.State = model.StateLoading
		return a
	}

	t.Run("missing mandatory section is a no-op", func(t *testing.T) {
		f := newAuditServiceFixture(SweepEmptyHold)
		f.audits.On("FindByID", ctx, int64(1)).Return(loadingAudit(), nil)
		f.sections.On("ListActive", ctx).Return(catalog, nil)
		f.documents.On("CoveredSectionIDs", ctx, int64(1)).Return([]int64{1, 2}, nil)

		err := f.svc.CheckLoadingComplete(ctx, 1)

		assert.NoError(t, err)
		f.audits.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("all mandatory covered moves audit to pending_evaluation", func(t *testing.T) {
		f := newAuditServiceFixture(SweepEmptyHold)
		f.audits.On("FindByID", ctx, int64(1)).Return(loadingAudit(), nil)
		f.sections.On("ListActive", ctx).Return(catalog, nil)
		// Optional S4 still uncovered: it must not block completion.
		f.documents.On("CoveredSectionIDs", ctx, int64(1)).Return([]int64{1, 2, 3}, nil)
		f.audits.On("UpdateState", ctx, int64(1), model.StateLoading, model.StatePendingEvaluation, mock.AnythingOfType("time.Time")).
			Return(true, nil)
		f.notifier.On("NotifyStateChange", mock.Anything, mock.Anything).Return(nil)

		err := f.svc.CheckLoadingComplete(ctx, 1)
		f.dispatcher.Flush()

		assert.NoError(t, err)
		f.audits.AssertCalled(t, "UpdateState", ctx, int64(1), model.StateLoading, model.StatePendingEvaluation, mock.AnythingOfType("time.Time"))
	})

	t.Run("non-loading audit is a no-op", func(t *testing.T) {
		f := newAuditServiceFixture(SweepEmptyHold)
		f.audits.On("FindByID", ctx, int64(1)).Return(programmedAudit(1), nil)

		err := f.svc.CheckLoadingComplete(ctx, 1)

		assert.NoError(t, err)
		f.sections.AssertNotCalled(t, "ListActive", mock.Anything)
	})
}

func TestAuditService_RunScheduledChecks(t *testing.T) {
	ctx := context.Background()

	t.Run("overdue programmed audit with documents transitions through loading", func(t *testing.T) {
		f := newAuditServiceFixture(SweepEmptyHold)
		audit := programmedAudit(1)
		f.audits.On("ListDeadlinePassed", ctx, mock.AnythingOfType("time.Time"),
			[]model.AuditState{model.StateProgrammed, model.StateLoading}).
			Return([]model.Audit{*audit}, nil)
		f.documents.On("CountByAudit", ctx, int64(1)).Return(3, nil)

		loaded := *audit
		loaded.State = model.StateLoading
		f.audits.On("FindByID", ctx, int64(1)).Return(audit, nil).Once()
		f.audits.On("FindByID", ctx, int64(1)).Return(&loaded, nil).Once()
		f.audits.On("UpdateState", ctx, int64(1), model.StateProgrammed, model.StateLoading, mock.AnythingOfType("time.Time")).
			Return(true, nil)
		f.audits.On("UpdateState", ctx, int64(1), model.StateLoading, model.StatePendingEvaluation, mock.AnythingOfType("time.Time")).
			Return(true, nil)
		f.notifier.On("NotifyStateChange", mock.Anything, mock.Anything).Return(nil)
		f.notifier.On("NotifyDeadline", mock.Anything, mock.MatchedBy(func(ev event.DeadlinePassed) bool {
			return ev.AuditID == 1 && ev.Transitioned && ev.DocumentCount == 3
		})).Return(nil)

		result, err := f.svc.RunScheduledChecks(ctx)
		f.dispatcher.Flush()

		assert.NoError(t, err)
		assert.Equal(t, 2, result.TransitionsCount)
		assert.Equal(t, 0, result.Failures)
		// One deadline event per swept audit, not one per hop.
		f.notifier.AssertNumberOfCalls(t, "NotifyDeadline", 1)
	})

	t.Run("empty audit is held under hold policy", func(t *testing.T) {
		f := newAuditServiceFixture(SweepEmptyHold)
		f.audits.On("ListDeadlinePassed", ctx, mock.AnythingOfType("time.Time"), mock.Anything).
			Return([]model.Audit{*programmedAudit(1)}, nil)
		f.documents.On("CountByAudit", ctx, int64(1)).Return(0, nil)

		result, err := f.svc.RunScheduledChecks(ctx)
		f.dispatcher.Flush()

		assert.NoError(t, err)
		assert.Equal(t, 0, result.TransitionsCount)
		f.audits.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.notifier.AssertNotCalled(t, "NotifyDeadline", mock.Anything, mock.Anything)
	})

	t.Run("empty audit emits event without moving under notify policy", func(t *testing.T) {
		f := newAuditServiceFixture(SweepEmptyNotify)
		f.audits.On("ListDeadlinePassed", ctx, mock.AnythingOfType("time.Time"), mock.Anything).
			Return([]model.Audit{*programmedAudit(1)}, nil)
		f.documents.On("CountByAudit", ctx, int64(1)).Return(0, nil)
		f.notifier.On("NotifyDeadline", mock.Anything, mock.MatchedBy(func(ev event.DeadlinePassed) bool {
			return ev.AuditID == 1 && !ev.Transitioned && ev.DocumentCount == 0
		})).Return(nil)

		result, err := f.svc.RunScheduledChecks(ctx)
		f.dispatcher.Flush()

		assert.NoError(t, err)
		assert.Equal(t, 0, result.TransitionsCount)
		f.audits.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.notifier.AssertNumberOfCalls(t, "NotifyDeadline", 1)
	})

	t.Run("one failing audit does not halt the sweep", func(t *testing.T) {
		f := newAuditServiceFixture(SweepEmptyHold)
		broken := programmedAudit(1)
		healthy := programmedAudit(2)
		healthy.State = model.StateLoading
		f.audits.On("ListDeadlinePassed", ctx, mock.AnythingOfType("time.Time"), mock.Anything).
			Return([]model.Audit{*broken, *healthy}, nil)
		f.documents.On("CountByAudit", ctx, int64(1)).Return(0, errors.New("db gone"))
		f.documents.On("CountByAudit", ctx, int64(2)).Return(1, nil)
		f.audits.On("FindByID", ctx, int64(2)).Return(healthy, nil)
		f.audits.On("UpdateState", ctx, int64(2), model.StateLoading, model.StatePendingEvaluation, mock.AnythingOfType("time.Time")).
			Return(true, nil)
		f.notifier.On("NotifyStateChange", mock.Anything, mock.Anything).Return(nil)
		f.notifier.On("NotifyDeadline", mock.Anything, mock.Anything).Return(nil)

		result, err := f.svc.RunScheduledChecks(ctx)
		f.dispatcher.Flush()

		assert.NoError(t, err)
		assert.Equal(t, 1, result.Failures)
		assert.Equal(t, 1, result.TransitionsCount)
	})

	t.Run("listing failure aborts the sweep", func(t *testing.T) {
		f := newAuditServiceFixture(SweepEmptyHold)
		f.audits.On("ListDeadlinePassed", ctx, mock.AnythingOfType("time.Time"), mock.Anything).
			Return(nil, errors.New("db gone"))

		_, err := f.svc.RunScheduledChecks(ctx)

		assert.Error(t, err)
	})
}

func TestAuditService_GetMetrics(t *testing.T) {
	ctx := context.Background()
	f := newAuditServiceFixture(SweepEmptyHold)

	f.audits.On("CountByState", ctx, time.Time{}).
		Return(map[model.AuditState]int{model.StateProgrammed: 4, model.StateClosed: 9}, nil)
	f.audits.On("CountByState", ctx, mock.MatchedBy(func(t time.Time) bool { return !t.IsZero() })).
		Return(map[model.AuditState]int{model.StateProgrammed: 1}, nil)

	m, err := f.svc.GetMetrics(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 4, m.AllTime[model.StateProgrammed])
	assert.Equal(t, 9, m.AllTime[model.StateClosed])
	assert.Equal(t, 1, m.CurrentMonth[model.StateProgrammed])
	// States with no rows still appear, zero-filled.
	assert.Equal(t, 0, m.AllTime[model.StateLoading])
	assert.Equal(t, 0, m.CurrentMonth[model.StateClosed])
	assert.Len(t, m.AllTime, len(model.AllStates))
}

func TestAuditService_GetProgress(t *testing.T) {
	ctx := context.Background()

	t.Run("per-state percentage with section snapshot", func(t *testing.T) {
		f := newAuditServiceFixture(SweepEmptyHold)
		audit := programmedAudit(1)
		audit.State = model.StateLoading
		f.audits.On("FindByID", ctx, int64(1)).Return(audit, nil)
		f.sections.On("ListActive", ctx).Return([]model.TechnicalSection{
			{ID: 1, Code: "S1", Mandatory: true, Active: true},
			{ID: 2, Code: "S2", Mandatory: true, Active: true},
		}, nil)
		f.documents.On("CoveredSectionIDs", ctx, int64(1)).Return([]int64{1}, nil)

		p, err := f.svc.GetProgress(ctx, 1)

		assert.NoError(t, err)
		assert.Equal(t, model.StateLoading, p.State)
		assert.Equal(t, 25, p.StatePercent)
		assert.Equal(t, 2, p.Sections.MandatoryTotal)
		assert.Equal(t, 1, p.Sections.MandatoryCovered)
		assert.False(t, p.Sections.Complete)
	})

	t.Run("empty section catalog yields zero percent without panicking", func(t *testing.T) {
		f := newAuditServiceFixture(SweepEmptyHold)
		f.audits.On("FindByID", ctx, int64(1)).Return(programmedAudit(1), nil)
		f.sections.On("ListActive", ctx).Return([]model.TechnicalSection{}, nil)
		f.documents.On("CoveredSectionIDs", ctx, int64(1)).Return([]int64{}, nil)

		p, err := f.svc.GetProgress(ctx, 1)

		assert.NoError(t, err)
		assert.Equal(t, 0, p.Sections.PercentAll)
		assert.Equal(t, 0, p.Sections.PercentMandatory)
	})

	t.Run("unknown audit", func(t *testing.T) {
		f := newAuditServiceFixture(SweepEmptyHold)
		f.audits.On("FindByID", ctx, int64(5)).Return(nil, sql.ErrNoRows)

		_, err := f.svc.GetProgress(ctx, 5)

		assert.True(t, apperrors.IsNotFound(err))
	})
}
