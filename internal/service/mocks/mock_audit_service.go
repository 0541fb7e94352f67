package mocks

import (
	"context"

	"auditflow/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) ChangeState(ctx context.Context, auditID int64, newState model.AuditState, reason string, actorID *int64) (*model.Audit, error) {
	args := m.Called(ctx, auditID, newState, reason, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Audit), args.Error(1)
}

func (m *MockAuditService) CheckStartLoading(ctx context.Context, auditID int64) error {
	args := m.Called(ctx, auditID)
	return args.Error(0)
}

func (m *MockAuditService) CheckLoadingComplete(ctx context.Context, auditID int64) error {
	args := m.Called(ctx, auditID)
	return args.Error(0)
}

func (m *MockAuditService) RunScheduledChecks(ctx context.Context) (*model.SweepResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SweepResult), args.Error(1)
}

func (m *MockAuditService) GetMetrics(ctx context.Context) (*model.StateMetrics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StateMetrics), args.Error(1)
}

func (m *MockAuditService) GetProgress(ctx context.Context, auditID int64) (*model.AuditProgress, error) {
	args := m.Called(ctx, auditID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuditProgress), args.Error(1)
}
