package mocks

import (
	"context"
	"time"

	"auditflow/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) FindByID(ctx context.Context, id int64) (*model.Audit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Audit), args.Error(1)
}

func (m *MockAuditRepository) UpdateState(ctx context.Context, id int64, expected, next model.AuditState, at time.Time) (bool, error) {
	args := m.Called(ctx, id, expected, next, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuditRepository) ListDeadlinePassed(ctx context.Context, before time.Time, states []model.AuditState) ([]model.Audit, error) {
	args := m.Called(ctx, before, states)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Audit), args.Error(1)
}

func (m *MockAuditRepository) CountByState(ctx context.Context, since time.Time) (map[model.AuditState]int, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[model.AuditState]int), args.Error(1)
}
