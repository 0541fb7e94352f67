package mocks

import (
	"context"

	"auditflow/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockSectionRepository struct {
	mock.Mock
}

func (m *MockSectionRepository) FindByID(ctx context.Context, id int64) (*model.TechnicalSection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TechnicalSection), args.Error(1)
}

func (m *MockSectionRepository) ListActive(ctx context.Context) ([]model.TechnicalSection, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TechnicalSection), args.Error(1)
}

type MockTrailRepository struct {
	mock.Mock
}

func (m *MockTrailRepository) Append(ctx context.Context, entry *model.TrailEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}
