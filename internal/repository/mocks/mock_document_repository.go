package mocks

import (
	"context"

	"auditflow/internal/model"
	"auditflow/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id int64) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) Upsert(ctx context.Context, doc *model.Document, scope repository.DedupScope) (*repository.UpsertResult, error) {
	args := m.Called(ctx, doc, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.UpsertResult), args.Error(1)
}

func (m *MockDocumentRepository) ListByAudit(ctx context.Context, auditID int64) ([]model.Document, error) {
	args := m.Called(ctx, auditID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockDocumentRepository) CountByAudit(ctx context.Context, auditID int64) (int, error) {
	args := m.Called(ctx, auditID)
	return args.Int(0), args.Error(1)
}

func (m *MockDocumentRepository) CoveredSectionIDs(ctx context.Context, auditID int64) ([]int64, error) {
	args := m.Called(ctx, auditID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
