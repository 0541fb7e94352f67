package mocks

import (
	"context"

	"auditflow/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Ingest(ctx context.Context, auditID, sectionID int64, files []service.IngestFile, notes string, actorID *int64) (*service.IngestResult, error) {
	args := m.Called(ctx, auditID, sectionID, files, notes, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

func (m *MockDocumentService) Remove(ctx context.Context, documentID, actorID int64) error {
	args := m.Called(ctx, documentID, actorID)
	return args.Error(0)
}

func (m *MockDocumentService) List(ctx context.Context, auditID int64) ([]service.SectionDocuments, error) {
	args := m.Called(ctx, auditID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.SectionDocuments), args.Error(1)
}
