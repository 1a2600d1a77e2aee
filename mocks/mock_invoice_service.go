package mocks

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"agrofin/internal/domain"
	"agrofin/internal/extraction"
	"agrofin/internal/service"
)

// MockInvoiceService is a mock implementation of service.InvoiceService.
type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) Process(ctx context.Context, input service.UploadInput) (*service.InvoiceResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.InvoiceResult), args.Error(1)
}

func (m *MockInvoiceService) GenerateAccount(ctx context.Context, rec *extraction.Record) (*domain.GeneratedAccount, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GeneratedAccount), args.Error(1)
}

func (m *MockInvoiceService) GetAccount(ctx context.Context, id uuid.UUID) (*domain.PayableAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PayableAccount), args.Error(1)
}

func (m *MockInvoiceService) ListAccounts(ctx context.Context, offset, limit int) ([]domain.PayableAccount, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.PayableAccount), args.Int(1), args.Error(2)
}

func (m *MockInvoiceService) ExportAccounts(ctx context.Context, w io.Writer, format domain.ExportFormat) error {
	args := m.Called(ctx, w, format)
	return args.Error(0)
}

func (m *MockInvoiceService) ListExtractionLogs(ctx context.Context, offset, limit int) ([]domain.ExtractionLog, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ExtractionLog), args.Int(1), args.Error(2)
}
