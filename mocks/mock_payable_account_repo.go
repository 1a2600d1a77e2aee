package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"agrofin/internal/domain"
	"agrofin/internal/extraction"
)

// MockPayableAccountRepo is a mock implementation of port.PayableAccountRepository.
type MockPayableAccountRepo struct {
	mock.Mock
}

func (m *MockPayableAccountRepo) CreateFromExtraction(ctx context.Context, rec *extraction.Record) (*domain.GeneratedAccount, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GeneratedAccount), args.Error(1)
}

func (m *MockPayableAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PayableAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PayableAccount), args.Error(1)
}

func (m *MockPayableAccountRepo) List(ctx context.Context, offset, limit int) ([]domain.PayableAccount, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.PayableAccount), args.Int(1), args.Error(2)
}
