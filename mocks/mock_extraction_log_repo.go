package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"agrofin/internal/domain"
)

// MockExtractionLogRepo is a mock implementation of port.ExtractionLogRepository.
type MockExtractionLogRepo struct {
	mock.Mock
}

func (m *MockExtractionLogRepo) Create(ctx context.Context, entry *domain.ExtractionLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockExtractionLogRepo) List(ctx context.Context, offset, limit int) ([]domain.ExtractionLog, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ExtractionLog), args.Int(1), args.Error(2)
}
