package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"agrofin/internal/port"
)

// MockEmailSender is a mock implementation of port.EmailSender.
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendReviewNotice(ctx context.Context, to []string, notice port.ReviewNotice) error {
	args := m.Called(ctx, to, notice)
	return args.Error(0)
}
