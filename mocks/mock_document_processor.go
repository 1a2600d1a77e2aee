package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"agrofin/internal/pipeline"
)

// MockDocumentProcessor is a mock implementation of service.DocumentProcessor.
type MockDocumentProcessor struct {
	mock.Mock
}

func (m *MockDocumentProcessor) Process(ctx context.Context, document []byte, filename string) pipeline.Result {
	args := m.Called(ctx, document, filename)
	return args.Get(0).(pipeline.Result)
}
