package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"agrofin/internal/port"
)

// MockGenerator is a mock implementation of port.Generator.
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (*port.Generation, error) {
	args := m.Called(ctx, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.Generation), args.Error(1)
}

// MockTextExtractor is a mock implementation of port.TextExtractor.
type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) Extract(ctx context.Context, document []byte) (string, error) {
	args := m.Called(ctx, document)
	return args.String(0), args.Error(1)
}
