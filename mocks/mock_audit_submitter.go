package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"medaudit/internal/domain"
)

// MockAuditSubmitter is a mock implementation of port.AuditSubmitter.
type MockAuditSubmitter struct {
	mock.Mock
}

func (m *MockAuditSubmitter) Submit(ctx context.Context, req domain.SubmissionRequest) (*domain.RawEndpointReply, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RawEndpointReply), args.Error(1)
}
