package mocks

import (
	"github.com/stretchr/testify/mock"

	"medaudit/internal/domain"
)

// MockReplyNormalizer is a mock implementation of port.ReplyNormalizer.
type MockReplyNormalizer struct {
	mock.Mock
}

func (m *MockReplyNormalizer) Normalize(reply *domain.RawEndpointReply) domain.AuditOutcome {
	args := m.Called(reply)
	return args.Get(0).(domain.AuditOutcome)
}
