package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"medaudit/internal/domain"
	"medaudit/internal/service"
)

// MockAuditSession is a mock implementation of service.AuditSession.
type MockAuditSession struct {
	mock.Mock
}

func (m *MockAuditSession) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockAuditSession) Submit(ctx context.Context, input service.SubmitInput) (*domain.AuditOutcome, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuditOutcome), args.Error(1)
}

func (m *MockAuditSession) Snapshot() domain.SessionSnapshot {
	args := m.Called()
	return args.Get(0).(domain.SessionSnapshot)
}

func (m *MockAuditSession) Reset() error {
	args := m.Called()
	return args.Error(0)
}

// MockSessionRegistry is a mock implementation of service.SessionRegistry.
type MockSessionRegistry struct {
	mock.Mock
}

func (m *MockSessionRegistry) Get(id string) (service.AuditSession, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(service.AuditSession), args.Error(1)
}

func (m *MockSessionRegistry) GetOrCreate(id string) (service.AuditSession, bool) {
	args := m.Called(id)
	return args.Get(0).(service.AuditSession), args.Bool(1)
}

func (m *MockSessionRegistry) Sweep(ttl time.Duration) int {
	args := m.Called(ttl)
	return args.Int(0)
}

func (m *MockSessionRegistry) Len() int {
	args := m.Called()
	return args.Int(0)
}
