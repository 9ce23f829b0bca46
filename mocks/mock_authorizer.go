package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockAuthorizer is a mock implementation of port.Authorizer.
type MockAuthorizer struct {
	mock.Mock
}

func (m *MockAuthorizer) IsAuthorized(ctx context.Context, token string) bool {
	args := m.Called(ctx, token)
	return args.Bool(0)
}
