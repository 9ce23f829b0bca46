package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medaudit/internal/auth/jwtauth"
	"medaudit/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestToken_MintsVerifiableToken(t *testing.T) {
	t.Setenv("MEDAUDIT_AUTH_JWT_SECRET", "test-secret")
	t.Setenv("MEDAUDIT_AUTH_ISSUER", "medaudit")

	out, err := execute(t, "--subject", "clinic-7", "--ttl", "1h")
	require.NoError(t, err)

	v, err := jwtauth.NewVerifier(&config.AuthConfig{JWTSecret: "test-secret", Issuer: "medaudit"})
	require.NoError(t, err)
	claims, err := v.Validate(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "clinic-7", claims.Subject)
}

func TestToken_Errors(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		args   []string
	}{
		{"missing subject", "test-secret", []string{}},
		{"missing secret", "", []string{"--subject", "ops"}},
		{"non-positive ttl", "test-secret", []string{"--subject", "ops", "--ttl", "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MEDAUDIT_AUTH_JWT_SECRET", tt.secret)

			out, err := execute(t, tt.args...)

			assert.Error(t, err)
			assert.Empty(t, out)
		})
	}
}
