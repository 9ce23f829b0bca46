package jwtauth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medaudit/internal/auth/jwtauth"
	"medaudit/internal/config"
)

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		Enabled:   true,
		JWTSecret: "test-secret-that-is-long-enough",
		Issuer:    "medaudit",
		Audience:  "access",
	}
}

func TestVerifier_IssueAndValidate(t *testing.T) {
	v, err := jwtauth.NewVerifier(testAuthConfig())
	require.NoError(t, err)

	token, err := v.Issue("clinic-7", time.Hour)
	require.NoError(t, err)

	claims, err := v.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "clinic-7", claims.Subject)
	assert.True(t, v.IsAuthorized(context.Background(), token))
}

func TestVerifier_Rejects(t *testing.T) {
	cfg := testAuthConfig()
	v, err := jwtauth.NewVerifier(cfg)
	require.NoError(t, err)

	expired, err := v.Issue("x", -time.Minute)
	require.NoError(t, err)

	otherCfg := *cfg
	otherCfg.JWTSecret = "another-secret-entirely"
	other, err := jwtauth.NewVerifier(&otherCfg)
	require.NoError(t, err)
	wrongKey, err := other.Issue("x", time.Hour)
	require.NoError(t, err)

	refreshCfg := *cfg
	refreshCfg.Audience = "refresh"
	refresh, err := jwtauth.NewVerifier(&refreshCfg)
	require.NoError(t, err)
	wrongAudience, err := refresh.Issue("x", time.Hour)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:   "medaudit",
		Audience: jwt.ClaimStrings{"access"},
	}).SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":          "",
		"garbage":        "not.a.token",
		"expired":        expired,
		"wrong key":      wrongKey,
		"wrong audience": wrongAudience,
		"no expiry":      noExp,
	} {
		t.Run(name, func(t *testing.T) {
			assert.False(t, v.IsAuthorized(context.Background(), token))
		})
	}
}

func TestNewVerifier_RequiresSecret(t *testing.T) {
	cfg := testAuthConfig()
	cfg.JWTSecret = ""
	_, err := jwtauth.NewVerifier(cfg)
	assert.Error(t, err)
}

func TestNew_DisabledAllowsAll(t *testing.T) {
	a, err := jwtauth.New(&config.AuthConfig{Enabled: false})
	require.NoError(t, err)
	assert.True(t, a.IsAuthorized(context.Background(), ""))
}

func TestNew_EnabledVerifies(t *testing.T) {
	a, err := jwtauth.New(testAuthConfig())
	require.NoError(t, err)
	assert.False(t, a.IsAuthorized(context.Background(), "bogus"))
}
