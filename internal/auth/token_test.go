package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestIssueUserTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("secret", 0, 0)

	tok, err := svc.IssueUserToken("jane@x.com", 0)
	require.NoError(t, err)

	claims, err := svc.VerifyToken(tok.Raw)
	require.NoError(t, err)
	assert.Equal(t, "jane@x.com", claims.Subject)
	assert.False(t, claims.Admin)
	assert.WithinDuration(t, time.Now().Add(DefaultUserTTL), claims.ExpiresAt, 5*time.Second)
}

func TestIssueAdminTokenCarriesMarker(t *testing.T) {
	svc := NewTokenService("secret", 0, 0)

	tok, err := svc.IssueAdminToken("admin@x.com", 0)
	require.NoError(t, err)

	claims, err := svc.VerifyToken(tok.Raw)
	require.NoError(t, err)
	assert.True(t, claims.Admin)
	assert.WithinDuration(t, time.Now().Add(DefaultAdminTTL), claims.ExpiresAt, 5*time.Second)
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	svc := NewTokenService("secret", 0, 0)
	svc.now = fixedClock(time.Now().Add(-2 * time.Hour))

	tok, err := svc.IssueUserToken("jane@x.com", time.Minute)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().UTC() }
	_, err = svc.VerifyToken(tok.Raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenFailures(t *testing.T) {
	svc := NewTokenService("secret", 0, 0)
	other := NewTokenService("another-secret", 0, 0)

	good, err := svc.IssueUserToken("jane@x.com", 0)
	require.NoError(t, err)
	forged, err := other.IssueAdminToken("jane@x.com", 0)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "jane@x.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	noneRaw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "jane@x.com"})
	noExpRaw, err := noExp.SignedString([]byte("secret"))
	require.NoError(t, err)

	cases := map[string]string{
		"garbage":      "not-a-token",
		"empty":        "",
		"wrong secret": forged.Raw,
		"tampered":     good.Raw[:len(good.Raw)-2] + "xx",
		"alg none":     noneRaw,
		"missing exp":  noExpRaw,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.VerifyToken(raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewTokenServiceCustomTTL(t *testing.T) {
	svc := NewTokenService("secret", 5*time.Minute, 10*time.Minute)

	tok, err := svc.IssueUserToken("a@x.com", 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), tok.Exp, 5*time.Second)

	tok, err = svc.IssueAdminToken("a@x.com", time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), tok.Exp, 5*time.Second)
}
