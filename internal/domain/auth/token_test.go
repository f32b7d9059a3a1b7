package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T, now time.Time) *Issuer {
	t.Helper()
	i, err := NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	i.now = func() time.Time { return now }
	return i
}

func TestNewIssuer_EmptySecret(t *testing.T) {
	_, err := NewIssuer("", time.Hour)
	require.Error(t, err)
}

func TestIssuer_RoundTrip(t *testing.T) {
	now := time.Now()
	i := newTestIssuer(t, now)

	tok, err := i.Issue(42)
	require.NoError(t, err)

	id, err := i.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestIssuer_Expired(t *testing.T) {
	now := time.Now()
	i := newTestIssuer(t, now)

	tok, err := i.Issue(42)
	require.NoError(t, err)

	i.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = i.Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_WrongSecret(t *testing.T) {
	now := time.Now()
	i := newTestIssuer(t, now)
	other, err := NewIssuer("other-secret", time.Hour)
	require.NoError(t, err)

	tok, err := other.Issue(42)
	require.NoError(t, err)

	_, err = i.Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_Rejects(t *testing.T) {
	now := time.Now()
	i := newTestIssuer(t, now)

	sign := func(method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-jwt"},
		{name: "empty", token: ""},
		{
			name:  "unsigned",
			token: sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid),
		},
		{
			name:  "other algorithm",
			token: sign(jwt.SigningMethodHS512, []byte("test-secret"), valid),
		},
		{
			name: "foreign issuer",
			token: sign(jwt.SigningMethodHS256, []byte("test-secret"), jwt.RegisteredClaims{
				Issuer: "someone-else", Subject: "7", ExpiresAt: valid.ExpiresAt,
			}),
		},
		{
			name: "no expiry",
			token: sign(jwt.SigningMethodHS256, []byte("test-secret"), jwt.RegisteredClaims{
				Issuer: issuer, Subject: "7",
			}),
		},
		{
			name: "non-numeric subject",
			token: sign(jwt.SigningMethodHS256, []byte("test-secret"), jwt.RegisteredClaims{
				Issuer: issuer, Subject: "admin", ExpiresAt: valid.ExpiresAt,
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := i.Parse(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
