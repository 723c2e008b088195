package jwtutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", 12, "ana", RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, uint(12), claims.UserID)
	assert.Equal(t, "ana", claims.Username)
	assert.True(t, claims.IsAdmin())
}

func TestParseRejects(t *testing.T) {
	valid, err := GenerateToken("secret", 1, "ana", "", time.Hour)
	require.NoError(t, err)
	expired, err := GenerateToken("secret", 1, "ana", "", -time.Minute)
	require.NoError(t, err)
	noUser, err := GenerateToken("secret", 0, "ghost", "", time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]struct{ secret, token string }{
		"wrong secret": {"other", valid},
		"expired":      {"secret", expired},
		"no user":      {"secret", noUser},
		"alg none":     {"secret", none},
		"garbage":      {"secret", "not.a.token"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(tt.secret, tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
