package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasklane/tasklane/internal/shared/authorization"
)

func TestJWTService_GenerateAndVerify(t *testing.T) {
	svc := NewJWTService("test-secret", 15)

	issued, err := svc.Generate(42, authorization.RoleAdmin)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.AccessToken)

	claims, err := svc.Verify(issued.AccessToken)
	require.NoError(t, err)
	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.EqualValues(t, 42, userID)
	assert.Equal(t, authorization.RoleAdmin, claims.Role)
}

func TestJWTService_RejectsBadTokens(t *testing.T) {
	svc := NewJWTService("test-secret", 15)

	t.Run("wrong secret", func(t *testing.T) {
		issued, err := NewJWTService("other-secret", 15).Generate(1, authorization.RoleUser)
		require.NoError(t, err)
		_, err = svc.Verify(issued.AccessToken)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		past := time.Now().Add(-2 * time.Hour)
		expired := NewJWTService("test-secret", 15)
		expired.now = func() time.Time { return past }
		issued, err := expired.Generate(1, authorization.RoleUser)
		require.NoError(t, err)
		_, err = svc.Verify(issued.AccessToken)
		assert.Error(t, err)
	})

	t.Run("non numeric subject", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    issuer,
				Subject:   "alice",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := token.SignedString([]byte("test-secret"))
		require.NoError(t, err)
		_, err = svc.Verify(signed)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Verify("not-a-token")
		assert.Error(t, err)
	})

	t.Run("zero user", func(t *testing.T) {
		_, err := svc.Generate(0, authorization.RoleUser)
		assert.Error(t, err)
	})
}
