package auth

import (
	"testing"
	"time"

	"github.com/erp/procurement/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars!!",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "procurement-recon",
	})
}

func TestJWTService_GenerateToken(t *testing.T) {
	t.Run("issues a token with actor claims", func(t *testing.T) {
		svc := newTestService()

		token, expiresAt, err := svc.GenerateToken("ap.clerk", "reviewer")

		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, time.Minute)
	})

	t.Run("rejects empty actor", func(t *testing.T) {
		svc := newTestService()

		_, _, err := svc.GenerateToken("", "reviewer")

		assert.ErrorIs(t, err, ErrMissingActor)
	})
}

func TestJWTService_ValidateToken(t *testing.T) {
	t.Run("round trips claims", func(t *testing.T) {
		svc := newTestService()
		token, _, err := svc.GenerateToken("ap.clerk", "reviewer")
		require.NoError(t, err)

		claims, err := svc.ValidateToken(token)

		require.NoError(t, err)
		assert.Equal(t, "ap.clerk", claims.Actor)
		assert.Equal(t, "reviewer", claims.Role)
		assert.Equal(t, "procurement-recon", claims.Issuer)
	})

	t.Run("rejects token signed with another secret", func(t *testing.T) {
		svc := newTestService()
		other := NewJWTService(config.JWTConfig{
			Secret:                "another-secret-key-also-32-chars!!!",
			AccessTokenExpiration: 15 * time.Minute,
			Issuer:                "procurement-recon",
		})
		token, _, err := other.GenerateToken("ap.clerk", "")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)

		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		svc := NewJWTService(config.JWTConfig{
			Secret:                "test-secret-key-at-least-32-chars!!",
			AccessTokenExpiration: -time.Minute,
			Issuer:                "procurement-recon",
		})
		token, _, err := svc.GenerateToken("ap.clerk", "")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)

		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		svc := newTestService()

		_, err := svc.ValidateToken("not.a.token")

		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
