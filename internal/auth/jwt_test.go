package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func claims(aud, iss string, exp time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"sub": "uploader",
		"exp": exp.Unix(),
		"iat": time.Now().Unix(),
		"iss": iss,
		"aud": aud,
	}
}

func TestJWTAuthenticator(t *testing.T) {
	a := NewJWTAuth("secret", "image-variants", "image-variants")
	later := time.Now().Add(time.Hour)

	t.Run("round trip", func(t *testing.T) {
		token, err := a.GenerateToken(claims("image-variants", "image-variants", later))
		require.NoError(t, err)

		parsed, err := a.ValidateToken(token)
		require.NoError(t, err)
		assert.True(t, parsed.Valid)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := a.GenerateToken(claims("image-variants", "image-variants", time.Now().Add(-time.Hour)))
		require.NoError(t, err)

		_, err = a.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("wrong audience", func(t *testing.T) {
		token, err := a.GenerateToken(claims("someone-else", "image-variants", later))
		require.NoError(t, err)

		_, err = a.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenInvalidAudience)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTAuth("other", "image-variants", "image-variants")
		token, err := other.GenerateToken(claims("image-variants", "image-variants", later))
		require.NoError(t, err)

		_, err = a.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("missing expiry", func(t *testing.T) {
		token, err := a.GenerateToken(jwt.MapClaims{"iss": "image-variants", "aud": "image-variants"})
		require.NoError(t, err)

		_, err = a.ValidateToken(token)
		assert.Error(t, err)
	})
}
