package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xbanchon/image-variant-service/internal/auth"
)

func TestNewToken(t *testing.T) {
	token, err := newToken("s3cret", "image-variants", "ops", "ci", time.Hour, time.Now())
	require.NoError(t, err)

	parsed, err := auth.NewJWTAuth("s3cret", "image-variants", "ops").ValidateToken(token)
	require.NoError(t, err)

	subject, err := parsed.Claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, "ci", subject)
}

func TestNewTokenExpired(t *testing.T) {
	token, err := newToken("s3cret", "image-variants", "ops", "ci", time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = auth.NewJWTAuth("s3cret", "image-variants", "ops").ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("AUTH_SECRET", "from-env")
	t.Setenv("AUTH_AUDIENCE", "aud")
	t.Setenv("AUTH_ISSUER", "iss")

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{"token", "--subject", "tester", "--ttl", "10m"})
	require.NoError(t, rootCmd.Execute())

	_, err := auth.NewJWTAuth("from-env", "aud", "iss").ValidateToken(strings.TrimSpace(out.String()))
	assert.NoError(t, err)
}
