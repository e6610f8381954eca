package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse(t *testing.T) {
	token, err := Sign("user-1", "sess-1", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "sess-1", claims.SessionID)
}

func TestParseExpired(t *testing.T) {
	token, err := Sign("user-1", "sess-1", -time.Minute)
	require.NoError(t, err)

	_, err = Parse(token)
	assert.Error(t, err)
}

func TestParseGarbage(t *testing.T) {
	_, err := Parse("not.a.token")
	assert.Error(t, err)
}

func TestParseWrongSecret(t *testing.T) {
	SetSecret("secret-a")
	token, err := Sign("user-1", "", time.Hour)
	require.NoError(t, err)

	SetSecret("secret-b")
	defer SetSecret("secret-a")

	_, err = Parse(token)
	assert.Error(t, err)
}
