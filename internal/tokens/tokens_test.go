package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, err := NewAccessToken(42, "admin", secret, time.Minute)
	require.NoError(t, err)

	claims, err := AccessClaimsFromToken(token, secret)
	require.NoError(t, err)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
	assert.Equal(t, "admin", claims.Role)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	token, err := NewAccessToken(1, "user", []byte("right"), time.Minute)
	require.NoError(t, err)

	_, err = AccessClaimsFromToken(token, []byte("wrong"))
	assert.Error(t, err)
}

func TestAccessTokenExpired(t *testing.T) {
	secret := []byte("test-secret")
	token, err := NewAccessToken(1, "user", secret, -time.Minute)
	require.NoError(t, err)

	_, err = AccessClaimsFromToken(token, secret)
	assert.Error(t, err)
}

func TestAccessTokenGarbage(t *testing.T) {
	_, err := AccessClaimsFromToken("not.a.token", []byte("secret"))
	assert.Error(t, err)
}
