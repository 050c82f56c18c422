package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveAuthCookieIsDeterministicPerFriend(t *testing.T) {
	secret := []byte("hidden-service-secret")

	c1, err := DeriveAuthCookie(secret, "alice")
	require.NoError(t, err)
	c2, err := DeriveAuthCookie(secret, "alice")
	require.NoError(t, err)
	require.Equal(t, c1, c2)
	require.Len(t, c1, 32)

	c3, err := DeriveAuthCookie(secret, "bob")
	require.NoError(t, err)
	require.NotEqual(t, c1, c3)
}

func TestDeriveAuthCookieVariesBySecret(t *testing.T) {
	c1, err := DeriveAuthCookie([]byte("secret-a"), "alice")
	require.NoError(t, err)
	c2, err := DeriveAuthCookie([]byte("secret-b"), "alice")
	require.NoError(t, err)
	require.NotEqual(t, c1, c2)
}
