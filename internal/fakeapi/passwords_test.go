package fakeapi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPasswordHash(t *testing.T) {
	hash, err := hashPassword("secret1")
	require.NoError(t, err)
	require.NotEqual(t, "secret1", hash)
	require.True(t, checkPasswordHash("secret1", hash))
	require.False(t, checkPasswordHash("secret2", hash))
}
