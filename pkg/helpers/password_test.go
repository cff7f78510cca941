package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPasswordCost("Secret1!", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "Secret1!", hash)

	assert.True(t, CompareHashAndPassword(hash, "Secret1!"))
	assert.False(t, CompareHashAndPassword(hash, "secret1!"))
}

func TestHashPasswordCost_FallsBackToDefault(t *testing.T) {
	hash, err := HashPasswordCost("pw", 99)
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestHashPassword_Salted(t *testing.T) {
	a, err := HashPasswordCost("same", bcrypt.MinCost)
	require.NoError(t, err)
	b, err := HashPasswordCost("same", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
