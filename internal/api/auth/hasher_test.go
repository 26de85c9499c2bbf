package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher(t *testing.T) {
	// MinCost keeps the test fast; the work factor does not change behavior.
	hasher := NewHasher(bcrypt.MinCost)

	t.Run("HashAndCompare", func(t *testing.T) {
		hash, err := hasher.Hash("correct-horse-battery")
		require.NoError(t, err)
		assert.NotEqual(t, "correct-horse-battery", hash)

		assert.True(t, hasher.Compare(hash, "correct-horse-battery"))
		assert.False(t, hasher.Compare(hash, "wrong-password"))
	})

	t.Run("HashesAreSalted", func(t *testing.T) {
		first, err := hasher.Hash("password123")
		require.NoError(t, err)
		second, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("CompareAgainstGarbageHash", func(t *testing.T) {
		assert.False(t, hasher.Compare("", "anything"))
		assert.False(t, hasher.Compare("not-a-bcrypt-hash", "anything"))
	})
}

func TestNewHasherCostFallback(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewHasher(0).cost)
	assert.Equal(t, DefaultBcryptCost, NewHasher(-1).cost)
	assert.Equal(t, bcrypt.MinCost, NewHasher(bcrypt.MinCost).cost)
}
