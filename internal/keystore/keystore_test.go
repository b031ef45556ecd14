package keystore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	s := NewMemoryStore()

	key, err := s.Get("openai")
	require.NoError(t, err)
	assert.Empty(t, key)

	require.NoError(t, s.Set("openai", "sk-test"))

	key, err = s.Get("openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", key)

	require.NoError(t, s.Delete("openai"))

	key, err = s.Get("openai")
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestMemoryStore_DeterministicAddressing(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Set("azure-docint", "key-1"))

	// A second reference to the same provider id addresses the same value.
	key, err := s.Get("azure-docint")
	require.NoError(t, err)
	assert.Equal(t, "key-1", key)

	// Other provider ids are unaffected.
	other, err := s.Get("openai")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestNullStore_AllOpsNoop(t *testing.T) {
	s := NullStore{}

	require.NoError(t, s.Set("openai", "sk-test"))

	key, err := s.Get("openai")
	require.NoError(t, err)
	assert.Empty(t, key, "retrieval on storage-less environments always yields absent")

	require.NoError(t, s.Delete("openai"))
}

func TestAccountDerivation(t *testing.T) {
	assert.Equal(t, "provider:openai", account("openai"))
	assert.Equal(t, "provider:google-vision", account("google-vision"))
}
