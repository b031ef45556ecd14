package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/internal/keystore"
)

func resolverFixture(t *testing.T) (*Resolver, *keystore.MemoryStore) {
	t.Helper()
	r, err := NewRegistry(
		&fakeProvider{id: "local", name: "Local", local: true, available: true},
		&fakeProvider{id: "hosted", name: "Hosted", byok: true, available: true},
		&fakeProvider{id: "byok-only", name: "BYOK Only", byok: true, available: false},
	)
	require.NoError(t, err)

	keys := keystore.NewMemoryStore()
	return NewResolver(r, keys), keys
}

func TestResolver_LocalProviderAlwaysSystemHeld(t *testing.T) {
	r, _ := resolverFixture(t)

	cred, err := r.Resolve("local")
	require.NoError(t, err)
	assert.Equal(t, SystemHeld, cred.Mode)
	assert.Empty(t, cred.Key)
}

func TestResolver_DefaultModeFollowsAvailability(t *testing.T) {
	r, _ := resolverFixture(t)

	mode, err := r.Mode("hosted")
	require.NoError(t, err)
	assert.Equal(t, SystemHeld, mode, "system availability defaults to SystemHeld")

	mode, err = r.Mode("byok-only")
	require.NoError(t, err)
	assert.Equal(t, UserSupplied, mode, "no system availability defaults to UserSupplied")
}

func TestResolver_SystemHeldWithoutAvailabilityFails(t *testing.T) {
	r, _ := resolverFixture(t)
	r.SetMode("byok-only", SystemHeld)

	_, err := r.Resolve("byok-only")
	assert.ErrorIs(t, err, ErrNoCredentialsAvailable)
}

func TestResolver_UserSuppliedRequiresStoredKey(t *testing.T) {
	r, keys := resolverFixture(t)
	r.SetMode("hosted", UserSupplied)

	_, err := r.Resolve("hosted")
	assert.ErrorIs(t, err, ErrMissingUserCredential)

	require.NoError(t, keys.Set("hosted", "sk-user"))

	cred, err := r.Resolve("hosted")
	require.NoError(t, err)
	assert.Equal(t, UserSupplied, cred.Mode)
	assert.Equal(t, "sk-user", cred.Key)
}

func TestResolver_UnknownProvider(t *testing.T) {
	r, _ := resolverFixture(t)

	_, err := r.Resolve("missing")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = r.Mode("missing")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
