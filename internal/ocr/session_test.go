package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoProviderSession() *Session {
	return NewSession([]Descriptor{
		{ID: "a", DisplayName: "A"},
		{ID: "b", DisplayName: "B"},
	})
}

func TestSession_PerIDIsolation(t *testing.T) {
	s := twoProviderSession()

	applied := s.Apply(Patch{ProviderID: "a", State: StateFailed, Error: "boom"})
	assert.True(t, applied)

	a, err := s.Outcome("a")
	require.NoError(t, err)
	assert.Equal(t, StateFailed, a.State)
	assert.Equal(t, "boom", a.Error)

	b, err := s.Outcome("b")
	require.NoError(t, err)
	assert.Equal(t, StateQueued, b.State, "a patch for provider A never mutates provider B")
	assert.Empty(t, b.Error)
}

func TestSession_TerminalStateNeverOverwritten(t *testing.T) {
	s := twoProviderSession()

	require.True(t, s.Apply(Patch{ProviderID: "a", State: StateSucceeded, Result: &Result{FullText: "hello"}}))

	// a later patch for the same id is a no-op
	assert.False(t, s.Apply(Patch{ProviderID: "a", State: StateFailed, Error: "late failure"}))

	a, err := s.Outcome("a")
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, a.State)
	require.NotNil(t, a.Result)
	assert.Equal(t, "hello", a.Result.FullText)
	assert.Empty(t, a.Error)
}

func TestSession_UnknownIDPatchIsNoop(t *testing.T) {
	s := twoProviderSession()
	assert.False(t, s.Apply(Patch{ProviderID: "zzz", State: StateFailed, Error: "x"}))
	assert.Len(t, s.Outcomes(), 2)
}

func TestSession_CompletionDerivedFromTerminalStates(t *testing.T) {
	s := twoProviderSession()
	assert.False(t, s.Complete())
	assert.Zero(t, s.CompletedAt())

	s.Apply(Patch{ProviderID: "a", State: StateRunning})
	s.Apply(Patch{ProviderID: "a", State: StateSucceeded, Result: &Result{}})
	assert.False(t, s.Complete())
	assert.Zero(t, s.CompletedAt())

	s.Apply(Patch{ProviderID: "b", State: StateFailed, Error: "nope"})
	assert.True(t, s.Complete())
	assert.NotZero(t, s.CompletedAt())
}

func TestSession_OutcomesFollowSelectionOrder(t *testing.T) {
	s := NewSession([]Descriptor{
		{ID: "z", DisplayName: "Z"},
		{ID: "m", DisplayName: "M"},
		{ID: "a", DisplayName: "A"},
	})

	// complete in reverse order
	s.Apply(Patch{ProviderID: "a", State: StateSucceeded, Result: &Result{}})
	s.Apply(Patch{ProviderID: "m", State: StateSucceeded, Result: &Result{}})
	s.Apply(Patch{ProviderID: "z", State: StateSucceeded, Result: &Result{}})

	var ids []string
	for _, o := range s.Outcomes() {
		ids = append(ids, o.ProviderID)
	}
	assert.Equal(t, []string{"z", "m", "a"}, ids, "iteration follows selection order, never completion order")
}

func TestRestoreSession_PreservesOrderAndOutcomes(t *testing.T) {
	outcomes := []Outcome{
		{ProviderID: "b", ProviderName: "B", State: StateSucceeded, Result: &Result{FullText: "x"}},
		{ProviderID: "a", ProviderName: "A", State: StateFailed, Error: "err"},
	}
	s := RestoreSession("sess-1", outcomes, 123)

	assert.Equal(t, "sess-1", s.ID)
	assert.Equal(t, int64(123), s.CompletedAt())
	restored := s.Outcomes()
	require.Len(t, restored, 2)
	assert.Equal(t, "b", restored[0].ProviderID)
	assert.Equal(t, "a", restored[1].ProviderID)
}
