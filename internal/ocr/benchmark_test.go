package ocr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/internal/document"
	"github.com/pagelens/pagelens/internal/keystore"
)

type benchFixture struct {
	registry *Registry
	runner   *Runner
	resolver *Resolver
	keys     *keystore.MemoryStore
	local    *fakeProvider
	hosted   *fakeProvider
	byok     *fakeProvider
	broken   *fakeProvider
}

func newBenchFixture(t *testing.T) *benchFixture {
	t.Helper()

	f := &benchFixture{
		local:  &fakeProvider{id: "local", name: "Local Engine", local: true, available: true, pageText: "local"},
		hosted: &fakeProvider{id: "hosted", name: "Hosted", byok: true, available: true, pageText: "hosted"},
		byok:   &fakeProvider{id: "byok", name: "BYOK", byok: true, available: true, pageText: "byok"},
		broken: &fakeProvider{id: "broken", name: "Broken", available: true, err: &ProviderError{Provider: "broken", Kind: ErrOther, Message: "engine crash"}},
	}

	registry, err := NewRegistry(f.local, f.hosted, f.byok, f.broken)
	require.NoError(t, err)

	f.registry = registry
	f.runner = NewRunner(registry)
	f.keys = keystore.NewMemoryStore()
	f.resolver = NewResolver(registry, f.keys)
	return f
}

func (f *benchFixture) orchestrator() *Orchestrator {
	return NewOrchestrator(f.registry, f.runner, f.resolver, NewInProcessDispatcher(f.runner), 0)
}

func waitComplete(t *testing.T, sess *Session, updates <-chan Patch) []Patch {
	t.Helper()

	done := make(chan []Patch, 1)
	go func() { done <- collectPatches(updates) }()

	select {
	case patches := <-done:
		return patches
	case <-time.After(5 * time.Second):
		t.Fatal("benchmark did not complete in time")
		return nil
	}
}

func TestBenchmark_Completeness(t *testing.T) {
	f := newBenchFixture(t)

	sess, updates, err := f.orchestrator().Run(context.Background(), []string{"local", "hosted", "broken"}, testPages(2))
	require.NoError(t, err)

	waitComplete(t, sess, updates)

	require.True(t, sess.Complete())
	assert.NotZero(t, sess.CompletedAt())

	outcomes := sess.Outcomes()
	require.Len(t, outcomes, 3, "exactly one terminal entry per selected id")
	for _, o := range outcomes {
		assert.True(t, o.State.Terminal(), "outcome %s not terminal", o.ProviderID)
	}

	local, _ := sess.Outcome("local")
	assert.Equal(t, StateSucceeded, local.State)
	require.NotNil(t, local.Result)
	assert.Equal(t, "local page 1\n\nlocal page 2", local.Result.FullText)

	broken, _ := sess.Outcome("broken")
	assert.Equal(t, StateFailed, broken.State)
	assert.Contains(t, broken.Error, "engine crash")
	assert.Nil(t, broken.Result)
}

func TestBenchmark_FailureIsolation(t *testing.T) {
	f := newBenchFixture(t)

	sess, updates, err := f.orchestrator().Run(context.Background(), []string{"broken", "hosted"}, testPages(1))
	require.NoError(t, err)
	waitComplete(t, sess, updates)

	hosted, _ := sess.Outcome("hosted")
	assert.Equal(t, StateSucceeded, hosted.State, "one provider's failure never aborts siblings")
}

func TestBenchmark_SelectionValidation(t *testing.T) {
	f := newBenchFixture(t)
	o := f.orchestrator()

	_, _, err := o.Run(context.Background(), nil, testPages(1))
	assert.Error(t, err)

	_, _, err = o.Run(context.Background(), []string{"local", "hosted", "byok", "broken", "local"}, testPages(1))
	assert.ErrorIs(t, err, ErrTooManyProviders)

	_, _, err = o.Run(context.Background(), []string{"local", "local"}, testPages(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than once")

	_, _, err = o.Run(context.Background(), []string{"nope"}, testPages(1))
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestBenchmark_DirectClassUsesUserKey(t *testing.T) {
	f := newBenchFixture(t)
	require.NoError(t, f.keys.Set("byok", "sk-user"))
	f.resolver.SetMode("byok", UserSupplied)

	sess, updates, err := f.orchestrator().Run(context.Background(), []string{"byok"}, testPages(1))
	require.NoError(t, err)
	waitComplete(t, sess, updates)

	o, _ := sess.Outcome("byok")
	assert.Equal(t, StateSucceeded, o.State)
}

func TestBenchmark_MissingKeyFallsBackToMediated(t *testing.T) {
	f := newBenchFixture(t)
	// UserSupplied chosen, no key stored, system credentials available:
	// excluded from the Direct class and handled by the Mediated class.
	f.resolver.SetMode("byok", UserSupplied)

	sess, updates, err := f.orchestrator().Run(context.Background(), []string{"byok"}, testPages(1))
	require.NoError(t, err)
	waitComplete(t, sess, updates)

	o, _ := sess.Outcome("byok")
	assert.Equal(t, StateSucceeded, o.State)
}

func TestBenchmark_MissingKeyNoSystemFailsAlone(t *testing.T) {
	f := newBenchFixture(t)
	unavailable := &fakeProvider{id: "dark", name: "Dark", byok: true, available: false}
	registry, err := NewRegistry(f.local, unavailable)
	require.NoError(t, err)

	runner := NewRunner(registry)
	resolver := NewResolver(registry, f.keys)
	o := NewOrchestrator(registry, runner, resolver, NewInProcessDispatcher(runner), 0)

	sess, updates, err := o.Run(context.Background(), []string{"dark", "local"}, testPages(1))
	require.NoError(t, err)
	waitComplete(t, sess, updates)

	dark, _ := sess.Outcome("dark")
	assert.Equal(t, StateFailed, dark.State, "credential rejection is per-id, not a whole-session abort")
	assert.NotEmpty(t, dark.Error)

	local, _ := sess.Outcome("local")
	assert.Equal(t, StateSucceeded, local.State)
}

func TestBenchmark_RunningPrecedesTerminalPerID(t *testing.T) {
	f := newBenchFixture(t)

	sess, updates, err := f.orchestrator().Run(context.Background(), []string{"local", "hosted"}, testPages(1))
	require.NoError(t, err)
	patches := waitComplete(t, sess, updates)

	seenRunning := make(map[string]bool)
	for _, p := range patches {
		switch p.State {
		case StateRunning:
			seenRunning[p.ProviderID] = true
		case StateSucceeded, StateFailed:
			assert.True(t, seenRunning[p.ProviderID], "terminal patch for %s before Running", p.ProviderID)
		}
	}
}

func TestBenchmark_Cancellation(t *testing.T) {
	f := newBenchFixture(t)
	f.local.delay = 50 * time.Millisecond
	f.hosted.delay = 2 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	sess, updates, err := f.orchestrator().Run(ctx, []string{"local", "hosted"}, testPages(1))
	require.NoError(t, err)

	cancel()
	waitComplete(t, sess, updates)

	// results arriving after the abort are dropped; the session never
	// reports completion
	assert.False(t, sess.Complete())
}

type scriptedDispatcher struct {
	patches []Patch
	err     error
}

func (d *scriptedDispatcher) Dispatch(ctx context.Context, ids []string, pages []document.PageImage) (<-chan Patch, error) {
	if d.err != nil {
		return nil, d.err
	}
	ch := make(chan Patch, len(d.patches))
	for _, p := range d.patches {
		ch <- p
	}
	close(ch)
	return ch, nil
}

func TestBenchmark_MediatedStreamEndsEarly(t *testing.T) {
	f := newBenchFixture(t)
	// stream delivers hosted but ends before byok's result
	dispatcher := &scriptedDispatcher{patches: []Patch{
		{ProviderID: "hosted", State: StateSucceeded, Result: &Result{FullText: "ok", ProviderLabel: "Hosted"}},
	}}
	o := NewOrchestrator(f.registry, f.runner, f.resolver, dispatcher, 0)

	sess, updates, err := o.Run(context.Background(), []string{"hosted", "byok"}, testPages(1))
	require.NoError(t, err)
	waitComplete(t, sess, updates)

	hosted, _ := sess.Outcome("hosted")
	assert.Equal(t, StateSucceeded, hosted.State)

	byok, _ := sess.Outcome("byok")
	assert.Equal(t, StateFailed, byok.State)
	assert.Contains(t, byok.Error, "stream ended")
	assert.True(t, sess.Complete())
}
