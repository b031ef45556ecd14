package ocr

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/pagelens/pagelens/internal/document"
)

// MaxBenchmarkProviders is the default cap on providers per benchmark run.
const MaxBenchmarkProviders = 4

// BatchDispatcher executes the mediated class: all providers that run on
// system-held credentials, covered by one batched dispatch. Dispatch returns
// a stream of terminal patches, delivered incrementally as each provider
// inside the batch finishes, and closes the channel when the batch is done.
type BatchDispatcher interface {
	Dispatch(ctx context.Context, providerIDs []string, pages []document.PageImage) (<-chan Patch, error)
}

// Orchestrator fans one document out across up to MaxBenchmarkProviders
// providers concurrently, partitioned by execution venue, and aggregates
// their progress into a Session via per-id patches.
type Orchestrator struct {
	registry *Registry
	runner   *Runner
	resolver *Resolver
	mediated BatchDispatcher
	maxRuns  int
}

// NewOrchestrator creates a benchmark orchestrator. maxRuns <= 0 selects
// MaxBenchmarkProviders.
func NewOrchestrator(registry *Registry, runner *Runner, resolver *Resolver, mediated BatchDispatcher, maxRuns int) *Orchestrator {
	if maxRuns <= 0 {
		maxRuns = MaxBenchmarkProviders
	}
	return &Orchestrator{
		registry: registry,
		runner:   runner,
		resolver: resolver,
		mediated: mediated,
		maxRuns:  maxRuns,
	}
}

// partition is the dispatch plan for one benchmark run.
type partition struct {
	local    []string
	direct   map[string]Credential
	mediated []string
	rejected map[string]string
}

// Run starts a benchmark over the selected providers and returns the live
// session plus a stream of outcome patches. The stream closes once every
// outcome is terminal or the context is cancelled; patches arriving after
// cancellation are dropped silently.
//
// Outcome iteration order always follows selection order, never completion
// order.
func (o *Orchestrator) Run(ctx context.Context, providerIDs []string, pages []document.PageImage) (*Session, <-chan Patch, error) {
	if len(providerIDs) == 0 {
		return nil, nil, fmt.Errorf("no providers selected")
	}
	if len(providerIDs) > o.maxRuns {
		return nil, nil, fmt.Errorf("%w: %d selected, maximum is %d", ErrTooManyProviders, len(providerIDs), o.maxRuns)
	}

	descriptors := make([]Descriptor, 0, len(providerIDs))
	seen := make(map[string]bool, len(providerIDs))
	for _, id := range providerIDs {
		if seen[id] {
			return nil, nil, fmt.Errorf("provider %q selected more than once", id)
		}
		seen[id] = true

		p, err := o.registry.Get(id)
		if err != nil {
			return nil, nil, err
		}
		descriptors = append(descriptors, p.Descriptor())
	}

	sess := NewSession(descriptors)
	plan := o.plan(descriptors)

	log.Info().
		Str("session", sess.ID).
		Strs("providers", providerIDs).
		Int("local", len(plan.local)).
		Int("direct", len(plan.direct)).
		Int("mediated", len(plan.mediated)).
		Int("rejected", len(plan.rejected)).
		Int("pages", len(pages)).
		Msg("Benchmark started")

	// Every patch a producer can emit fits in the buffer, so producers never
	// block on a slow consumer: one Running plus one terminal patch per id.
	capacity := 2*len(providerIDs) + 2
	patches := make(chan Patch, capacity)
	updates := make(chan Patch, capacity)

	// Queue Running/rejection patches before any worker starts so the per-id
	// Running -> terminal ordering holds on the update stream.
	for _, d := range descriptors {
		if msg, bad := plan.rejected[d.ID]; bad {
			patches <- Patch{ProviderID: d.ID, State: StateFailed, Error: msg}
			continue
		}
		patches <- Patch{ProviderID: d.ID, State: StateRunning}
	}

	g := &errgroup.Group{}

	for _, id := range plan.local {
		id := id
		g.Go(func() error {
			patches <- o.executeOne(ctx, id, pages, Credential{Mode: SystemHeld})
			return nil
		})
	}
	for id, cred := range plan.direct {
		id, cred := id, cred
		g.Go(func() error {
			patches <- o.executeOne(ctx, id, pages, cred)
			return nil
		})
	}
	if len(plan.mediated) > 0 {
		mediatedIDs := plan.mediated
		g.Go(func() error {
			o.consumeMediated(ctx, mediatedIDs, pages, patches)
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(patches)
	}()

	go func() {
		defer close(updates)
		for p := range patches {
			if ctx.Err() != nil {
				continue // aborted: drain and drop
			}
			if sess.Apply(p) {
				updates <- p
			}
		}
		if sess.Complete() {
			log.Info().Str("session", sess.ID).Msg("Benchmark complete")
		}
	}()

	return sess, updates, nil
}

// plan partitions the selection into the three execution classes.
//
// Local providers and Direct (user-key) providers are dispatched individually
// for earliest per-completion feedback; everything else runs in the mediated
// batch on system credentials. A BYOK provider without a stored key falls
// back to the mediated class when system credentials are available, else its
// outcome fails alone without aborting the session.
func (o *Orchestrator) plan(descriptors []Descriptor) partition {
	plan := partition{
		direct:   make(map[string]Credential),
		rejected: make(map[string]string),
	}

	for _, d := range descriptors {
		if d.ExecutesLocally {
			if !d.Available {
				plan.rejected[d.ID] = fmt.Sprintf("%s is not available on this system", d.DisplayName)
				continue
			}
			plan.local = append(plan.local, d.ID)
			continue
		}

		if d.AcceptsUserCredentials {
			mode, err := o.resolver.Mode(d.ID)
			if err != nil {
				plan.rejected[d.ID] = err.Error()
				continue
			}
			if mode == UserSupplied {
				cred, err := o.resolver.Resolve(d.ID)
				switch {
				case err == nil:
					plan.direct[d.ID] = cred
					continue
				case errors.Is(err, ErrMissingUserCredential) && d.Available:
					// fall back to system credentials via the mediated batch
				default:
					plan.rejected[d.ID] = err.Error()
					continue
				}
			}
		}

		if !d.Available {
			plan.rejected[d.ID] = fmt.Sprintf("%v: %s", ErrNoCredentialsAvailable, d.ID)
			continue
		}
		plan.mediated = append(plan.mediated, d.ID)
	}

	return plan
}

// executeOne runs a single provider and converts the result into a terminal patch.
func (o *Orchestrator) executeOne(ctx context.Context, id string, pages []document.PageImage, cred Credential) Patch {
	result, err := o.runner.Run(ctx, id, pages, cred)
	if err != nil {
		return Patch{ProviderID: id, State: StateFailed, Error: err.Error()}
	}
	return Patch{ProviderID: id, State: StateSucceeded, Result: result}
}

// consumeMediated reads the mediated batch stream, forwarding per-id terminal
// patches. When the stream ends before covering every dispatched id, the
// stragglers fail individually; cancellation stops consumption immediately.
func (o *Orchestrator) consumeMediated(ctx context.Context, ids []string, pages []document.PageImage, patches chan<- Patch) {
	pending := make(map[string]bool, len(ids))
	for _, id := range ids {
		pending[id] = true
	}

	fail := func(msg string) {
		for id := range pending {
			patches <- Patch{ProviderID: id, State: StateFailed, Error: msg}
		}
	}

	stream, err := o.mediated.Dispatch(ctx, ids, pages)
	if err != nil {
		fail(fmt.Sprintf("benchmark dispatch failed: %v", err))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-stream:
			if !ok {
				if len(pending) > 0 {
					fail("benchmark stream ended before a result was delivered")
				}
				return
			}
			if !pending[p.ProviderID] {
				// unknown or duplicate id from the stream; skip without aborting
				log.Warn().Str("provider", p.ProviderID).Msg("Unexpected provider in benchmark stream")
				continue
			}
			if p.State.Terminal() {
				delete(pending, p.ProviderID)
				patches <- p
			}
		}
	}
}

// inProcessDispatcher is the server-side mediated batch: each provider is an
// independent outbound call from this process, fanned out concurrently with
// incremental delivery as each finishes.
type inProcessDispatcher struct {
	runner *Runner
}

// NewInProcessDispatcher creates the in-process mediated batch dispatcher.
func NewInProcessDispatcher(runner *Runner) BatchDispatcher {
	return &inProcessDispatcher{runner: runner}
}

func (d *inProcessDispatcher) Dispatch(ctx context.Context, providerIDs []string, pages []document.PageImage) (<-chan Patch, error) {
	out := make(chan Patch, len(providerIDs))

	g := &errgroup.Group{}
	for _, id := range providerIDs {
		id := id
		g.Go(func() error {
			result, err := d.runner.Run(ctx, id, pages, Credential{Mode: SystemHeld})
			if err != nil {
				out <- Patch{ProviderID: id, State: StateFailed, Error: err.Error()}
				return nil
			}
			out <- Patch{ProviderID: id, State: StateSucceeded, Result: result}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(out)
	}()

	return out, nil
}
