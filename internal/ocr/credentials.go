package ocr

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// KeyStore is the contract for user-supplied credential storage. A stored key
// is addressed by the provider id alone, so two sessions referencing the same
// provider always address the same value. Implementations without persistent
// storage return empty keys and treat writes as no-ops.
type KeyStore interface {
	Get(providerID string) (string, error)
	Set(providerID, key string) error
	Delete(providerID string) error
}

// Resolver decides, per provider, whether a run uses system-held credentials,
// user-supplied credentials, or local execution with no credentials at all.
type Resolver struct {
	registry *Registry
	keys     KeyStore

	mu    sync.Mutex
	modes map[string]CredentialMode
}

// NewResolver creates a resolver over the registry and user key store.
func NewResolver(registry *Registry, keys KeyStore) *Resolver {
	return &Resolver{
		registry: registry,
		keys:     keys,
		modes:    make(map[string]CredentialMode),
	}
}

// SetMode records the user's per-session credential mode choice for a
// provider. Only meaningful for providers that accept user credentials.
func (r *Resolver) SetMode(providerID string, mode CredentialMode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modes[providerID] = mode
}

// Mode returns the effective credential mode for a provider: the explicit
// per-session choice if one was made, else SystemHeld when the system
// advertises availability, else UserSupplied.
func (r *Resolver) Mode(providerID string) (CredentialMode, error) {
	p, err := r.registry.Get(providerID)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	mode, chosen := r.modes[providerID]
	r.mu.Unlock()
	if chosen {
		return mode, nil
	}

	if p.Descriptor().Available {
		return SystemHeld, nil
	}
	return UserSupplied, nil
}

// Resolve produces the credential for one provider run.
//
// Providers that do not accept user credentials always resolve to SystemHeld
// with no key; the adapter needs no external key or holds the system one
// itself. For BYOK providers, SystemHeld requires advertised system
// availability and UserSupplied requires a non-empty stored key.
func (r *Resolver) Resolve(providerID string) (Credential, error) {
	p, err := r.registry.Get(providerID)
	if err != nil {
		return Credential{}, err
	}
	d := p.Descriptor()

	if !d.AcceptsUserCredentials {
		return Credential{Mode: SystemHeld}, nil
	}

	mode, err := r.Mode(providerID)
	if err != nil {
		return Credential{}, err
	}

	switch mode {
	case SystemHeld:
		if !d.Available {
			return Credential{}, fmt.Errorf("%w: %s", ErrNoCredentialsAvailable, providerID)
		}
		return Credential{Mode: SystemHeld}, nil
	case UserSupplied:
		key, err := r.keys.Get(providerID)
		if err != nil {
			return Credential{}, fmt.Errorf("reading stored key for %s: %w", providerID, err)
		}
		if key == "" {
			return Credential{}, fmt.Errorf("%w: %s", ErrMissingUserCredential, providerID)
		}
		return Credential{Mode: UserSupplied, Key: key}, nil
	default:
		return Credential{}, fmt.Errorf("unknown credential mode %q for %s", mode, providerID)
	}
}

// Probe verifies true system-side availability for every credential-gated
// provider by running a trivial authenticated check against each. Providers
// without a checker (or without system credentials) report false; local
// providers are skipped.
func Probe(ctx context.Context, registry *Registry) map[string]bool {
	var mu sync.Mutex
	out := make(map[string]bool)

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range registry.IDs() {
		p, _ := registry.Get(id)
		d := p.Descriptor()
		if d.ExecutesLocally || !d.AcceptsUserCredentials {
			continue
		}

		checker, ok := p.(CredentialChecker)
		if !ok || !d.Available {
			mu.Lock()
			out[id] = false
			mu.Unlock()
			continue
		}

		id := id
		g.Go(func() error {
			err := checker.CheckCredentials(gctx, Credential{Mode: SystemHeld})
			if err != nil {
				log.Debug().Err(err).Str("provider", id).Msg("Credential probe failed")
			}
			mu.Lock()
			out[id] = err == nil
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}
