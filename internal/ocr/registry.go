package ocr

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Registry is the fixed catalog of OCR providers, resolved by id lookup.
// Registration order is preserved for catalog listings.
type Registry struct {
	order     []string
	providers map[string]Provider
}

// NewRegistry builds a registry from the given providers. Duplicate ids are
// rejected at construction.
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{
		providers: make(map[string]Provider, len(providers)),
	}
	for _, p := range providers {
		id := p.ID()
		if _, exists := r.providers[id]; exists {
			return nil, fmt.Errorf("duplicate provider id %q", id)
		}
		r.providers[id] = p
		r.order = append(r.order, id)

		d := p.Descriptor()
		log.Debug().
			Str("provider", id).
			Bool("local", d.ExecutesLocally).
			Bool("byok", d.AcceptsUserCredentials).
			Bool("available", d.Available).
			Msg("OCR provider registered")
	}
	return r, nil
}

// Get resolves a provider by id.
func (r *Registry) Get(id string) (Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, id)
	}
	return p, nil
}

// List returns the descriptors of all registered providers in registration order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.providers[id].Descriptor())
	}
	return out
}

// Providers returns all registered providers in registration order.
func (r *Registry) Providers() []Provider {
	out := make([]Provider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.providers[id])
	}
	return out
}

// IDs returns all registered provider ids in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
