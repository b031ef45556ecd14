package ocr

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// OutcomeState is the lifecycle state of one provider's benchmark outcome.
type OutcomeState string

const (
	StateQueued    OutcomeState = "queued"
	StateRunning   OutcomeState = "running"
	StateSucceeded OutcomeState = "succeeded"
	StateFailed    OutcomeState = "failed"
)

// Terminal reports whether s is a terminal state.
func (s OutcomeState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Outcome is the per-provider record of a benchmark run's progress. Exactly
// one of Result/Error is set once the state is terminal; both are absent
// while Queued or Running.
type Outcome struct {
	ProviderID   string       `json:"providerId"`
	ProviderName string       `json:"providerName"`
	Result       *Result      `json:"result,omitempty"`
	Error        string       `json:"error,omitempty"`
	State        OutcomeState `json:"status"`
}

// Patch is a single-key update to one provider's outcome. Patches are applied
// independently; a patch for provider A never touches provider B's outcome.
type Patch struct {
	ProviderID string       `json:"providerId"`
	State      OutcomeState `json:"status"`
	Result     *Result      `json:"result,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Session tracks one benchmark run: one outcome per selected provider, in
// selection order. Outcomes are mutated in place by per-id patches and never
// removed. CompletedAt stays 0 until every outcome is terminal, then is set
// exactly once.
type Session struct {
	ID string

	mu          sync.Mutex
	order       []string
	outcomes    map[string]*Outcome
	completedAt int64
}

// NewSession creates a session with one Queued outcome per provider, in the
// given selection order.
func NewSession(providers []Descriptor) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		outcomes: make(map[string]*Outcome, len(providers)),
	}
	for _, d := range providers {
		s.order = append(s.order, d.ID)
		s.outcomes[d.ID] = &Outcome{
			ProviderID:   d.ID,
			ProviderName: d.DisplayName,
			State:        StateQueued,
		}
	}
	return s
}

// Apply applies a single-key patch. Patching an unknown id or a terminal
// outcome is a no-op; Apply reports whether the patch changed anything.
func (s *Session) Apply(p Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.outcomes[p.ProviderID]
	if !ok || o.State.Terminal() {
		return false
	}

	o.State = p.State
	if p.State.Terminal() {
		o.Result = p.Result
		o.Error = p.Error
	}

	if s.completedAt == 0 && s.allTerminalLocked() {
		s.completedAt = time.Now().UnixMilli()
	}
	return true
}

func (s *Session) allTerminalLocked() bool {
	for _, o := range s.outcomes {
		if !o.State.Terminal() {
			return false
		}
	}
	return true
}

// Complete reports whether every outcome has reached a terminal state.
func (s *Session) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allTerminalLocked()
}

// CompletedAt returns the completion timestamp in epoch milliseconds, or 0
// while any outcome is non-terminal.
func (s *Session) CompletedAt() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completedAt
}

// Outcomes returns a snapshot of all outcomes in selection order, never
// completion order.
func (s *Session) Outcomes() []Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Outcome, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.outcomes[id])
	}
	return out
}

// Outcome returns a snapshot of one provider's outcome.
func (s *Session) Outcome(providerID string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.outcomes[providerID]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownProvider, providerID)
	}
	return *o, nil
}

// RestoreSession rebuilds a session from an outcome snapshot, preserving its
// order. Used by export surfaces that receive a serialized session from the
// caller.
func RestoreSession(id string, outcomes []Outcome, completedAt int64) *Session {
	s := &Session{
		ID:          id,
		outcomes:    make(map[string]*Outcome, len(outcomes)),
		completedAt: completedAt,
	}
	for i := range outcomes {
		o := outcomes[i]
		s.order = append(s.order, o.ProviderID)
		s.outcomes[o.ProviderID] = &o
	}
	return s
}
