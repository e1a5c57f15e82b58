package run

import (
	"sync"
	"time"

	"github.com/jwebster45206/dilemma-engine/pkg/scoring"
)

// Store holds the live state of a run for a single client. All access is
// serialized, so the check-and-set helpers are atomic.
type Store struct {
	mu    sync.Mutex
	state GameRunState
	now   func() time.Time
}

// NewStore creates a store seeded with the given state.
func NewStore(initial GameRunState) *Store {
	return &Store{
		state: initial.clone(),
		now:   time.Now,
	}
}

// Dispatch applies an action to the held state.
func (st *Store) Dispatch(a Action) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	next, err := Reduce(st.state, a)
	if err != nil {
		return err
	}
	st.state = next
	return nil
}

// Snapshot returns a copy of the current state.
func (st *Store) Snapshot() GameRunState {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state.clone()
}

// TryMarkCalculated persists the breakdown if no breakdown has been
// persisted yet. It reports whether this call did the persisting.
func (st *Store) TryMarkCalculated(b scoring.ScoreBreakdown) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.state.FinalScoreCalculated {
		return false
	}
	next, err := Reduce(st.state, CalculateFinalScore{Breakdown: b, Now: st.now()})
	if err != nil {
		return false
	}
	st.state = next
	return true
}

// TryMarkSubmitted sets the submitted flag if it is not already set and
// reports whether this call set it.
func (st *Store) TryMarkSubmitted() bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	next, err := Reduce(st.state, MarkSubmitted{Now: st.now()})
	if err != nil {
		return false
	}
	st.state = next
	return true
}
