package run

import (
	"math"
	"sync"

	"github.com/jwebster45206/dilemma-engine/pkg/scoring"
)

type hookKey struct {
	people, middle, mom uint64
	freePlay            bool
}

func keyOf(s GameRunState) hookKey {
	return hookKey{
		people:   math.Float64bits(s.SupportPeople),
		middle:   math.Float64bits(s.SupportMiddle),
		mom:      math.Float64bits(s.SupportMom),
		freePlay: s.FreePlay,
	}
}

// ScoreHook derives the live score breakdown from run state. The result is
// recomputed only when one of the support percentages or the free-play flag
// changes; otherwise the previously returned pointer is returned again.
// Results are shared between callers and must be treated as read-only; use
// Value for a copy that may be changed.
type ScoreHook struct {
	mu           sync.Mutex
	key          hookKey
	cached       *scoring.ScoreBreakdown
	computations int
}

// Breakdown returns the normalized breakdown for the state.
func (h *ScoreHook) Breakdown(s GameRunState) *scoring.ScoreBreakdown {
	h.mu.Lock()
	defer h.mu.Unlock()

	k := keyOf(s)
	if h.cached != nil && k == h.key {
		return h.cached
	}

	b := scoring.CalculateLiveScoreBreakdown(s.SupportInput()).Normalize()
	h.key = k
	h.cached = &b
	h.computations++
	return h.cached
}

// Value returns a deep copy of the memoized breakdown.
func (h *ScoreHook) Value(s GameRunState) scoring.ScoreBreakdown {
	b := h.Breakdown(s)
	h.mu.Lock()
	defer h.mu.Unlock()
	return copyBreakdown(*b)
}

// Computations reports how many times the breakdown was recomputed.
func (h *ScoreHook) Computations() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.computations
}
