package reveal

import (
	"testing"
	"time"

	"github.com/jwebster45206/dilemma-engine/pkg/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func breakdown(freePlay bool) scoring.ScoreBreakdown {
	return scoring.CalculateLiveScoreBreakdown(scoring.SupportInput{
		People:   60,
		Middle:   40,
		Mom:      80,
		FreePlay: freePlay,
	})
}

func countKind(events []Event, kind EventKind) int {
	n := 0
	for _, e := range events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func TestEaseOutCubic(t *testing.T) {
	assert.Equal(t, 0.0, EaseOutCubic(0))
	assert.Equal(t, 1.0, EaseOutCubic(1))
	assert.Equal(t, 1.0, EaseOutCubic(2))
	assert.InDelta(t, 0.875, EaseOutCubic(0.5), 1e-9)
	assert.Greater(t, EaseOutCubic(0.25), 0.25)
}

func TestController_FullRun(t *testing.T) {
	c := New(breakdown(false))
	t0 := time.Unix(0, 0)

	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, 3, c.Steps())
	assert.Empty(t, c.Start(t0))
	assert.Equal(t, StateAnimating, c.State())

	// halfway through the first category
	events := c.Advance(t0.Add(DefaultStepDuration / 2))
	assert.Empty(t, events)
	d := c.Display()
	assert.Equal(t, 0, d.Step)
	assert.Greater(t, d.Values[0], 150)
	assert.Less(t, d.Values[0], 300)

	events = c.Advance(t0.Add(DefaultStepDuration))
	require.Len(t, events, 1)
	assert.Equal(t, EventStepDone, events[0].Kind)
	assert.Equal(t, scoring.CategoryPeople, events[0].Category)
	assert.Equal(t, 300, events[0].Value)

	var all []Event
	all = append(all, events...)
	for ms := 900; ms <= 5000; ms += 16 {
		all = append(all, c.Advance(t0.Add(time.Duration(ms)*time.Millisecond))...)
	}

	assert.Equal(t, StateSettled, c.State())
	assert.Equal(t, 3, countKind(all, EventStepDone))
	assert.Equal(t, 1, countKind(all, EventCue))
	assert.Equal(t, 1, countKind(all, EventSettled))

	d = c.Display()
	assert.Equal(t, []int{300, 200, 400}, d.Values)
	assert.Equal(t, 900, d.Total)

	// no more events once settled
	assert.Empty(t, c.Advance(t0.Add(time.Hour)))
}

func TestController_OrderOfEvents(t *testing.T) {
	c := New(breakdown(true))
	t0 := time.Unix(0, 0)
	c.Start(t0)

	// one large jump completes everything in order
	events := c.Advance(t0.Add(time.Minute))
	kinds := make([]EventKind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	assert.Equal(t, []EventKind{EventStepDone, EventStepDone, EventCue, EventSettled}, kinds)
	assert.Equal(t, 500, events[3].Value)
}

func TestController_StepsChainFromPreviousEnd(t *testing.T) {
	c := New(breakdown(false))
	t0 := time.Unix(0, 0)
	c.Start(t0)

	// late frame finishes step 0 and lands exactly on the end of step 1
	events := c.Advance(t0.Add(2 * DefaultStepDuration))
	assert.Equal(t, 2, countKind(events, EventStepDone))
	assert.Equal(t, 2, c.Display().Step)
}

func TestController_CueAtStartOfAggregate(t *testing.T) {
	c := New(breakdown(false))
	t0 := time.Unix(0, 0)
	c.Start(t0)

	events := c.Advance(t0.Add(3 * DefaultStepDuration))
	assert.Equal(t, 1, countKind(events, EventCue))
	assert.Equal(t, 0, countKind(events, EventSettled))
	assert.Equal(t, 0, c.Display().Total)

	events = c.Advance(t0.Add(3*DefaultStepDuration + DefaultFinalDuration/2))
	assert.Empty(t, events)
	assert.Greater(t, c.Display().Total, 0)
	assert.Less(t, c.Display().Total, 900)
}

func TestController_Skip(t *testing.T) {
	c := New(breakdown(false))
	events := c.Skip()
	require.Len(t, events, 1)
	assert.Equal(t, EventSettled, events[0].Kind)
	assert.Equal(t, StateSettled, c.State())
	assert.Equal(t, 900, c.Display().Total)
	assert.Equal(t, []int{300, 200, 400}, c.Display().Values)

	assert.Empty(t, c.Skip())
	assert.Empty(t, c.Start(time.Now()))
}

func TestController_ResetReplays(t *testing.T) {
	c := New(breakdown(false))
	t0 := time.Unix(0, 0)
	c.Start(t0)
	c.Advance(t0.Add(time.Minute))
	require.Equal(t, StateSettled, c.State())

	c.Reset()
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, []int{0, 0, 0}, c.Display().Values)
	assert.Equal(t, 0, c.Display().Total)

	t1 := t0.Add(time.Hour)
	c.Start(t1)
	events := c.Advance(t1.Add(time.Minute))
	assert.Equal(t, 1, countKind(events, EventSettled))
}

func TestController_NoCategories(t *testing.T) {
	c := New(scoring.ScoreBreakdown{Final: 10, MaxFinal: 10}, WithFinalDuration(0))
	c.seq = nil
	c.values = nil
	t0 := time.Unix(0, 0)

	events := c.Start(t0)
	require.Len(t, events, 1)
	assert.Equal(t, EventCue, events[0].Kind)

	events = c.Advance(t0)
	require.Len(t, events, 1)
	assert.Equal(t, EventSettled, events[0].Kind)
	assert.Equal(t, 10, c.Display().Total)
}

func TestController_CustomDurations(t *testing.T) {
	c := New(breakdown(false),
		WithStepDuration(10*time.Millisecond),
		WithFinalDuration(20*time.Millisecond),
		WithEasing(func(p float64) float64 { return p }),
	)
	t0 := time.Unix(0, 0)
	c.Start(t0)
	c.Advance(t0.Add(5 * time.Millisecond))
	assert.Equal(t, 150, c.Display().Values[0])

	events := c.Advance(t0.Add(50 * time.Millisecond))
	assert.Equal(t, 1, countKind(events, EventSettled))
}
