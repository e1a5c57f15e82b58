package reveal

import (
	"math"
	"time"

	"github.com/jwebster45206/dilemma-engine/pkg/scoring"
)

const (
	DefaultStepDuration  = 850 * time.Millisecond
	DefaultFinalDuration = 1200 * time.Millisecond
)

// State is the position of the controller in the reveal.
type State int

const (
	StateIdle State = iota
	StateAnimating
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAnimating:
		return "animating"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// EventKind identifies what happened during an Advance.
type EventKind int

const (
	// EventStepDone fires when a category counter reaches its points.
	EventStepDone EventKind = iota
	// EventCue fires when the aggregate tween starts. Clients play the
	// score sound on it.
	EventCue
	// EventSettled fires once when the aggregate reaches the final score.
	EventSettled
)

// Event is emitted by Start, Advance and Skip.
type Event struct {
	Kind     EventKind
	Step     int
	Category scoring.Category
	Value    int
}

// Display is what a client renders for the current frame.
type Display struct {
	State  State
	Step   int
	Values []int
	Total  int
}

// Option configures a Controller.
type Option func(*Controller)

// WithStepDuration sets the tween length of each category.
func WithStepDuration(d time.Duration) Option {
	return func(c *Controller) { c.stepDuration = d }
}

// WithFinalDuration sets the tween length of the aggregate counter.
func WithFinalDuration(d time.Duration) Option {
	return func(c *Controller) { c.finalDuration = d }
}

// WithEasing replaces the ease-out-cubic curve.
func WithEasing(fn func(float64) float64) Option {
	return func(c *Controller) { c.ease = fn }
}

// Controller animates a score breakdown category by category and then the
// aggregate. It owns no goroutines: the caller drives it with a clock.
type Controller struct {
	seq   []scoring.Step
	final int

	stepDuration  time.Duration
	finalDuration time.Duration
	ease          func(float64) float64

	state     State
	step      int
	stepStart time.Time
	values    []int
	total     int
	settled   bool
}

// New creates an idle controller for the breakdown.
func New(b scoring.ScoreBreakdown, opts ...Option) *Controller {
	c := &Controller{
		seq:           b.Sequence(),
		final:         scoring.CalculateFinalScore(b),
		stepDuration:  DefaultStepDuration,
		finalDuration: DefaultFinalDuration,
		ease:          EaseOutCubic,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.values = make([]int, len(c.seq))
	return c
}

// EaseOutCubic maps linear progress in [0,1] to eased progress.
func EaseOutCubic(t float64) float64 {
	t = math.Max(0, math.Min(1, t))
	return 1 - math.Pow(1-t, 3)
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Steps returns the number of category steps before the aggregate tween.
func (c *Controller) Steps() int { return len(c.seq) }

// Start begins the animation at the first category. It does nothing unless
// the controller is idle.
func (c *Controller) Start(now time.Time) []Event {
	if c.state != StateIdle {
		return nil
	}
	c.state = StateAnimating
	c.step = 0
	c.stepStart = now

	var events []Event
	if len(c.seq) == 0 {
		events = append(events, Event{Kind: EventCue, Step: 0})
	}
	return events
}

// Advance moves the animation to now. Steps that finished since the last
// call are completed in order; each next step starts when the previous one
// ended, not at now.
func (c *Controller) Advance(now time.Time) []Event {
	if c.state != StateAnimating {
		return nil
	}

	var events []Event
	for c.state == StateAnimating {
		if c.step < len(c.seq) {
			target := c.seq[c.step].Points
			elapsed := now.Sub(c.stepStart)
			if elapsed < c.stepDuration {
				c.values[c.step] = c.tween(0, target, elapsed, c.stepDuration)
				return events
			}
			c.values[c.step] = target
			events = append(events, Event{
				Kind:     EventStepDone,
				Step:     c.step,
				Category: c.seq[c.step].Category,
				Value:    target,
			})
			c.stepStart = c.stepStart.Add(c.stepDuration)
			c.step++
			if c.step == len(c.seq) {
				events = append(events, Event{Kind: EventCue, Step: c.step})
			}
			continue
		}

		elapsed := now.Sub(c.stepStart)
		if elapsed < c.finalDuration {
			c.total = c.tween(0, c.final, elapsed, c.finalDuration)
			return events
		}
		events = append(events, c.settle()...)
	}
	return events
}

// Skip jumps straight to the settled display.
func (c *Controller) Skip() []Event {
	if c.state == StateSettled {
		return nil
	}
	for i, s := range c.seq {
		c.values[i] = s.Points
	}
	c.step = len(c.seq)
	return c.settle()
}

// Reset returns the controller to idle so the reveal can be replayed.
func (c *Controller) Reset() {
	c.state = StateIdle
	c.step = 0
	c.stepStart = time.Time{}
	c.total = 0
	c.settled = false
	for i := range c.values {
		c.values[i] = 0
	}
}

// Display returns the values to render.
func (c *Controller) Display() Display {
	return Display{
		State:  c.state,
		Step:   c.step,
		Values: append([]int(nil), c.values...),
		Total:  c.total,
	}
}

func (c *Controller) settle() []Event {
	c.total = c.final
	c.state = StateSettled
	if c.settled {
		return nil
	}
	c.settled = true
	return []Event{{Kind: EventSettled, Step: len(c.seq), Value: c.final}}
}

func (c *Controller) tween(from, to int, elapsed, total time.Duration) int {
	if total <= 0 {
		return to
	}
	p := c.ease(float64(elapsed) / float64(total))
	return int(math.Round(float64(from) + float64(to-from)*p))
}
