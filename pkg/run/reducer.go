package run

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/dilemma-engine/pkg/scoring"
)

var (
	ErrRunNotActive      = errors.New("run is not in a dilemma day")
	ErrRunNotOver        = errors.New("run has days left to play")
	ErrAlreadyCalculated = errors.New("final score already calculated")
	ErrAlreadySubmitted  = errors.New("final score already submitted")
	ErrMissingRole       = errors.New("role is required")
)

// Action is a state transition applied by Reduce.
type Action interface {
	apply(s GameRunState) (GameRunState, error)
}

// Reduce applies an action to a state and returns the next state. The input
// state is never modified.
func Reduce(s GameRunState, a Action) (GameRunState, error) {
	next, err := a.apply(s.clone())
	if err != nil {
		return s, err
	}
	return next, nil
}

// StartRun begins a new run at role selection. Any previous state is replaced.
type StartRun struct {
	ID        uuid.UUID
	UserID    string
	RoleKey   string
	RoleTitle string
	Setting   string
	Goals     []string
	FreePlay  bool
	TotalDays int
	Now       time.Time
}

func (a StartRun) apply(_ GameRunState) (GameRunState, error) {
	if a.RoleKey == "" {
		return GameRunState{}, ErrMissingRole
	}
	s := Default()
	s.ID = a.ID
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.UserID = a.UserID
	s.RoleKey = a.RoleKey
	s.RoleTitle = a.RoleTitle
	s.Setting = a.Setting
	s.Goals = append([]string(nil), a.Goals...)
	s.FreePlay = a.FreePlay
	if a.TotalDays > 0 {
		s.TotalDays = a.TotalDays
	}
	s.Day = 1
	s.CreatedAt = a.Now
	s.UpdatedAt = a.Now
	return s, nil
}

// SetProfile records the character and the end-of-run assessments.
type SetProfile struct {
	Character       *Character
	Ratings         *Ratings
	ValuesSummary   string
	PoliticalSystem string
	Now             time.Time
}

func (a SetProfile) apply(s GameRunState) (GameRunState, error) {
	if a.Character != nil {
		s.Character = *a.Character
	}
	if a.Ratings != nil {
		s.Ratings = *a.Ratings
	}
	if a.ValuesSummary != "" {
		s.ValuesSummary = a.ValuesSummary
	}
	if a.PoliticalSystem != "" {
		s.PoliticalSystem = a.PoliticalSystem
	}
	s.UpdatedAt = a.Now
	return s, nil
}

// ResolveDay applies the support shifts of the chosen action and moves to
// the next day.
type ResolveDay struct {
	Title  string
	Choice string
	Deltas SupportDeltas
	Now    time.Time
}

func (a ResolveDay) apply(s GameRunState) (GameRunState, error) {
	if s.Phase() != PhaseDilemma {
		return s, fmt.Errorf("resolve day %d: %w", s.Day, ErrRunNotActive)
	}
	s.SupportPeople = applyDelta(s.SupportPeople, a.Deltas.People)
	s.SupportMiddle = applyDelta(s.SupportMiddle, a.Deltas.Middle)
	if !s.FreePlay {
		s.SupportMom = applyDelta(s.SupportMom, a.Deltas.Mom)
	}
	s.History = append(s.History, DayRecord{
		Day:    s.Day,
		Title:  a.Title,
		Choice: a.Choice,
		Deltas: a.Deltas,
	})
	s.Day++
	s.UpdatedAt = a.Now
	return s, nil
}

// CalculateFinalScore freezes the run with its final breakdown. It may only
// happen once per run unless ClearFinalScore is applied first.
type CalculateFinalScore struct {
	Breakdown scoring.ScoreBreakdown
	Now       time.Time
}

func (a CalculateFinalScore) apply(s GameRunState) (GameRunState, error) {
	if s.FinalScoreCalculated {
		return s, ErrAlreadyCalculated
	}
	if s.Phase() != PhaseAftermath {
		return s, ErrRunNotOver
	}
	b := copyBreakdown(a.Breakdown.Normalize())
	s.FinalScoreBreakdown = &b
	s.FinalScoreCalculated = true
	s.UpdatedAt = a.Now
	return s, nil
}

// MarkSubmitted records that the highscore entry for this run was handed to
// the highscore store.
type MarkSubmitted struct {
	Now time.Time
}

func (a MarkSubmitted) apply(s GameRunState) (GameRunState, error) {
	if s.FinalScoreSubmitted {
		return s, ErrAlreadySubmitted
	}
	s.FinalScoreSubmitted = true
	s.UpdatedAt = a.Now
	return s, nil
}

// ClearFinalScore drops the cached breakdown so the reveal can be replayed.
// The submission flag is left untouched.
type ClearFinalScore struct {
	Now time.Time
}

func (a ClearFinalScore) apply(s GameRunState) (GameRunState, error) {
	s.FinalScoreCalculated = false
	s.FinalScoreBreakdown = nil
	s.UpdatedAt = a.Now
	return s, nil
}

// Reset returns the run to defaults for "Play Again". The user is kept.
type Reset struct {
	Now time.Time
}

func (a Reset) apply(s GameRunState) (GameRunState, error) {
	next := Default()
	next.UserID = s.UserID
	next.UpdatedAt = a.Now
	return next, nil
}

func applyDelta(current, delta float64) float64 {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return current
	}
	return math.Max(0, math.Min(100, current+delta))
}
