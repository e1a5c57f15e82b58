package run

import (
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/dilemma-engine/pkg/scoring"
)

const (
	// DefaultTotalDays is the number of dilemma days in a run. The day after
	// the last dilemma is the aftermath.
	DefaultTotalDays = 7

	// DefaultSupport is the starting percentage of every support track.
	DefaultSupport = 50.0
)

// Phase is the coarse lifecycle position of a run.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseDilemma   Phase = "dilemma"
	PhaseAftermath Phase = "aftermath"
	PhaseFinished  Phase = "finished"
)

// Character is the player's avatar for the run.
type Character struct {
	Name      string `json:"name"`
	Gender    string `json:"gender,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	About     string `json:"about,omitempty"`
}

// Ratings are the AI assessments shown next to the final score.
type Ratings struct {
	Democracy string `json:"democracy"`
	Autonomy  string `json:"autonomy"`
}

// SupportDeltas are the support shifts produced by one resolved dilemma.
type SupportDeltas struct {
	People float64 `json:"people"`
	Middle float64 `json:"middle"`
	Mom    float64 `json:"mom"`
}

// DayRecord is the history entry for a resolved day.
type DayRecord struct {
	Day    int           `json:"day"`
	Title  string        `json:"title,omitempty"`
	Choice string        `json:"choice,omitempty"`
	Deltas SupportDeltas `json:"deltas"`
}

// GameRunState is the full state of one playthrough.
type GameRunState struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	RoleKey   string    `json:"roleKey"`
	RoleTitle string    `json:"roleTitle,omitempty"`
	Setting   string    `json:"setting,omitempty"`
	Goals     []string  `json:"goals,omitempty"`

	Day       int  `json:"day"`
	TotalDays int  `json:"totalDays"`
	FreePlay  bool `json:"freePlay,omitempty"`

	SupportPeople float64 `json:"supportPeople"`
	SupportMiddle float64 `json:"supportMiddle"`
	SupportMom    float64 `json:"supportMom"`

	Character       Character   `json:"character"`
	Ratings         Ratings     `json:"ratings"`
	ValuesSummary   string      `json:"valuesSummary,omitempty"`
	PoliticalSystem string      `json:"politicalSystem,omitempty"`
	History         []DayRecord `json:"history,omitempty"`

	FinalScoreCalculated bool                    `json:"finalScoreCalculated"`
	FinalScoreSubmitted  bool                    `json:"finalScoreSubmitted"`
	FinalScoreBreakdown  *scoring.ScoreBreakdown `json:"finalScoreBreakdown,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Default returns the state of a run before any role has been selected.
func Default() GameRunState {
	return GameRunState{
		TotalDays:     DefaultTotalDays,
		SupportPeople: DefaultSupport,
		SupportMiddle: DefaultSupport,
		SupportMom:    DefaultSupport,
	}
}

// Phase derives the lifecycle phase from the day counter and flags.
func (s GameRunState) Phase() Phase {
	switch {
	case s.FinalScoreCalculated:
		return PhaseFinished
	case s.Day <= 0:
		return PhaseIdle
	case s.Day > s.totalDays():
		return PhaseAftermath
	default:
		return PhaseDilemma
	}
}

// SupportInput returns the fields consumed by the scoring module.
func (s GameRunState) SupportInput() scoring.SupportInput {
	return scoring.SupportInput{
		People:   s.SupportPeople,
		Middle:   s.SupportMiddle,
		Mom:      s.SupportMom,
		FreePlay: s.FreePlay,
	}
}

func (s GameRunState) totalDays() int {
	if s.TotalDays <= 0 {
		return DefaultTotalDays
	}
	return s.TotalDays
}

// clone copies the reference-typed fields so reducers never share memory
// with a previous state.
func (s GameRunState) clone() GameRunState {
	if s.Goals != nil {
		s.Goals = append([]string(nil), s.Goals...)
	}
	if s.History != nil {
		s.History = append([]DayRecord(nil), s.History...)
	}
	if s.FinalScoreBreakdown != nil {
		b := copyBreakdown(*s.FinalScoreBreakdown)
		s.FinalScoreBreakdown = &b
	}
	return s
}

func copyBreakdown(b scoring.ScoreBreakdown) scoring.ScoreBreakdown {
	if b.Support.Mom != nil {
		mom := *b.Support.Mom
		b.Support.Mom = &mom
	}
	return b
}
