package runner

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/dilemma-engine/internal/handlers"
)

// Step actions
const (
	ActionProfile  = "profile"
	ActionDilemma  = "dilemma"
	ActionChoose   = "choose"
	ActionFinalize = "finalize"
	ActionReplay   = "replay"
	ActionReset    = "reset"
)

// TestSuite defines a complete run played against the API.
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name  string                    `json:"name"`
	Run   handlers.CreateRunRequest `json:"run"`             // Used for regular tests
	Steps []TestStep                `json:"steps,omitempty"` // Used for regular tests
	Cases []string                  `json:"cases,omitempty"` // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep is one call against the run. Choose steps run Repeat times
// (default once) with the same choice.
type TestStep struct {
	Name         string                   `json:"name,omitempty"`
	Action       string                   `json:"action"`
	Choice       *handlers.ChoiceRequest  `json:"choice,omitempty"`
	Profile      *handlers.ProfileRequest `json:"profile,omitempty"`
	Repeat       int                      `json:"repeat,omitempty"`
	Expectations Expectations             `json:"expect"`
}

// Expectations defines what to check after a step executes
type Expectations struct {
	// Status is the HTTP status of the step's last call; 200 when unset.
	Status *int `json:"status,omitempty"`

	// Run state - aligned with pkg/run/state.go
	Day             *int     `json:"day,omitempty"`
	Phase           *string  `json:"phase,omitempty"`
	SupportPeople   *float64 `json:"support_people,omitempty"`
	SupportMiddle   *float64 `json:"support_middle,omitempty"`
	SupportMom      *float64 `json:"support_mom,omitempty"`
	PoliticalSystem *string  `json:"political_system,omitempty"`
	HistoryLength   *int     `json:"history_length,omitempty"`

	// Finalize response
	Score     *int  `json:"score,omitempty"`
	Cached    *bool `json:"cached,omitempty"`
	Submitted *bool `json:"submitted,omitempty"`
	// RankEvent waits for rank.updated on the game's event stream.
	RankEvent bool `json:"rank_event,omitempty"`

	// Dilemma reply
	ActionCount      *int     `json:"action_count,omitempty"`
	HasMonologue     *bool    `json:"has_monologue,omitempty"`
	ResponseContains []string `json:"response_contains,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName     string
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	ResponseText string
	IsEventWait  bool // True if the step waited on the event stream
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	GameID   uuid.UUID // ID of the run used for this test
}
