package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jwebster45206/dilemma-engine/pkg/highscore"
)

// JobType identifies the kind of work in the mirror queue
type JobType string

const (
	// JobTypeHighscore copies an accepted highscore entry to the remote leaderboard
	JobTypeHighscore JobType = "highscore"

	// JobTypeSummary copies an end-of-run summary row to the remote log table
	JobTypeSummary JobType = "summary"
)

// MaxAttempts is how many times a job is tried before it is dropped.
const MaxAttempts = 3

// Job is a unit of work pushed to Redis by the API and handled by the worker.
type Job struct {
	JobID  string  `json:"job_id"`
	Type   JobType `json:"type"`
	GameID string  `json:"game_id"`
	UserID string  `json:"user_id,omitempty"`

	// Highscore-specific fields
	Entry *highscore.Entry `json:"entry,omitempty"`

	// Summary-specific fields
	Role  string `json:"role,omitempty"`
	Score int    `json:"score,omitempty"`

	Attempts   int       `json:"attempts"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Validate checks that the job carries what its type needs.
func (j *Job) Validate() error {
	if j.GameID == "" {
		return fmt.Errorf("game_id is required")
	}
	switch j.Type {
	case JobTypeHighscore:
		if j.Entry == nil {
			return fmt.Errorf("entry is required for %s jobs", j.Type)
		}
	case JobTypeSummary:
	default:
		return fmt.Errorf("unknown job type %q", j.Type)
	}
	return nil
}

// ToJSON converts the job to JSON bytes for Redis
func (j *Job) ToJSON() ([]byte, error) {
	return json.Marshal(j)
}

// FromJSON parses a job from JSON bytes
func FromJSON(data []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}
