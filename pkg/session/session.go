package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TTL is how long a snapshot stays valid after it was saved.
const TTL = 30 * time.Minute

// Snapshot keys used by clients. Only these keys can be stored.
const (
	KeyScreenPhase      = "screen-phase"
	KeyPresentationStep = "presentation-step"
	KeyTurnData         = "turn-data"
	KeyCompassValues    = "compass-values"
	KeyFinalScore       = "final-score"
)

var validKeys = map[string]bool{
	KeyScreenPhase:      true,
	KeyPresentationStep: true,
	KeyTurnData:         true,
	KeyCompassValues:    true,
	KeyFinalScore:       true,
}

var (
	ErrUnknownKey = errors.New("unknown snapshot key")
	ErrEmptyData  = errors.New("snapshot data is empty")
)

// Snapshot is a piece of client state saved for one browser session.
type Snapshot struct {
	SessionID string          `json:"sessionId"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	SavedAt   time.Time       `json:"savedAt"`
}

// ValidKey reports whether key may be stored.
func ValidKey(key string) bool {
	return validKeys[key]
}

// New builds a snapshot saved at now.
func New(sessionID, key string, data json.RawMessage, now time.Time) (*Snapshot, error) {
	if !ValidKey(key) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if len(data) == 0 || !json.Valid(data) {
		return nil, ErrEmptyData
	}
	return &Snapshot{
		SessionID: sessionID,
		Key:       key,
		Data:      data,
		SavedAt:   now.UTC(),
	}, nil
}

// Expired reports whether the snapshot is older than TTL at now. A snapshot
// without a timestamp is treated as expired.
func (s *Snapshot) Expired(now time.Time) bool {
	if s.SavedAt.IsZero() {
		return true
	}
	return now.Sub(s.SavedAt) > TTL
}

// Remaining returns how long the snapshot has left at now.
func (s *Snapshot) Remaining(now time.Time) time.Duration {
	left := TTL - now.Sub(s.SavedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Decode unmarshals the snapshot data into v.
func (s *Snapshot) Decode(v any) error {
	return json.Unmarshal(s.Data, v)
}
