package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/dilemma-engine/pkg/highscore"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeRunUpdated       EventType = "run.updated"
	EventTypeScoreCalculated  EventType = "score.calculated"
	EventTypeRankUpdated      EventType = "rank.updated"
	EventTypeSubmissionFailed EventType = "submission.failed"
	EventTypeMirrorCompleted  EventType = "mirror.completed"
)

// Event represents a generic event structure
type Event struct {
	Type   EventType      `json:"type"`
	GameID string         `json:"game_id"`
	Data   map[string]any `json:"data,omitempty"`
}

// Broadcaster publishes per-game events to Redis Pub/Sub.
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Channel returns the pub/sub channel for a game.
func Channel(gameID string) string {
	return "game-events:" + gameID
}

// PublishRunUpdated announces a new day or phase.
func (b *Broadcaster) PublishRunUpdated(ctx context.Context, gameID string, day int, phase string) error {
	return b.publish(ctx, Event{
		Type:   EventTypeRunUpdated,
		GameID: gameID,
		Data:   map[string]any{"day": day, "phase": phase},
	})
}

// PublishScoreCalculated announces the persisted final score.
func (b *Broadcaster) PublishScoreCalculated(ctx context.Context, gameID string, score int) error {
	return b.publish(ctx, Event{
		Type:   EventTypeScoreCalculated,
		GameID: gameID,
		Data:   map[string]any{"score": score},
	})
}

// PublishRankUpdated delivers the leaderboard result of a submission.
func (b *Broadcaster) PublishRankUpdated(ctx context.Context, gameID string, resp *highscore.SubmitResponse) error {
	return b.publish(ctx, Event{
		Type:   EventTypeRankUpdated,
		GameID: gameID,
		Data: map[string]any{
			"globalRank":     resp.GlobalRank,
			"userRank":       resp.UserRank,
			"isPersonalBest": resp.IsPersonalBest,
		},
	})
}

// PublishSubmissionFailed reports a submission that could not be stored.
func (b *Broadcaster) PublishSubmissionFailed(ctx context.Context, gameID, reason string) error {
	return b.publish(ctx, Event{
		Type:   EventTypeSubmissionFailed,
		GameID: gameID,
		Data:   map[string]any{"error": reason},
	})
}

// PublishMirrorCompleted reports that the remote copy was written.
func (b *Broadcaster) PublishMirrorCompleted(ctx context.Context, gameID, jobType string) error {
	return b.publish(ctx, Event{
		Type:   EventTypeMirrorCompleted,
		GameID: gameID,
		Data:   map[string]any{"job": jobType},
	})
}

// Subscribe opens a subscription to a game's channel. The caller closes it.
func (b *Broadcaster) Subscribe(ctx context.Context, gameID string) *redis.PubSub {
	return b.redisClient.Subscribe(ctx, Channel(gameID))
}

func (b *Broadcaster) publish(ctx context.Context, event Event) error {
	channel := Channel(event.GameID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published", "channel", channel, "event_type", event.Type)
	return nil
}
