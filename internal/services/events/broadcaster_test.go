package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/dilemma-engine/pkg/highscore"
)

func TestBroadcaster_PublishRankUpdated(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	b := NewBroadcaster(rdb, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	sub := b.Subscribe(ctx, "game-1")
	defer sub.Close()
	_, err := sub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	require.NoError(t, b.PublishRankUpdated(ctx, "game-1", &highscore.SubmitResponse{
		Success: true, GlobalRank: 4, UserRank: 1, IsPersonalBest: true,
	}))

	recvCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, Channel("game-1"), msg.Channel)

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
	assert.Equal(t, EventTypeRankUpdated, ev.Type)
	assert.Equal(t, "game-1", ev.GameID)
	assert.Equal(t, float64(4), ev.Data["globalRank"])
	assert.Equal(t, true, ev.Data["isPersonalBest"])
}
