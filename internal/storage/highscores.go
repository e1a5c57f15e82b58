package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/dilemma-engine/pkg/highscore"
)

const (
	highscoresKey   = "highscores:global"
	highscoreSeqKey = "highscores:seq"

	// Members sort by reverse lexical order on equal scores, so earlier
	// submissions get larger members and stay ahead of later ties.
	seqCeiling = 999_999_999_999
)

// ErrMissingGameID is returned when a submission has no game ID.
var ErrMissingGameID = errors.New("gameId is required")

// StoredHighscore is the Redis record of one accepted submission.
type StoredHighscore struct {
	highscore.Entry
	Member       string    `json:"member"`
	UserID       string    `json:"userId,omitempty"`
	GameID       string    `json:"gameId"`
	SessionID    string    `json:"sessionId,omitempty"`
	PersonalBest bool      `json:"personalBest"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

func entryKey(member string) string     { return "highscores:entry:" + member }
func submittedKey(gameID string) string { return "highscores:submitted:" + gameID }
func userKey(owner string) string       { return "highscores:user:" + owner }

func owner(req highscore.SubmitRequest) string {
	if req.UserID != "" {
		return req.UserID
	}
	if req.SessionID != "" {
		return "session:" + req.SessionID
	}
	return ""
}

// SubmitHighscore records an entry exactly once per game ID. A repeated
// submission for the same game returns the ranks of the stored entry.
func (r *RedisStorage) SubmitHighscore(ctx context.Context, req highscore.SubmitRequest) (*highscore.SubmitResponse, error) {
	if req.GameID == "" {
		return nil, ErrMissingGameID
	}

	seq, err := r.client.Incr(ctx, highscoreSeqKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate highscore id: %w", err)
	}
	member := fmt.Sprintf("%012d", seqCeiling-seq)

	claimed, err := r.client.SetNX(ctx, submittedKey(req.GameID), member, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim submission: %w", err)
	}
	if !claimed {
		r.logger.Info("Duplicate highscore submission ignored", "game_id", req.GameID)
		return r.existingSubmission(ctx, req.GameID)
	}

	own := owner(req)
	personalBest := true
	if own != "" {
		best, err := r.client.ZRevRangeWithScores(ctx, userKey(own), 0, 0).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read personal best: %w", err)
		}
		if len(best) > 0 && float64(req.Score) <= best[0].Score {
			personalBest = false
		}
	}

	rec := StoredHighscore{
		Entry:        req.Entry,
		Member:       member,
		UserID:       req.UserID,
		GameID:       req.GameID,
		SessionID:    req.SessionID,
		PersonalBest: personalBest,
		SubmittedAt:  r.now().UTC(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal highscore: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, entryKey(member), data, 0)
		pipe.ZAdd(ctx, highscoresKey, redis.Z{Score: float64(req.Score), Member: member})
		if own != "" {
			pipe.ZAdd(ctx, userKey(own), redis.Z{Score: float64(req.Score), Member: member})
		}
		return nil
	})
	if err != nil {
		// Release the claim so the client can retry.
		r.client.Del(ctx, submittedKey(req.GameID))
		r.logger.Error("Failed to store highscore", "game_id", req.GameID, "error", err)
		return nil, fmt.Errorf("failed to store highscore: %w", err)
	}

	r.logger.Info("Highscore recorded", "game_id", req.GameID, "score", req.Score, "personal_best", personalBest)
	return r.ranks(ctx, member, own, personalBest)
}

func (r *RedisStorage) existingSubmission(ctx context.Context, gameID string) (*highscore.SubmitResponse, error) {
	member, err := r.client.Get(ctx, submittedKey(gameID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read submission claim: %w", err)
	}
	data, err := r.client.Get(ctx, entryKey(member)).Bytes()
	if errors.Is(err, redis.Nil) {
		// The first submission is still being written.
		return &highscore.SubmitResponse{Success: true, GlobalRank: highscore.NotRanked, UserRank: highscore.NotRanked}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load highscore: %w", err)
	}

	var rec StoredHighscore
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal highscore: %w", err)
	}
	return r.ranks(ctx, member, owner(highscore.SubmitRequest{UserID: rec.UserID, SessionID: rec.SessionID}), rec.PersonalBest)
}

func (r *RedisStorage) ranks(ctx context.Context, member, own string, personalBest bool) (*highscore.SubmitResponse, error) {
	resp := &highscore.SubmitResponse{
		Success:        true,
		GlobalRank:     highscore.NotRanked,
		UserRank:       highscore.NotRanked,
		IsPersonalBest: personalBest,
	}

	global, err := r.client.ZRevRank(ctx, highscoresKey, member).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read global rank: %w", err)
	}
	if err == nil {
		resp.GlobalRank = int(global) + 1
	}

	if own != "" {
		user, err := r.client.ZRevRank(ctx, userKey(own), member).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("failed to read user rank: %w", err)
		}
		if err == nil {
			resp.UserRank = int(user) + 1
		}
	}
	return resp, nil
}

// TopHighscores returns the best n entries, highest first.
func (r *RedisStorage) TopHighscores(ctx context.Context, n int) ([]highscore.Entry, error) {
	if n <= 0 {
		n = highscore.HallOfFameSize
	}
	members, err := r.client.ZRevRange(ctx, highscoresKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read highscores: %w", err)
	}
	if len(members) == 0 {
		return []highscore.Entry{}, nil
	}

	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = entryKey(m)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load highscores: %w", err)
	}

	entries := make([]highscore.Entry, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			r.logger.Warn("Highscore entry missing", "member", members[i])
			continue
		}
		var rec StoredHighscore
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			r.logger.Warn("Skipping unreadable highscore", "member", members[i], "error", err)
			continue
		}
		entries = append(entries, rec.Entry)
	}
	return entries, nil
}
