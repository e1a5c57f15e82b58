package finalscore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jwebster45206/dilemma-engine/pkg/highscore"
	"github.com/jwebster45206/dilemma-engine/pkg/reveal"
	"github.com/jwebster45206/dilemma-engine/pkg/run"
	"github.com/jwebster45206/dilemma-engine/pkg/scoring"
)

// Update carries the remote leaderboard result back to the screen.
type Update struct {
	GlobalRank     int
	UserRank       int
	IsPersonalBest bool
}

// Config wires a Screen to its collaborators. Submitter may be nil, in
// which case only the local board is used.
type Config struct {
	Store         *run.Store
	Board         *highscore.Board
	Submitter     highscore.Submitter
	Logger        *slog.Logger
	SessionID     string
	SubmitTimeout time.Duration
	RevealOptions []reveal.Option
}

// Screen drives the final score reveal for one run. It persists the
// breakdown once, submits the highscore entry once and looks up the rank.
// Methods are safe to call from multiple goroutines.
type Screen struct {
	mu sync.Mutex

	store     *run.Store
	board     *highscore.Board
	submitter highscore.Submitter
	log       *slog.Logger
	sessionID string
	timeout   time.Duration
	opts      []reveal.Option

	ctrl      *reveal.Controller
	breakdown scoring.ScoreBreakdown
	cached    bool
	rank      int
	remote    *Update

	live    bool
	ctx     context.Context
	cancel  context.CancelFunc
	updates chan Update
	wg      sync.WaitGroup
}

// NewScreen creates a screen. Call Enter to show it and Close to tear it down.
func NewScreen(cfg Config) *Screen {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	timeout := cfg.SubmitTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Screen{
		store:     cfg.Store,
		board:     cfg.Board,
		submitter: cfg.Submitter,
		log:       log,
		sessionID: cfg.SessionID,
		timeout:   timeout,
		opts:      cfg.RevealOptions,
		rank:      highscore.NotRanked,
		ctx:       ctx,
		cancel:    cancel,
		updates:   make(chan Update, 1),
	}
}

// Enter shows the screen. A run whose breakdown was already persisted is
// settled immediately without animation or submission.
func (s *Screen) Enter(now time.Time) ([]reveal.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.store.Snapshot()
	if s.ctx.Err() != nil {
		// Reopened after Close.
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}
	s.live = true

	if snap.FinalScoreCalculated && snap.FinalScoreBreakdown != nil {
		s.cached = true
		s.breakdown = *snap.FinalScoreBreakdown
		s.ctrl = reveal.New(s.breakdown, s.opts...)
		s.ctrl.Skip()
		entry := highscore.BuildEntry(s.breakdown, snap)
		s.rank = s.board.Rank(entry.Name, entry.Score)
		s.log.Debug("Final score restored from cache", "run_id", snap.ID, "score", entry.Score, "rank", s.rank)
		return nil, nil
	}

	if snap.Phase() != run.PhaseAftermath {
		return nil, run.ErrRunNotOver
	}

	s.cached = false
	s.breakdown = scoring.CalculateLiveScoreBreakdown(snap.SupportInput()).Normalize()
	s.ctrl = reveal.New(s.breakdown, s.opts...)
	return s.ctrl.Start(now), nil
}

// Tick advances the animation. When the reveal settles for the first time
// the score is persisted, submitted and ranked.
func (s *Screen) Tick(now time.Time) []reveal.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.live || s.ctrl == nil {
		return nil
	}
	events := s.ctrl.Advance(now)
	s.handle(events)
	return events
}

// Skip jumps to the settled state, with the same side effects as a
// completed animation.
func (s *Screen) Skip() []reveal.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.live || s.ctrl == nil {
		return nil
	}
	events := s.ctrl.Skip()
	s.handle(events)
	return events
}

// Replay clears the persisted breakdown and restarts the animation. The
// submission flag stays set, so the entry is never sent twice.
func (s *Screen) Replay(now time.Time) ([]reveal.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Dispatch(run.ClearFinalScore{Now: now}); err != nil {
		return nil, err
	}
	snap := s.store.Snapshot()
	s.cached = false
	s.breakdown = scoring.CalculateLiveScoreBreakdown(snap.SupportInput()).Normalize()
	s.ctrl = reveal.New(s.breakdown, s.opts...)
	return s.ctrl.Start(now), nil
}

// Close tears the screen down. Pending remote results are dropped. Enter
// may be called again afterwards.
func (s *Screen) Close() {
	s.mu.Lock()
	s.live = false
	cancel := s.cancel
	s.mu.Unlock()
	cancel()
}

// Wait blocks until background submissions have finished.
func (s *Screen) Wait() {
	s.wg.Wait()
}

// Updates delivers remote leaderboard results that were applied to the
// screen.
func (s *Screen) Updates() <-chan Update {
	return s.updates
}

// Display returns the current animation frame.
func (s *Screen) Display() reveal.Display {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl == nil {
		return reveal.Display{}
	}
	return s.ctrl.Display()
}

// Breakdown returns the breakdown being revealed.
func (s *Screen) Breakdown() scoring.ScoreBreakdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.breakdown
}

// Cached reports whether the screen was restored without animation.
func (s *Screen) Cached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached
}

// Rank returns the local board position or highscore.NotRanked.
func (s *Screen) Rank() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rank
}

// Remote returns the applied remote result, if one has arrived.
func (s *Screen) Remote() (Update, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remote == nil {
		return Update{}, false
	}
	return *s.remote, true
}

func (s *Screen) handle(events []reveal.Event) {
	for _, e := range events {
		if e.Kind == reveal.EventSettled {
			s.onSettled()
		}
	}
}

// onSettled runs with s.mu held.
func (s *Screen) onSettled() {
	if s.store.TryMarkCalculated(s.breakdown) {
		s.log.Info("Final score persisted", "score", s.breakdown.Final)
	}

	snap := s.store.Snapshot()
	entry := highscore.BuildEntry(s.breakdown, snap)

	if s.store.TryMarkSubmitted() {
		s.board.Add(entry)
		s.log.Info("Highscore entry added", "name", entry.Name, "score", entry.Score)
		if s.submitter != nil {
			s.submitAsync(highscore.SubmitRequest{
				UserID:    snap.UserID,
				GameID:    snap.ID.String(),
				SessionID: s.sessionID,
				Entry:     entry,
			})
		}
	}

	s.rank = s.board.Rank(entry.Name, entry.Score)
}

// submitAsync runs with s.mu held.
func (s *Screen) submitAsync(req highscore.SubmitRequest) {
	parent := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(parent, s.timeout)
		defer cancel()

		resp, err := s.submitter.Submit(ctx, req)
		if err != nil {
			s.log.Warn("Remote highscore submit failed", "game_id", req.GameID, "error", err)
			return
		}

		u := Update{
			GlobalRank:     resp.GlobalRank,
			UserRank:       resp.UserRank,
			IsPersonalBest: resp.IsPersonalBest,
		}

		s.mu.Lock()
		if !s.live {
			s.mu.Unlock()
			s.log.Debug("Dropping highscore result for closed screen", "game_id", req.GameID)
			return
		}
		s.remote = &u
		s.mu.Unlock()

		select {
		case s.updates <- u:
		default:
		}
	}()
}
