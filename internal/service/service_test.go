package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/daily-meme-quiz/internal/config"
	"github.com/daily-meme-quiz/internal/domain"
	"github.com/daily-meme-quiz/internal/store"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingRecorder struct {
	mu   sync.Mutex
	runs []domain.RunResult
	err  error
}

func (r *recordingRecorder) RecordRun(_ context.Context, run domain.RunResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return r.err
}

type recordingBroadcaster struct {
	dates []string
}

func (b *recordingBroadcaster) BroadcastLeaderboard(date string, _ []domain.LeaderboardEntry) {
	b.dates = append(b.dates, date)
}

// flakyStore fails the next zaddFailures ZAdd calls
type flakyStore struct {
	store.Store

	mu           sync.Mutex
	zaddFailures int
}

func (f *flakyStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	f.mu.Lock()
	if f.zaddFailures > 0 {
		f.zaddFailures--
		f.mu.Unlock()
		return errors.New("transient")
	}
	f.mu.Unlock()
	return f.Store.ZAdd(ctx, key, score, member)
}

// engine bundles a full service graph over one memory store
type engine struct {
	store       *store.MemoryStore
	clock       *fakeClock
	config      *config.Config
	daily       *DailyService
	sessions    *SessionService
	leaderboard *LeaderboardService
	rounds      *RoundService
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testUnits(n int) []domain.CatalogUnit {
	units := make([]domain.CatalogUnit, n)
	for i := range units {
		id := fmt.Sprintf("meme_%02d", i)
		units[i] = domain.CatalogUnit{
			UniqueID:    "game_assets/" + id,
			ID:          id,
			Title:       fmt.Sprintf("Meme %02d", i),
			ClueImage:   "/game_assets/" + id + "/clue_2.png",
			AnswerImage: "/game_assets/" + id + "/ANSWER.png",
		}
	}
	return units
}

func newEngine(t *testing.T, unitCount int) *engine {
	return newEngineWithStore(t, unitCount, nil)
}

// newEngineWithStore lets a test interpose on every store call the services
// make. The engine's own helpers still read the underlying memory store.
func newEngineWithStore(t *testing.T, unitCount int, wrap func(store.Store) store.Store) *engine {
	t.Helper()

	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	cfg := config.DefaultConfig()
	st := store.NewMemoryStoreWithClock(clock.Now)
	logger := testLogger()

	var kv store.Store = st
	if wrap != nil {
		kv = wrap(st)
	}

	daily := NewDailyService(kv, testUnits(unitCount), &cfg.Puzzle, logger)
	daily.SetClock(clock.Now)
	sessions := NewSessionService(kv, &cfg.Puzzle, logger)
	sessions.SetClock(clock.Now)
	leaderboard := NewLeaderboardService(kv, &cfg.Leaderboard, cfg.Puzzle.LockTTL, logger)
	rounds := NewRoundService(kv, daily, sessions, leaderboard, &cfg.Puzzle, logger)
	rounds.SetClock(clock.Now)

	return &engine{
		store:       st,
		clock:       clock,
		config:      cfg,
		daily:       daily,
		sessions:    sessions,
		leaderboard: leaderboard,
		rounds:      rounds,
	}
}

// correctOption reads the server-side answer behind a round token
func (e *engine) correctOption(t *testing.T, token string) string {
	t.Helper()

	var round domain.Round
	found, err := e.store.GetJSON(context.Background(), roundKey(token), &round)
	require.NoError(t, err)
	require.True(t, found)
	return round.CorrectID
}

// wrongOption returns any offered option that is not the correct one
func (e *engine) wrongOption(t *testing.T, challenge *domain.RoundChallenge) string {
	t.Helper()

	correct := e.correctOption(t, challenge.RoundToken)
	for _, o := range challenge.Options {
		if o.ID != correct {
			return o.ID
		}
	}
	t.Fatal("no wrong option offered")
	return ""
}

// playRun answers every remaining question, correctly when correct is set
func (e *engine) playRun(t *testing.T, identity domain.Identity, date string, correct bool) *domain.AnswerResult {
	t.Helper()
	ctx := context.Background()

	var result *domain.AnswerResult
	for {
		challenge, err := e.rounds.StartRound(ctx, identity, date)
		require.NoError(t, err)

		selected := e.correctOption(t, challenge.RoundToken)
		if !correct {
			selected = e.wrongOption(t, challenge)
		}
		result, err = e.rounds.AnswerRound(ctx, identity, challenge.RoundToken, selected)
		require.NoError(t, err)
		if result.Status == domain.RoundStatusComplete {
			return result
		}
	}
}
