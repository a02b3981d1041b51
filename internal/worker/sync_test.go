package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/daily-meme-quiz/internal/config"
	"github.com/daily-meme-quiz/internal/domain"
	"github.com/daily-meme-quiz/internal/service"
	"github.com/daily-meme-quiz/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryArchive struct {
	boards map[string][]domain.LeaderboardEntry
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{boards: make(map[string][]domain.LeaderboardEntry)}
}

func (a *memoryArchive) UpsertLeaderboard(_ context.Context, date string, entries []domain.LeaderboardEntry) error {
	a.boards[date] = append([]domain.LeaderboardEntry(nil), entries...)
	return nil
}

func (a *memoryArchive) GetLeaderboard(_ context.Context, date string, limit int) ([]domain.LeaderboardEntry, error) {
	entries := a.boards[date]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func newWorker(t *testing.T, st store.Store, archive Archive) (*SyncWorker, *service.LeaderboardService) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.DefaultConfig()
	board := service.NewLeaderboardService(st, &cfg.Leaderboard, cfg.Puzzle.LockTTL, logger)

	w := NewSyncWorker(board, archive, &cfg.Sync, logger)
	w.SetClock(func() time.Time { return time.Date(2024, 1, 2, 0, 30, 0, 0, time.UTC) })
	return w, board
}

func TestSyncWorker_SnapshotsRecentDates(t *testing.T) {
	ctx := context.Background()
	archive := newMemoryArchive()
	w, board := newWorker(t, store.NewMemoryStore(), archive)

	require.NoError(t, board.Record(ctx, "2024-01-01", "late", "Late Finisher", 5100))
	require.NoError(t, board.Record(ctx, "2024-01-02", "early", "Early Bird", 6800))
	require.NoError(t, board.Record(ctx, "2023-12-25", "old", "Old", 9999))

	w.RunOnce(ctx)

	assert.Equal(t, []domain.LeaderboardEntry{{Rank: 1, PlayerID: "early", Score: 6800, Username: "Early Bird"}}, archive.boards["2024-01-02"])
	assert.Equal(t, []domain.LeaderboardEntry{{Rank: 1, PlayerID: "late", Score: 5100, Username: "Late Finisher"}}, archive.boards["2024-01-01"])
	assert.NotContains(t, archive.boards, "2023-12-25")
}

func TestSyncWorker_RestoreRecent(t *testing.T) {
	ctx := context.Background()
	archive := newMemoryArchive()
	archive.boards["2024-01-02"] = []domain.LeaderboardEntry{
		{Rank: 1, PlayerID: "a", Score: 7000, Username: "A"},
		{Rank: 2, PlayerID: "b", Score: 6000, Username: "B"},
	}
	archive.boards["2024-01-01"] = []domain.LeaderboardEntry{
		{Rank: 1, PlayerID: "c", Score: 3000, Username: "C"},
	}

	st := store.NewMemoryStore()
	w, board := newWorker(t, st, archive)

	// Yesterday already has live data and must not be overwritten
	require.NoError(t, board.Record(ctx, "2024-01-01", "live", "Live", 100))

	w.RestoreRecent(ctx)

	today, err := board.TopN(ctx, "2024-01-02", 10)
	require.NoError(t, err)
	assert.Equal(t, archive.boards["2024-01-02"], today)

	yesterday, err := board.TopN(ctx, "2024-01-01", 10)
	require.NoError(t, err)
	require.Len(t, yesterday, 1)
	assert.Equal(t, "live", yesterday[0].PlayerID)
}

func TestSyncWorker_StartStop(t *testing.T) {
	w, _ := newWorker(t, store.NewMemoryStore(), newMemoryArchive())

	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsRunning())
	require.NoError(t, w.Start(context.Background()), "second start is a no-op")

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
	require.NoError(t, w.Stop())
}
