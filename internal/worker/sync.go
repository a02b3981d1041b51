package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/daily-meme-quiz/internal/config"
	"github.com/daily-meme-quiz/internal/domain"
)

// Board is the live leaderboard held in the store
type Board interface {
	Snapshot(ctx context.Context, date string, limit int) ([]domain.LeaderboardEntry, error)
	IsEmpty(ctx context.Context, date string) (bool, error)
	Restore(ctx context.Context, date string, entries []domain.LeaderboardEntry) error
}

// Archive is the durable copy of leaderboard snapshots
type Archive interface {
	UpsertLeaderboard(ctx context.Context, date string, entries []domain.LeaderboardEntry) error
	GetLeaderboard(ctx context.Context, date string, limit int) ([]domain.LeaderboardEntry, error)
}

// SyncWorker periodically snapshots recent leaderboards into the archive
type SyncWorker struct {
	board   Board
	archive Archive
	config  *config.SyncConfig
	now     func() time.Time
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewSyncWorker creates a new sync worker
func NewSyncWorker(board Board, archive Archive, cfg *config.SyncConfig, logger *slog.Logger) *SyncWorker {
	return &SyncWorker{
		board:   board,
		archive: archive,
		config:  cfg,
		now:     time.Now,
		logger:  logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// SetClock replaces the time source used to pick dates
func (w *SyncWorker) SetClock(now func() time.Time) {
	w.now = now
}

// Start begins the background sync process
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("sync worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background sync process
func (w *SyncWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("sync worker stopped")
	return nil
}

// run is the main worker loop
func (w *SyncWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.syncAll(ctx)
		}
	}
}

// recentDates are today and yesterday; yesterday keeps receiving late
// completions from sessions that started before midnight.
func (w *SyncWorker) recentDates() []string {
	now := w.now()
	return []string{
		domain.DateKey(now),
		domain.DateKey(now.AddDate(0, 0, -1)),
	}
}

// syncAll snapshots every recent leaderboard to the archive
func (w *SyncWorker) syncAll(ctx context.Context) {
	w.logger.Info("starting sync cycle")
	startTime := time.Now()

	syncedCount := 0
	errorCount := 0

	for _, date := range w.recentDates() {
		if err := w.SyncToDatabase(ctx, date); err != nil {
			w.logger.Error("failed to sync leaderboard", "date", date, "error", err)
			errorCount++
		} else {
			syncedCount++
		}
	}

	w.logger.Info("sync cycle completed",
		"duration", time.Since(startTime),
		"synced", syncedCount,
		"errors", errorCount,
	)
}

func (w *SyncWorker) limit() int {
	if w.config.BatchSize <= 0 {
		return 1000
	}
	return w.config.BatchSize
}

// SyncToDatabase archives the top of a date's leaderboard
func (w *SyncWorker) SyncToDatabase(ctx context.Context, date string) error {
	entries, err := w.board.Snapshot(ctx, date, w.limit())
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		w.logger.Debug("no scores to sync", "date", date)
		return nil
	}

	if err := w.archive.UpsertLeaderboard(ctx, date, entries); err != nil {
		return err
	}

	w.logger.Debug("synced leaderboard to database", "date", date, "player_count", len(entries))
	return nil
}

// SyncFromDatabase reloads a date's archived leaderboard into an empty store.
// A leaderboard that already has entries is left untouched.
func (w *SyncWorker) SyncFromDatabase(ctx context.Context, date string) error {
	empty, err := w.board.IsEmpty(ctx, date)
	if err != nil {
		return err
	}
	if !empty {
		w.logger.Debug("leaderboard already populated, skipping restore", "date", date)
		return nil
	}

	entries, err := w.archive.GetLeaderboard(ctx, date, w.limit())
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		w.logger.Debug("no scores to sync from database", "date", date)
		return nil
	}

	if err := w.board.Restore(ctx, date, entries); err != nil {
		return err
	}

	w.logger.Info("restored leaderboard from database", "date", date, "player_count", len(entries))
	return nil
}

// RestoreRecent reloads today's and yesterday's leaderboards after a restart
func (w *SyncWorker) RestoreRecent(ctx context.Context) {
	for _, date := range w.recentDates() {
		if err := w.SyncFromDatabase(ctx, date); err != nil {
			w.logger.Error("failed to restore leaderboard", "date", date, "error", err)
		}
	}
}

// IsRunning returns whether the worker is currently running
func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single sync cycle (useful for manual triggers)
func (w *SyncWorker) RunOnce(ctx context.Context) {
	w.syncAll(ctx)
}
