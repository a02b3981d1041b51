package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/daily-meme-quiz/internal/config"
	"github.com/daily-meme-quiz/internal/domain"
	"github.com/daily-meme-quiz/internal/store"
)

// LeaderboardService ranks official runs per date
type LeaderboardService struct {
	store   store.Store
	config  *config.LeaderboardConfig
	lockTTL time.Duration
	logger  *slog.Logger
}

// NewLeaderboardService creates a new leaderboard service. lockTTL is how
// long a restored entry keeps its player's official-run lock.
func NewLeaderboardService(st store.Store, cfg *config.LeaderboardConfig, lockTTL time.Duration, logger *slog.Logger) *LeaderboardService {
	return &LeaderboardService{
		store:   st,
		config:  cfg,
		lockTTL: lockTTL,
		logger:  logger,
	}
}

// Record writes a player's score and display name for date. Scores are
// overwritten, never accumulated.
func (s *LeaderboardService) Record(ctx context.Context, date, playerID, username string, score int64) error {
	if err := s.store.ZAdd(ctx, leaderboardKey(date), float64(score), playerID); err != nil {
		return fmt.Errorf("recording score: %w", err)
	}
	if username == "" {
		return nil
	}
	if err := s.store.HSet(ctx, usernamesKey(date), playerID, username); err != nil {
		return fmt.Errorf("recording username: %w", err)
	}
	return nil
}

// TopN returns the top N players for date
func (s *LeaderboardService) TopN(ctx context.Context, date string, n int) ([]domain.LeaderboardEntry, error) {
	if err := domain.ValidateDate(date); err != nil {
		return nil, err
	}

	// Validate limit
	if n <= 0 {
		n = s.config.DefaultLimit
	}
	if n > s.config.MaxLimit {
		n = s.config.MaxLimit
	}

	return s.top(ctx, date, n)
}

// Snapshot returns up to limit entries without applying API limits
func (s *LeaderboardService) Snapshot(ctx context.Context, date string, limit int) ([]domain.LeaderboardEntry, error) {
	return s.top(ctx, date, limit)
}

// IsEmpty reports whether no score has been recorded for date
func (s *LeaderboardService) IsEmpty(ctx context.Context, date string) (bool, error) {
	top, err := s.store.ZTop(ctx, leaderboardKey(date), 1)
	if err != nil {
		return false, fmt.Errorf("checking leaderboard: %w", err)
	}
	return len(top) == 0, nil
}

// Restore reloads archived entries into the store. Every restored player
// also gets the official-run lock back, so a later run that day is practice.
func (s *LeaderboardService) Restore(ctx context.Context, date string, entries []domain.LeaderboardEntry) error {
	for _, e := range entries {
		if _, err := s.store.SetIfAbsent(ctx, lockKey(date, e.PlayerID), restoredLockValue, s.lockTTL); err != nil {
			return fmt.Errorf("restoring official lock: %w", err)
		}
		if err := s.Record(ctx, date, e.PlayerID, e.Username, e.Score); err != nil {
			return err
		}
	}
	return nil
}

func (s *LeaderboardService) top(ctx context.Context, date string, n int) ([]domain.LeaderboardEntry, error) {
	members, err := s.store.ZTop(ctx, leaderboardKey(date), n)
	if err != nil {
		return nil, fmt.Errorf("getting top n: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, len(members))
	for i, m := range members {
		username, ok, err := s.store.HGet(ctx, usernamesKey(date), m.Member)
		if err != nil {
			return nil, fmt.Errorf("resolving username: %w", err)
		}
		if !ok || username == "" {
			username = m.Member
		}
		entries[i] = domain.LeaderboardEntry{
			Rank:     int64(i + 1),
			PlayerID: m.Member,
			Score:    int64(m.Score),
			Username: username,
		}
	}
	return entries, nil
}
