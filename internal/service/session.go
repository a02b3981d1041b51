package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/daily-meme-quiz/internal/config"
	"github.com/daily-meme-quiz/internal/domain"
	"github.com/daily-meme-quiz/internal/shuffle"
	"github.com/daily-meme-quiz/internal/store"
	"github.com/google/uuid"
)

// SessionService tracks each player's progress through a date's puzzle
type SessionService struct {
	store  store.Store
	config *config.PuzzleConfig
	now    func() time.Time
	logger *slog.Logger
}

// NewSessionService creates a session manager
func NewSessionService(st store.Store, cfg *config.PuzzleConfig, logger *slog.Logger) *SessionService {
	return &SessionService{
		store:  st,
		config: cfg,
		now:    time.Now,
		logger: logger,
	}
}

// SetClock replaces the time source
func (s *SessionService) SetClock(now func() time.Time) {
	s.now = now
}

// StartOrResume returns the player's unfinished session for date, or
// creates a fresh one. A stored session that is finished or structurally
// invalid is replaced.
func (s *SessionService) StartOrResume(ctx context.Context, playerID, date string, questions []domain.Question) (*domain.Session, error) {
	count := s.config.QuestionsPerRun
	if len(questions) < count {
		return nil, fmt.Errorf("%w: %d questions for %s", domain.ErrPuzzleIncomplete, len(questions), date)
	}

	var existing domain.Session
	found, err := s.store.GetJSON(ctx, sessionKey(date, playerID), &existing)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if found && existing.Resumable(count) {
		return &existing, nil
	}

	locked, err := s.store.Exists(ctx, lockKey(date, playerID))
	if err != nil {
		return nil, fmt.Errorf("checking official lock: %w", err)
	}

	now := s.now().UTC()
	session := &domain.Session{
		Date:           date,
		PlayerID:       playerID,
		RunID:          uuid.NewString(),
		QuestionCursor: 0,
		TotalScore:     0,
		PlayOrder:      shuffle.Indices(len(questions), date)[:count],
		IsPractice:     locked,
		StartedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Save(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Debug("session created",
		"date", date,
		"player_id", playerID,
		"run_id", session.RunID,
		"is_practice", locked,
	)
	return session, nil
}

// Get loads the stored session for (date, playerID)
func (s *SessionService) Get(ctx context.Context, playerID, date string) (*domain.Session, error) {
	var session domain.Session
	found, err := s.store.GetJSON(ctx, sessionKey(date, playerID), &session)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if !found {
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

// Save persists a session
func (s *SessionService) Save(ctx context.Context, session *domain.Session) error {
	if err := s.store.SetJSON(ctx, sessionKey(session.Date, session.PlayerID), session, s.config.SessionTTL); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Reset drops the stored session so the next round start begins a new run
func (s *SessionService) Reset(ctx context.Context, playerID, date string) error {
	if err := s.store.Delete(ctx, sessionKey(date, playerID)); err != nil {
		return fmt.Errorf("resetting session: %w", err)
	}
	return nil
}
