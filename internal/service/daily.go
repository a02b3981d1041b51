package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/daily-meme-quiz/internal/catalog"
	"github.com/daily-meme-quiz/internal/config"
	"github.com/daily-meme-quiz/internal/domain"
	"github.com/daily-meme-quiz/internal/metrics"
	"github.com/daily-meme-quiz/internal/shuffle"
	"github.com/daily-meme-quiz/internal/store"
)

// PuzzleArchive durably records generated puzzles
type PuzzleArchive interface {
	SavePuzzle(ctx context.Context, puzzle *domain.DailyPuzzle) error
}

// DailyService produces each date's fixed question set
type DailyService struct {
	store   store.Store
	units   []domain.CatalogUnit
	config  *config.PuzzleConfig
	archive PuzzleArchive
	now     func() time.Time
	logger  *slog.Logger
}

// NewDailyService creates a daily puzzle generator over the given catalog
func NewDailyService(
	st store.Store,
	units []domain.CatalogUnit,
	cfg *config.PuzzleConfig,
	logger *slog.Logger,
) *DailyService {
	return &DailyService{
		store:  st,
		units:  catalog.Usable(units),
		config: cfg,
		now:    time.Now,
		logger: logger,
	}
}

// SetArchive attaches durable puzzle storage
func (s *DailyService) SetArchive(archive PuzzleArchive) {
	s.archive = archive
}

// SetClock replaces the time source
func (s *DailyService) SetClock(now func() time.Time) {
	s.now = now
}

// GetOrCreate returns the puzzle for date, generating it on first access.
// A complete stored puzzle is returned verbatim even if the catalog has
// changed since it was generated.
//
// Two first requests racing on an unseen date may both generate; the later
// write wins and both results are valid samples.
func (s *DailyService) GetOrCreate(ctx context.Context, date string) (*domain.DailyPuzzle, error) {
	if err := domain.ValidateDate(date); err != nil {
		return nil, err
	}

	var existing domain.DailyPuzzle
	found, err := s.store.GetJSON(ctx, dailyKey(date), &existing)
	if err != nil {
		return nil, fmt.Errorf("loading daily puzzle: %w", err)
	}
	if found && len(existing.Questions) == s.config.QuestionsPerRun {
		return &existing, nil
	}

	return s.generate(ctx, date)
}

func (s *DailyService) generate(ctx context.Context, date string) (*domain.DailyPuzzle, error) {
	count := s.config.QuestionsPerRun
	if len(s.units) < count {
		return nil, fmt.Errorf("%w: have %d, need %d", domain.ErrCatalogTooSmall, len(s.units), count)
	}

	usedBefore, err := s.store.SMembers(ctx, usedUnitsKey)
	if err != nil {
		return nil, fmt.Errorf("loading used units: %w", err)
	}
	used := make(map[string]struct{}, len(usedBefore))
	for _, id := range usedBefore {
		used[id] = struct{}{}
	}

	available := make([]domain.CatalogUnit, 0, len(s.units))
	for _, u := range s.units {
		if _, ok := used[u.UniqueID]; !ok {
			available = append(available, u)
		}
	}

	reused := false
	if len(available) < count {
		if err := s.store.Delete(ctx, usedUnitsKey); err != nil {
			return nil, fmt.Errorf("resetting used units: %w", err)
		}
		available = s.units
		reused = true
	}

	selected := shuffle.Shuffle(available, date+":generated-assets")[:count]

	puzzle := &domain.DailyPuzzle{
		Date:                  date,
		CreatedAt:             s.now().UTC(),
		ReusedDueToExhaustion: reused,
		Questions:             make([]domain.Question, count),
	}
	selectedIDs := make([]string, count)
	for i, u := range selected {
		puzzle.Questions[i] = toQuestion(date, u)
		selectedIDs[i] = u.UniqueID
	}

	if err := s.store.SetJSON(ctx, dailyKey(date), puzzle, 0); err != nil {
		return nil, fmt.Errorf("saving daily puzzle: %w", err)
	}
	if err := s.store.SAdd(ctx, usedUnitsKey, selectedIDs...); err != nil {
		return nil, fmt.Errorf("marking units used: %w", err)
	}

	s.logger.Info("generated daily puzzle",
		"date", date,
		"used_count", len(usedBefore),
		"available_count", len(available),
		"selected_ids", selectedIDs,
		"reused_due_to_exhaustion", reused,
	)
	metrics.PuzzlesGenerated.WithLabelValues(fmt.Sprint(reused)).Inc()

	if s.archive != nil {
		if err := s.archive.SavePuzzle(ctx, puzzle); err != nil {
			s.logger.Warn("failed to archive daily puzzle", "date", date, "error", err)
		}
	}

	return puzzle, nil
}

func toQuestion(date string, u domain.CatalogUnit) domain.Question {
	templateID := u.ID
	if templateID == "" {
		templateID = u.UniqueID
	}
	return domain.Question{
		ID:          date + ":" + templateID,
		UniqueID:    u.UniqueID,
		TemplateID:  templateID,
		Title:       u.Title,
		ClueImage:   u.ClueImage,
		AnswerImage: u.AnswerImage,
	}
}
