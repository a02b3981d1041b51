package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/daily-meme-quiz/internal/config"
	"github.com/daily-meme-quiz/internal/domain"
	"github.com/daily-meme-quiz/internal/metrics"
	"github.com/daily-meme-quiz/internal/scoring"
	"github.com/daily-meme-quiz/internal/shuffle"
	"github.com/daily-meme-quiz/internal/store"
	"github.com/google/uuid"
)

// leaderboardPreview is how many entries accompany a completed run
const leaderboardPreview = 10

// RunRecorder receives every completed run, official or practice
type RunRecorder interface {
	RecordRun(ctx context.Context, run domain.RunResult) error
}

// Broadcaster pushes leaderboard changes to live subscribers
type Broadcaster interface {
	BroadcastLeaderboard(date string, entries []domain.LeaderboardEntry)
}

// RoundService issues round tokens and scores answers against them
type RoundService struct {
	store       store.Store
	daily       *DailyService
	sessions    *SessionService
	leaderboard *LeaderboardService
	config      *config.PuzzleConfig
	recorder    RunRecorder
	broadcaster Broadcaster
	now         func() time.Time
	logger      *slog.Logger
}

// NewRoundService wires the round manager to its collaborators
func NewRoundService(
	st store.Store,
	daily *DailyService,
	sessions *SessionService,
	leaderboard *LeaderboardService,
	cfg *config.PuzzleConfig,
	logger *slog.Logger,
) *RoundService {
	return &RoundService{
		store:       st,
		daily:       daily,
		sessions:    sessions,
		leaderboard: leaderboard,
		config:      cfg,
		now:         time.Now,
		logger:      logger,
	}
}

// SetRecorder sets where completed runs are published
func (s *RoundService) SetRecorder(recorder RunRecorder) {
	s.recorder = recorder
}

// SetBroadcaster sets the live leaderboard fan-out
func (s *RoundService) SetBroadcaster(broadcaster Broadcaster) {
	s.broadcaster = broadcaster
}

// SetClock replaces the time source
func (s *RoundService) SetClock(now func() time.Time) {
	s.now = now
}

// StartRound issues a token for the caller's current question on date
func (s *RoundService) StartRound(ctx context.Context, identity domain.Identity, date string) (*domain.RoundChallenge, error) {
	puzzle, err := s.daily.GetOrCreate(ctx, date)
	if err != nil {
		return nil, err
	}
	count := s.config.QuestionsPerRun
	if len(puzzle.Questions) < count {
		return nil, fmt.Errorf("%w: %d questions for %s", domain.ErrPuzzleIncomplete, len(puzzle.Questions), date)
	}

	session, err := s.sessions.StartOrResume(ctx, identity.UserID, date, puzzle.Questions)
	if err != nil {
		return nil, err
	}
	// StartOrResume replaces finished sessions, so this only guards a
	// session written by something else.
	if session.QuestionCursor >= count {
		return nil, domain.ErrRunComplete
	}

	questionNumber := session.QuestionCursor + 1
	index := session.PlayOrder[session.QuestionCursor]
	question := puzzle.Questions[index]
	correctID := question.TemplateID

	now := s.now().UTC()
	round := domain.Round{
		Token:          uuid.NewString(),
		PlayerID:       identity.UserID,
		Date:           date,
		RunID:          session.RunID,
		IssuedAt:       now,
		MemeIndex:      index,
		QuestionNumber: questionNumber,
		CorrectID:      correctID,
		CorrectTitle:   question.Title,
		AnswerImage:    question.AnswerImage,
	}
	if err := s.store.SetJSON(ctx, roundKey(round.Token), round, s.config.RoundTTL); err != nil {
		return nil, fmt.Errorf("saving round: %w", err)
	}
	metrics.RoundsStarted.Inc()

	return &domain.RoundChallenge{
		RoundToken:     round.Token,
		Date:           date,
		QuestionNumber: questionNumber,
		TotalQuestions: count,
		ClueImage:      question.ClueImage,
		Options:        s.buildOptions(date, questionNumber, index, puzzle.Questions),
		AnswerHash:     AnswerHash(correctID),
		ScoreSoFar:     session.TotalScore,
		IsPractice:     session.IsPractice,
		ExpiresAt:      now.Add(s.config.RoundTTL),
	}, nil
}

// buildOptions picks distractors from the rest of the day's questions and
// shuffles them together with the correct one.
func (s *RoundService) buildOptions(date string, questionNumber, correctIndex int, questions []domain.Question) []domain.Option {
	prefix := date + ":" + strconv.Itoa(questionNumber)

	others := make([]int, 0, len(questions)-1)
	for i := range questions {
		if i != correctIndex {
			others = append(others, i)
		}
	}
	distractors := shuffle.Shuffle(others, prefix+":distractors")
	if n := s.config.OptionsPerRound - 1; len(distractors) > n {
		distractors = distractors[:n]
	}

	correct := questions[correctIndex]
	candidates := append([]int{correctIndex}, distractors...)
	ordered := shuffle.Shuffle(candidates, prefix+":"+correct.TemplateID+":options")

	options := make([]domain.Option, len(ordered))
	for i, idx := range ordered {
		options[i] = domain.Option{ID: questions[idx].TemplateID, Label: questions[idx].Title}
	}
	return options
}

// AnswerRound scores the caller's answer to the round behind token
func (s *RoundService) AnswerRound(ctx context.Context, identity domain.Identity, token, selectedOptionID string) (*domain.AnswerResult, error) {
	if token == "" || selectedOptionID == "" {
		return nil, fmt.Errorf("%w: round token and selected option are required", domain.ErrInvalidRequest)
	}
	received := s.now().UTC()

	var round domain.Round
	found, err := s.store.GetJSON(ctx, roundKey(token), &round)
	if err != nil {
		return nil, fmt.Errorf("loading round: %w", err)
	}
	if !found {
		metrics.AnswerRejections.WithLabelValues("expired").Inc()
		return nil, domain.ErrRoundNotFound
	}
	if round.PlayerID != identity.UserID {
		metrics.AnswerRejections.WithLabelValues("forbidden").Inc()
		return nil, domain.ErrForbidden
	}

	session, err := s.sessions.Get(ctx, round.PlayerID, round.Date)
	if err != nil {
		return nil, err
	}
	if session.RunID != round.RunID || session.QuestionCursor+1 != round.QuestionNumber {
		metrics.AnswerRejections.WithLabelValues("order").Inc()
		if err := s.store.Delete(ctx, roundKey(token)); err != nil {
			s.logger.Warn("failed to delete stale round", "token", token, "error", err)
		}
		return nil, fmt.Errorf("%w: question %d, session at %d", domain.ErrOrderConflict, round.QuestionNumber, session.QuestionCursor)
	}

	elapsed := received.Sub(round.IssuedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	correct := selectedOptionID == round.CorrectID
	points := scoring.ScoreForRound(correct, elapsed)

	session.TotalScore += points
	session.QuestionCursor++
	session.Answers = append(session.Answers, domain.AnswerRecord{
		QuestionNumber: round.QuestionNumber,
		Correct:        correct,
		Points:         points,
		ElapsedMs:      elapsed.Milliseconds(),
	})
	session.UpdatedAt = received
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, roundKey(token)); err != nil {
		return nil, fmt.Errorf("deleting round: %w", err)
	}

	metrics.AnswersTotal.WithLabelValues(metrics.ResultLabel(correct)).Inc()
	metrics.AnswerLatency.Observe(elapsed.Seconds())

	count := s.config.QuestionsPerRun
	result := &domain.AnswerResult{
		Status:          domain.RoundStatusContinue,
		Correct:         correct,
		CorrectOptionID: round.CorrectID,
		CorrectTitle:    round.CorrectTitle,
		AnswerImage:     round.AnswerImage,
		Points:          points,
		ElapsedMs:       elapsed.Milliseconds(),
		TotalScore:      session.TotalScore,
		QuestionNumber:  round.QuestionNumber,
		TotalQuestions:  count,
	}
	if session.QuestionCursor < count {
		return result, nil
	}

	if err := s.complete(ctx, identity, session, result); err != nil {
		return nil, err
	}
	return result, nil
}

// complete classifies a finished run and records it at most once officially
func (s *RoundService) complete(ctx context.Context, identity domain.Identity, session *domain.Session, result *domain.AnswerResult) error {
	classification := domain.ClassificationPractice
	if !session.IsPractice {
		won, err := s.store.SetIfAbsent(ctx, lockKey(session.Date, session.PlayerID), session.RunID, s.config.LockTTL)
		if err != nil {
			return fmt.Errorf("acquiring official lock: %w", err)
		}
		if won {
			classification = domain.ClassificationOfficial
			if err := s.leaderboard.Record(ctx, session.Date, session.PlayerID, identity.Username, session.TotalScore); err != nil {
				// Release the lock so the player's next completed run can still count.
				if delErr := s.store.Delete(ctx, lockKey(session.Date, session.PlayerID)); delErr != nil {
					s.logger.Error("failed to release official lock", "player_id", session.PlayerID, "date", session.Date, "error", delErr)
				}
				return err
			}
		}
	}

	top, err := s.leaderboard.TopN(ctx, session.Date, leaderboardPreview)
	if err != nil {
		return err
	}

	result.Status = domain.RoundStatusComplete
	result.Classification = classification
	result.Answers = session.Answers
	result.Leaderboard = top

	metrics.RunsCompleted.WithLabelValues(string(classification)).Inc()
	s.logger.Info("run completed",
		"date", session.Date,
		"player_id", session.PlayerID,
		"run_id", session.RunID,
		"score", session.TotalScore,
		"classification", classification,
	)

	if s.recorder != nil {
		run := domain.RunResult{
			RunID:          session.RunID,
			Date:           session.Date,
			PlayerID:       session.PlayerID,
			Username:       identity.Username,
			Score:          session.TotalScore,
			Classification: classification,
			Answers:        session.Answers,
			CompletedAt:    session.UpdatedAt,
		}
		if err := s.recorder.RecordRun(ctx, run); err != nil {
			s.logger.Warn("failed to record run", "run_id", session.RunID, "error", err)
		}
	}
	if s.broadcaster != nil && classification == domain.ClassificationOfficial {
		s.broadcaster.BroadcastLeaderboard(session.Date, top)
	}
	return nil
}

// NewRun discards the caller's finished session so the next round start
// begins a fresh run. A run still in progress is left alone.
func (s *RoundService) NewRun(ctx context.Context, identity domain.Identity, date string) error {
	if err := domain.ValidateDate(date); err != nil {
		return err
	}
	session, err := s.sessions.Get(ctx, identity.UserID, date)
	if err != nil {
		if domain.IsNotFoundError(err) {
			return nil
		}
		return err
	}
	if session.Resumable(s.config.QuestionsPerRun) && session.QuestionCursor > 0 {
		return fmt.Errorf("%w: run in progress", domain.ErrOrderConflict)
	}
	return s.sessions.Reset(ctx, identity.UserID, date)
}

// AnswerHash is the content-addressed digest of a correct answer id
func AnswerHash(correctID string) string {
	sum := sha256.Sum256([]byte(correctID))
	return hex.EncodeToString(sum[:])
}
