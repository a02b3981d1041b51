package service

import (
	"context"
	"testing"

	"github.com/daily-meme-quiz/internal/domain"
	"github.com/daily-meme-quiz/internal/shuffle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_StartOrResume(t *testing.T) {
	e := newEngine(t, 10)
	ctx := context.Background()

	puzzle, err := e.daily.GetOrCreate(ctx, "2024-01-01")
	require.NoError(t, err)

	session, err := e.sessions.StartOrResume(ctx, "alice", "2024-01-01", puzzle.Questions)
	require.NoError(t, err)

	assert.Equal(t, 0, session.QuestionCursor)
	assert.Equal(t, int64(0), session.TotalScore)
	assert.False(t, session.IsPractice)
	assert.NotEmpty(t, session.RunID)
	assert.Equal(t, []int{3, 6, 2, 1, 4, 5, 0}, session.PlayOrder)
	assert.Equal(t, shuffle.Indices(7, "2024-01-01"), session.PlayOrder)

	session.QuestionCursor = 3
	session.TotalScore = 2500
	require.NoError(t, e.sessions.Save(ctx, session))

	resumed, err := e.sessions.StartOrResume(ctx, "alice", "2024-01-01", puzzle.Questions)
	require.NoError(t, err)
	assert.Equal(t, session.RunID, resumed.RunID)
	assert.Equal(t, 3, resumed.QuestionCursor)
	assert.Equal(t, int64(2500), resumed.TotalScore)
}

func TestSessionService_ReplacesFinishedOrInvalid(t *testing.T) {
	e := newEngine(t, 10)
	ctx := context.Background()

	puzzle, err := e.daily.GetOrCreate(ctx, "2024-01-01")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(s *domain.Session)
	}{
		{"finished", func(s *domain.Session) { s.QuestionCursor = 7 }},
		{"short play order", func(s *domain.Session) { s.PlayOrder = s.PlayOrder[:3] }},
		{"negative cursor", func(s *domain.Session) { s.QuestionCursor = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := e.sessions.StartOrResume(ctx, "bob", "2024-01-01", puzzle.Questions)
			require.NoError(t, err)
			tt.mutate(session)
			session.TotalScore = 900
			require.NoError(t, e.sessions.Save(ctx, session))

			fresh, err := e.sessions.StartOrResume(ctx, "bob", "2024-01-01", puzzle.Questions)
			require.NoError(t, err)
			assert.NotEqual(t, session.RunID, fresh.RunID)
			assert.Equal(t, 0, fresh.QuestionCursor)
			assert.Equal(t, int64(0), fresh.TotalScore)
			assert.Len(t, fresh.PlayOrder, 7)
		})
	}
}

func TestSessionService_PracticeWhenLocked(t *testing.T) {
	e := newEngine(t, 10)
	ctx := context.Background()

	puzzle, err := e.daily.GetOrCreate(ctx, "2024-01-01")
	require.NoError(t, err)

	ok, err := e.store.SetIfAbsent(ctx, lockKey("2024-01-01", "carol"), "run", e.config.Puzzle.LockTTL)
	require.NoError(t, err)
	require.True(t, ok)

	session, err := e.sessions.StartOrResume(ctx, "carol", "2024-01-01", puzzle.Questions)
	require.NoError(t, err)
	assert.True(t, session.IsPractice)
}

func TestSessionService_Incomplete(t *testing.T) {
	e := newEngine(t, 10)

	_, err := e.sessions.StartOrResume(context.Background(), "dave", "2024-01-01", make([]domain.Question, 3))
	assert.ErrorIs(t, err, domain.ErrPuzzleIncomplete)
}

func TestSessionService_GetAndReset(t *testing.T) {
	e := newEngine(t, 10)
	ctx := context.Background()

	_, err := e.sessions.Get(ctx, "erin", "2024-01-01")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	puzzle, err := e.daily.GetOrCreate(ctx, "2024-01-01")
	require.NoError(t, err)
	_, err = e.sessions.StartOrResume(ctx, "erin", "2024-01-01", puzzle.Questions)
	require.NoError(t, err)

	_, err = e.sessions.Get(ctx, "erin", "2024-01-01")
	require.NoError(t, err)

	require.NoError(t, e.sessions.Reset(ctx, "erin", "2024-01-01"))
	_, err = e.sessions.Get(ctx, "erin", "2024-01-01")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
