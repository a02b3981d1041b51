package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/daily-meme-quiz/internal/catalog"
	"github.com/daily-meme-quiz/internal/config"
	"github.com/daily-meme-quiz/internal/domain"
	"github.com/daily-meme-quiz/internal/service"
	"github.com/daily-meme-quiz/internal/store"
	"github.com/daily-meme-quiz/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("connection refused") }

type fakeHistory struct {
	runs []domain.RunResult
}

func (f *fakeHistory) GetPlayerRuns(_ context.Context, playerID string, limit int) ([]domain.RunResult, error) {
	var out []domain.RunResult
	for _, r := range f.runs {
		if r.PlayerID == playerID && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

type testServer struct {
	handler *Handler
	store   *store.MemoryStore
	router  http.Handler
}

func newTestServer(t *testing.T, environment string) *testServer {
	t.Helper()

	now := func() time.Time { return time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC) }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.DefaultConfig()
	cfg.App.Environment = environment

	st := store.NewMemoryStoreWithClock(now)
	daily := service.NewDailyService(st, catalog.Builtin(cfg.Puzzle.AssetBaseURL), &cfg.Puzzle, logger)
	daily.SetClock(now)
	sessions := service.NewSessionService(st, &cfg.Puzzle, logger)
	sessions.SetClock(now)
	leaderboard := service.NewLeaderboardService(st, &cfg.Leaderboard, cfg.Puzzle.LockTTL, logger)
	rounds := service.NewRoundService(st, daily, sessions, leaderboard, &cfg.Puzzle, logger)
	rounds.SetClock(now)

	h := NewHandler(daily, rounds, leaderboard, st, websocket.NewHub(logger), cfg.App, logger)
	h.SetClock(now)

	return &testServer{handler: h, store: st, router: h.Router()}
}

func (s *testServer) do(t *testing.T, method, path, userID string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set(HeaderUserID, userID)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (s *testServer) correctOption(t *testing.T, token string) string {
	t.Helper()

	var round domain.Round
	found, err := s.store.GetJSON(context.Background(), "round:"+token, &round)
	require.NoError(t, err)
	require.True(t, found)
	return round.CorrectID
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, "development")

	code, env := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, _ = s.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, code)

	s.handler.pinger = downPinger{}
	code, env = s.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.False(t, env.Success)
}

func TestGetDaily(t *testing.T) {
	s := newTestServer(t, "development")

	code, env := s.do(t, http.MethodGet, "/api/v1/daily", "", nil)
	require.Equal(t, http.StatusOK, code)

	var summary domain.PuzzleSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, "2024-01-01", summary.Date)
	assert.Equal(t, 7, summary.QuestionCount)
	assert.NotContains(t, string(env.Data), "ANSWER.png")

	code, env = s.do(t, http.MethodGet, "/api/v1/daily?date=2024-02-30", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, domain.ErrInvalidDate.Error(), env.Error)
}

func TestDateOverrideRejectedInProduction(t *testing.T) {
	s := newTestServer(t, config.EnvironmentProduction)

	code, env := s.do(t, http.MethodPost, "/api/v1/round/start", "u1", DateRequest{DateOverride: "2023-12-31"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, domain.ErrDateOverrideNotAllowed.Error(), env.Error)

	code, _ = s.do(t, http.MethodPost, "/api/v1/round/start", "u1", nil)
	assert.Equal(t, http.StatusOK, code, "empty body plays today")
}

func TestDateOverrideIsTrimmed(t *testing.T) {
	s := newTestServer(t, "development")

	code, env := s.do(t, http.MethodPost, "/api/v1/round/start", "u1", DateRequest{DateOverride: " 2023-12-31\t"})
	require.Equal(t, http.StatusOK, code, env.Error)

	var challenge domain.RoundChallenge
	require.NoError(t, json.Unmarshal(env.Data, &challenge))
	assert.Equal(t, "2023-12-31", challenge.Date)

	code, env = s.do(t, http.MethodPost, "/api/v1/round/start", "u1", DateRequest{DateOverride: " 12/31/2023 "})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, domain.ErrInvalidDate.Error(), env.Error)
}

func TestFullRunOverHTTP(t *testing.T) {
	s := newTestServer(t, "development")

	var result domain.AnswerResult
	for i := 0; i < 7; i++ {
		code, env := s.do(t, http.MethodPost, "/api/v1/round/start", "player-1", DateRequest{DateOverride: "2024-01-01"})
		require.Equal(t, http.StatusOK, code, env.Error)

		var challenge domain.RoundChallenge
		require.NoError(t, json.Unmarshal(env.Data, &challenge))
		assert.Equal(t, i+1, challenge.QuestionNumber)
		assert.Len(t, challenge.Options, 3)

		code, env = s.do(t, http.MethodPost, "/api/v1/round/answer", "player-1", AnswerRequest{
			RoundToken:       challenge.RoundToken,
			SelectedOptionID: s.correctOption(t, challenge.RoundToken),
		})
		require.Equal(t, http.StatusOK, code, env.Error)
		require.NoError(t, json.Unmarshal(env.Data, &result))
	}

	assert.Equal(t, domain.RoundStatusComplete, result.Status)
	assert.Equal(t, domain.ClassificationOfficial, result.Classification)
	assert.Equal(t, int64(7000), result.TotalScore)

	code, env := s.do(t, http.MethodGet, "/api/v1/leaderboard?date=2024-01-01&limit=5", "", nil)
	require.Equal(t, http.StatusOK, code)

	var board struct {
		Date    string                    `json:"date"`
		Entries []domain.LeaderboardEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &board))
	require.Len(t, board.Entries, 1)
	assert.Equal(t, "player-1", board.Entries[0].PlayerID)
	assert.Equal(t, "user_player-1", board.Entries[0].Username)
	assert.Equal(t, int64(7000), board.Entries[0].Score)
}

func TestAnswerErrors(t *testing.T) {
	s := newTestServer(t, "development")

	code, _ := s.do(t, http.MethodPost, "/api/v1/round/answer", "u1", AnswerRequest{RoundToken: "abc"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/round/answer", "u1", AnswerRequest{RoundToken: "missing", SelectedOptionID: "x"})
	assert.Equal(t, http.StatusNotFound, code)

	code, env := s.do(t, http.MethodPost, "/api/v1/round/start", "u1", nil)
	require.Equal(t, http.StatusOK, code)
	var challenge domain.RoundChallenge
	require.NoError(t, json.Unmarshal(env.Data, &challenge))

	code, _ = s.do(t, http.MethodPost, "/api/v1/round/answer", "u2", AnswerRequest{
		RoundToken:       challenge.RoundToken,
		SelectedOptionID: challenge.Options[0].ID,
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/round/answer", "u1", AnswerRequest{
		RoundToken:       challenge.RoundToken,
		SelectedOptionID: challenge.Options[0].ID,
	})
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/run/new", "u1", nil)
	assert.Equal(t, http.StatusConflict, code, "run in progress")
}

func TestMalformedBody(t *testing.T) {
	s := newTestServer(t, "development")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/round/answer", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPlayerRuns(t *testing.T) {
	s := newTestServer(t, "development")

	code, _ := s.do(t, http.MethodGet, "/api/v1/players/u1/runs", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	s.handler.SetHistory(&fakeHistory{runs: []domain.RunResult{
		{RunID: "r1", PlayerID: "u1", Score: 6000, Classification: domain.ClassificationOfficial},
		{RunID: "r2", PlayerID: "u2", Score: 100},
	}})

	code, env := s.do(t, http.MethodGet, "/api/v1/players/u1/runs?limit=5", "", nil)
	require.Equal(t, http.StatusOK, code)

	var runs []domain.RunResult
	require.NoError(t, json.Unmarshal(env.Data, &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0].RunID)
}
