package handler

import (
	"net/http"
	"strconv"

	"github.com/daily-meme-quiz/internal/domain"
	"github.com/go-chi/chi/v5"
)

// effectiveDate resolves the puzzle date a request plays against
func (h *Handler) effectiveDate(override string) (string, error) {
	return domain.ResolveEffectiveDate(override, h.app.AllowDateOverride(), h.now())
}

// GetDaily returns the public summary of a date's puzzle
func (h *Handler) GetDaily(w http.ResponseWriter, r *http.Request) {
	date, err := h.effectiveDate(r.URL.Query().Get("date"))
	if err != nil {
		h.writeServiceError(w, "resolve date", err)
		return
	}

	puzzle, err := h.daily.GetOrCreate(r.Context(), date)
	if err != nil {
		h.writeServiceError(w, "get daily puzzle", err)
		return
	}

	h.writeSuccess(w, puzzle.Summary())
}

// StartRound issues the caller's next round
func (h *Handler) StartRound(w http.ResponseWriter, r *http.Request) {
	var req DateRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeServiceError(w, "decode round start", err)
		return
	}

	date, err := h.effectiveDate(req.DateOverride)
	if err != nil {
		h.writeServiceError(w, "resolve date", err)
		return
	}

	challenge, err := h.rounds.StartRound(r.Context(), ResolveIdentity(r), date)
	if err != nil {
		h.writeServiceError(w, "start round", err)
		return
	}

	h.writeSuccess(w, challenge)
}

// AnswerRound scores a submitted answer
func (h *Handler) AnswerRound(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeServiceError(w, "decode answer", err)
		return
	}

	result, err := h.rounds.AnswerRound(r.Context(), ResolveIdentity(r), req.RoundToken, req.SelectedOptionID)
	if err != nil {
		h.writeServiceError(w, "answer round", err)
		return
	}

	h.writeSuccess(w, result)
}

// NewRun clears the caller's finished run so the next round starts over
func (h *Handler) NewRun(w http.ResponseWriter, r *http.Request) {
	var req DateRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeServiceError(w, "decode new run", err)
		return
	}

	date, err := h.effectiveDate(req.DateOverride)
	if err != nil {
		h.writeServiceError(w, "resolve date", err)
		return
	}

	if err := h.rounds.NewRun(r.Context(), ResolveIdentity(r), date); err != nil {
		h.writeServiceError(w, "start new run", err)
		return
	}

	h.writeSuccess(w, map[string]string{"status": "reset", "date": date})
}

// GetLeaderboard returns the top players for a date
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	date, err := h.effectiveDate(r.URL.Query().Get("date"))
	if err != nil {
		h.writeServiceError(w, "resolve date", err)
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	entries, err := h.leaderboard.TopN(r.Context(), date, limit)
	if err != nil {
		h.writeServiceError(w, "get leaderboard", err)
		return
	}

	h.writeSuccess(w, map[string]interface{}{
		"date":    date,
		"entries": entries,
	})
}

// GetPlayerRuns returns a player's archived runs, newest first
func (h *Handler) GetPlayerRuns(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, http.StatusNotFound, errHistoryDisabled)
		return
	}

	playerID := chi.URLParam(r, "playerID")
	if playerID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	runs, err := h.history.GetPlayerRuns(r.Context(), playerID, limit)
	if err != nil {
		h.writeServiceError(w, "get player runs", err)
		return
	}

	h.writeSuccess(w, runs)
}
