package domain

import "time"

// LeaderboardEntry represents a single entry in a date's leaderboard
type LeaderboardEntry struct {
	Rank     int64  `json:"rank"`
	PlayerID string `json:"player_id"`
	Score    int64  `json:"score"`
	Username string `json:"username,omitempty"`
}

// RunResult is a completed run, official or practice, as archived
type RunResult struct {
	RunID          string         `json:"run_id"`
	Date           string         `json:"date"`
	PlayerID       string         `json:"player_id"`
	Username       string         `json:"username"`
	Score          int64          `json:"score"`
	Classification Classification `json:"classification"`
	Answers        []AnswerRecord `json:"answers,omitempty"`
	CompletedAt    time.Time      `json:"completed_at"`
}
