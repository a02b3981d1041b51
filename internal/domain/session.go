package domain

import "time"

// Identity is the caller as resolved by the routing layer
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Session tracks one player's progress through a date's puzzle
type Session struct {
	Date           string         `json:"date"`
	PlayerID       string         `json:"player_id"`
	RunID          string         `json:"run_id"`
	QuestionCursor int            `json:"question_cursor"`
	TotalScore     int64          `json:"total_score"`
	PlayOrder      []int          `json:"play_order"`
	IsPractice     bool           `json:"is_practice"`
	Answers        []AnswerRecord `json:"answers,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Resumable reports whether the session is structurally valid and unfinished
func (s *Session) Resumable(questionsPerRun int) bool {
	return len(s.PlayOrder) == questionsPerRun &&
		s.QuestionCursor >= 0 &&
		s.QuestionCursor < questionsPerRun
}

// AnswerRecord is the outcome of one answered round
type AnswerRecord struct {
	QuestionNumber int   `json:"question_number"`
	Correct        bool  `json:"correct"`
	Points         int64 `json:"points"`
	ElapsedMs      int64 `json:"elapsed_ms"`
}
