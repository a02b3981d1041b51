package domain

import "time"

// Classification labels a completed run
type Classification string

const (
	ClassificationOfficial Classification = "official"
	ClassificationPractice Classification = "practice"
)

// RoundStatus tells the client what to do after an answer
type RoundStatus string

const (
	RoundStatusContinue RoundStatus = "continue"
	RoundStatusComplete RoundStatus = "complete"
)

// Round is the server-side record behind a round token
type Round struct {
	Token          string    `json:"token"`
	PlayerID       string    `json:"player_id"`
	Date           string    `json:"date"`
	RunID          string    `json:"run_id"`
	IssuedAt       time.Time `json:"issued_at"`
	MemeIndex      int       `json:"meme_index"`
	QuestionNumber int       `json:"question_number"`
	CorrectID      string    `json:"correct_id"`
	CorrectTitle   string    `json:"correct_title"`
	AnswerImage    string    `json:"answer_image"`
}

// Option is one multiple-choice answer as shown to the player
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// RoundChallenge is what the client receives when a round starts
type RoundChallenge struct {
	RoundToken     string    `json:"round_token"`
	Date           string    `json:"date"`
	QuestionNumber int       `json:"question_number"`
	TotalQuestions int       `json:"total_questions"`
	ClueImage      string    `json:"clue_image"`
	Options        []Option  `json:"options"`
	AnswerHash     string    `json:"answer_hash"`
	ScoreSoFar     int64     `json:"score_so_far"`
	IsPractice     bool      `json:"is_practice"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// AnswerResult is the outcome of submitting an answer
type AnswerResult struct {
	Status          RoundStatus        `json:"status"`
	Correct         bool               `json:"correct"`
	CorrectOptionID string             `json:"correct_option_id"`
	CorrectTitle    string             `json:"correct_title"`
	AnswerImage     string             `json:"answer_image"`
	Points          int64              `json:"points"`
	ElapsedMs       int64              `json:"elapsed_ms"`
	TotalScore      int64              `json:"total_score"`
	QuestionNumber  int                `json:"question_number"`
	TotalQuestions  int                `json:"total_questions"`
	Classification  Classification     `json:"classification,omitempty"`
	Answers         []AnswerRecord     `json:"answers,omitempty"`
	Leaderboard     []LeaderboardEntry `json:"leaderboard,omitempty"`
}
