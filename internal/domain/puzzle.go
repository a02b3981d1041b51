package domain

import "time"

// CatalogUnit is one piece of quiz content with a clue and an answer image
type CatalogUnit struct {
	UniqueID    string `json:"unique_id" yaml:"unique_id"`
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	ClueImage   string `json:"clue_image" yaml:"clue_image"`
	AnswerImage string `json:"answer_image" yaml:"answer_image"`
}

// Usable reports whether the unit can be served as a question
func (u CatalogUnit) Usable() bool {
	return u.UniqueID != "" && u.ClueImage != "" && u.AnswerImage != ""
}

// Question wraps a catalog unit with a day-scoped identity
type Question struct {
	ID          string `json:"id"`
	UniqueID    string `json:"unique_id"`
	TemplateID  string `json:"template_id"`
	Title       string `json:"title"`
	ClueImage   string `json:"clue_image"`
	AnswerImage string `json:"answer_image"`
}

// DailyPuzzle is the fixed question set for one calendar date
type DailyPuzzle struct {
	Date                  string     `json:"date"`
	CreatedAt             time.Time  `json:"created_at"`
	ReusedDueToExhaustion bool       `json:"reused_due_to_exhaustion"`
	Questions             []Question `json:"questions"`
}

// Summary strips question content so the puzzle can be shown before play
func (p *DailyPuzzle) Summary() PuzzleSummary {
	return PuzzleSummary{
		Date:                  p.Date,
		CreatedAt:             p.CreatedAt,
		ReusedDueToExhaustion: p.ReusedDueToExhaustion,
		QuestionCount:         len(p.Questions),
	}
}

// PuzzleSummary is the public view of a daily puzzle
type PuzzleSummary struct {
	Date                  string    `json:"date"`
	CreatedAt             time.Time `json:"created_at"`
	ReusedDueToExhaustion bool      `json:"reused_due_to_exhaustion"`
	QuestionCount         int       `json:"question_count"`
}
