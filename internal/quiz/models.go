package quiz

import (
	"github.com/quizpulse/quizpulse-backend/internal/scoring"
)

// Quiz is the authored aggregate: metadata, the question list and the
// scoring configuration used for every attempt against it.
type Quiz struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	Subject      string             `json:"subject,omitempty"`
	Chapter      string             `json:"chapter,omitempty"`
	TimeLimitSec int                `json:"time_limit_sec"`
	Questions    []scoring.Question `json:"questions"`
	Scoring      scoring.Config     `json:"scoring"`
	CreatedBy    string             `json:"created_by,omitempty"`
	CreatedAt    int64              `json:"created_at,omitempty"`
}

// Summary is the list-view projection of a quiz.
type Summary struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Subject       string `json:"subject,omitempty"`
	Chapter       string `json:"chapter,omitempty"`
	QuestionCount int    `json:"question_count"`
	TimeLimitSec  int    `json:"time_limit_sec"`
	CreatedAt     int64  `json:"created_at,omitempty"`
}

// HideAnswers strips the answer key and explanations in place, for serving
// a quiz to a student about to take it. CorrectIndex becomes -1 so a zero
// index is not leaked as a default.
func (q *Quiz) HideAnswers() {
	for i := range q.Questions {
		q.Questions[i].CorrectIndex = -1
		q.Questions[i].Explanation = ""
	}
}
