package quiz

import (
	"time"

	"github.com/mind-engage/mindengage-learner/internal/training"
)

// Result is computed once per submitted attempt.
type Result struct {
	Score               int               `json:"score"` // 0-100, rounded
	CorrectAnswersCount int               `json:"correctAnswersCount"`
	TotalQuestions      int               `json:"totalQuestions"`
	TotalPoints         int               `json:"totalPoints"`
	EarnedPoints        int               `json:"earnedPoints"`
	PassingScore        int               `json:"passingScore"`
	Passed              bool              `json:"passed"`
	AutoSubmitted       bool              `json:"autoSubmitted,omitempty"`
	SubmittedAt         time.Time         `json:"submittedAt"`
	Outcomes            []QuestionOutcome `json:"outcomes"`
}

type QuestionOutcome struct {
	QuestionID    string          `json:"questionId"`
	Answer        training.Answer `json:"answer"`
	Answered      bool            `json:"answered"`
	Correct       bool            `json:"correct"`
	EarnedPoints  int             `json:"earnedPoints"`
	Points        int             `json:"points"`
	CorrectAnswer training.Answer `json:"correctAnswer"`
}
