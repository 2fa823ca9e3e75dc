package model

import (
	"time"

	"github.com/google/uuid"
)

// Grade labels applied to the overall percentage.
const (
	GradeExcellent = "Excellent"
	GradeVeryGood  = "Very Good"
	GradeGood      = "Good"
	GradePass      = "Pass"
	GradeFail      = "Fail"
)

// QuestionResult is the graded outcome of a single question.
type QuestionResult struct {
	QuestionID    uuid.UUID `json:"question_id"`
	Number        int       `json:"number"`
	UserAnswer    string    `json:"user_answer"`
	CorrectAnswer string    `json:"correct_answer,omitempty"`
	IsCorrect     bool      `json:"is_correct"`
	PointsEarned  int       `json:"points_earned"`
	MaxPoints     int       `json:"max_points"`
}

// SectionResult aggregates question results within one section.
type SectionResult struct {
	SectionID  uuid.UUID `json:"section_id"`
	Name       string    `json:"name"`
	Score      int       `json:"score"`
	MaxScore   int       `json:"max_score"`
	Percentage int       `json:"percentage"`
}

// Result is the finalized scoring record of a completed session.
// Produced exactly once per session and immutable thereafter.
type Result struct {
	SessionID        uuid.UUID        `json:"session_id"`
	TotalScore       int              `json:"total_score"`
	MaxScore         int              `json:"max_score"`
	Percentage       int              `json:"percentage"`
	Grade            string           `json:"grade"`
	Sections         []SectionResult  `json:"sections"`
	Questions        []QuestionResult `json:"questions"`
	TimeSpentSeconds int              `json:"time_spent_seconds"`
	CompletedAt      time.Time        `json:"completed_at"`
}
