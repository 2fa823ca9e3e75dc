package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the lifecycle states of an exam definition.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// Exam is the administrative exam entity. The question hierarchy lives
// in the model document (see ExamModel) cached at publish time.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Language        string     `json:"language"`
	Level           string     `json:"level"`
	AuthorID        int        `json:"author_id"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          ExamStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateExamRequest is the payload for creating a draft exam together
// with its full section/part/question hierarchy.
type CreateExamRequest struct {
	Title           string                 `json:"title" binding:"required,min=3,max=255"`
	Language        string                 `json:"language" binding:"required,min=2,max=32"`
	Level           string                 `json:"level" binding:"required,min=1,max=16"`
	DurationMinutes int                    `json:"duration_minutes" binding:"required,min=1,max=480"`
	Sections        []CreateSectionRequest `json:"sections" binding:"required,min=1,dive"`
}

// CreateSectionRequest describes one section of a new exam.
type CreateSectionRequest struct {
	Name            string              `json:"name" binding:"required,min=1,max=255"`
	DurationMinutes int                 `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	Parts           []CreatePartRequest `json:"parts" binding:"required,min=1,dive"`
}

// CreatePartRequest describes one part of a section.
type CreatePartRequest struct {
	Name            string                  `json:"name" binding:"required,min=1,max=255"`
	DurationMinutes int                     `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	Questions       []CreateQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// CreateQuestionRequest describes one question of a part.
type CreateQuestionRequest struct {
	Type          string   `json:"type" binding:"required,oneof=multiple_choice text_input essay"`
	Text          string   `json:"text" binding:"required,min=1,max=4000"`
	Options       []Option `json:"options" binding:"omitempty,dive"`
	CorrectAnswer string   `json:"correct_answer" binding:"omitempty,max=2000"`
	Points        int      `json:"points" binding:"required,min=1,max=100"`
	WordLimit     int      `json:"word_limit" binding:"omitempty,min=1,max=5000"`
}

// ExamPayload is the Redis-cached payload sent to learners. It mirrors
// ExamModel with correct answers stripped.
type ExamPayload struct {
	ExamID          uuid.UUID        `json:"exam_id"`
	Title           string           `json:"title"`
	Language        string           `json:"language"`
	Level           string           `json:"level"`
	DurationMinutes int              `json:"duration_minutes"`
	Sections        []PayloadSection `json:"sections"`
}

// PayloadSection is a learner-safe section.
type PayloadSection struct {
	ID              uuid.UUID     `json:"id"`
	Name            string        `json:"name"`
	DurationMinutes int           `json:"duration_minutes,omitempty"`
	Parts           []PayloadPart `json:"parts"`
}

// PayloadPart is a learner-safe part.
type PayloadPart struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	Questions []PayloadQuestion `json:"questions"`
}

// PayloadQuestion is a question without its correct answer.
type PayloadQuestion struct {
	ID        uuid.UUID    `json:"id"`
	Number    int          `json:"number"`
	Type      QuestionType `json:"type"`
	Text      string       `json:"text"`
	Options   []Option     `json:"options,omitempty"`
	Points    int          `json:"points"`
	WordLimit int          `json:"word_limit,omitempty"`
}
