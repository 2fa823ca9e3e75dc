package model

import (
	"github.com/google/uuid"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeTextInput      QuestionType = "text_input"
	QuestionTypeEssay          QuestionType = "essay"
)

// Option is a single selectable choice of a multiple_choice question.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Question is an immutable question definition. CorrectAnswer is required
// for multiple_choice and text_input, empty for essay. WordLimit applies
// to essay questions only (0 = no limit).
type Question struct {
	ID            uuid.UUID    `json:"id"`
	Number        int          `json:"number"`
	Type          QuestionType `json:"type"`
	Text          string       `json:"text"`
	Options       []Option     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer,omitempty"`
	Points        int          `json:"points"`
	WordLimit     int          `json:"word_limit,omitempty"`
}

// Part groups questions inside a section. Purely organizational.
type Part struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	DurationMinutes int        `json:"duration_minutes,omitempty"`
	Questions       []Question `json:"questions"`
}

// Section is a named grouping of parts with a duration hint. Sections
// drive result aggregation and navigation, never scoring rules.
type Section struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	Parts           []Part    `json:"parts"`
}

// ExamModel is the full question model of a published exam, including
// correct answers. It is read-only and safely shared across sessions.
// Learner-facing payloads are derived from it with answers stripped.
type ExamModel struct {
	ExamID          uuid.UUID `json:"exam_id"`
	Title           string    `json:"title"`
	DurationMinutes int       `json:"duration_minutes"`
	Sections        []Section `json:"sections"`
}

// TotalQuestions counts questions across all sections and parts.
func (m *ExamModel) TotalQuestions() int {
	n := 0
	for i := range m.Sections {
		for j := range m.Sections[i].Parts {
			n += len(m.Sections[i].Parts[j].Questions)
		}
	}
	return n
}

// MaxScore sums the point values of every question in the model.
func (m *ExamModel) MaxScore() int {
	total := 0
	for i := range m.Sections {
		for j := range m.Sections[i].Parts {
			for k := range m.Sections[i].Parts[j].Questions {
				total += m.Sections[i].Parts[j].Questions[k].Points
			}
		}
	}
	return total
}
