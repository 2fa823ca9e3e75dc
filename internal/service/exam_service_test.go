package service

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/gargallo/neolingus-backend/internal/model"
	"github.com/google/uuid"
)

func TestBuildPayloadStripsCorrectAnswers(t *testing.T) {
	exam := &model.Exam{
		ID:              uuid.New(),
		Title:           "Valencià C1",
		Language:        "valencian",
		Level:           "C1",
		DurationMinutes: 90,
	}
	m := &model.ExamModel{
		ExamID:          exam.ID,
		Title:           exam.Title,
		DurationMinutes: exam.DurationMinutes,
		Sections: []model.Section{
			{
				ID:   uuid.New(),
				Name: "Comprensió lectora",
				Parts: []model.Part{
					{
						ID:   uuid.New(),
						Name: "Part 1",
						Questions: []model.Question{
							{
								ID:     uuid.New(),
								Number: 1,
								Type:   model.QuestionTypeMultipleChoice,
								Text:   "Tria la forma correcta",
								Options: []model.Option{
									{Value: "A", Label: "haguera"},
									{Value: "B", Label: "haguere"},
								},
								CorrectAnswer: "A",
								Points:        2,
							},
							{
								ID:            uuid.New(),
								Number:        2,
								Type:          model.QuestionTypeTextInput,
								Text:          "Riu de València?",
								CorrectAnswer: "Túria",
								Points:        1,
							},
						},
					},
				},
			},
			{
				ID:   uuid.New(),
				Name: "Expressió escrita",
				Parts: []model.Part{
					{
						ID:   uuid.New(),
						Name: "Tasca 1",
						Questions: []model.Question{
							{
								ID:        uuid.New(),
								Number:    3,
								Type:      model.QuestionTypeEssay,
								Text:      "Escriu una carta formal",
								Points:    10,
								WordLimit: 250,
							},
						},
					},
				},
			},
		},
	}

	payload := buildPayload(exam, m)

	if payload.ExamID != exam.ID {
		t.Errorf("exam id = %s, want %s", payload.ExamID, exam.ID)
	}
	if payload.Language != "valencian" || payload.Level != "C1" {
		t.Errorf("language/level = %s/%s, want valencian/C1", payload.Language, payload.Level)
	}
	if len(payload.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(payload.Sections))
	}
	if got := len(payload.Sections[0].Parts[0].Questions); got != 2 {
		t.Fatalf("section 0 questions = %d, want 2", got)
	}

	// Question order, numbers and metadata survive the stripping.
	q1 := payload.Sections[0].Parts[0].Questions[0]
	if q1.Number != 1 || q1.Type != model.QuestionTypeMultipleChoice || len(q1.Options) != 2 {
		t.Errorf("unexpected first question: %+v", q1)
	}
	essay := payload.Sections[1].Parts[0].Questions[0]
	if essay.WordLimit != 250 || essay.Points != 10 {
		t.Errorf("essay word_limit/points = %d/%d, want 250/10", essay.WordLimit, essay.Points)
	}

	// The serialized form must never leak an answer key.
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if strings.Contains(string(raw), "correct_answer") {
		t.Error("payload JSON leaks correct_answer")
	}
	if strings.Contains(string(raw), "Túria") {
		t.Error("payload JSON leaks an answer value")
	}
}
