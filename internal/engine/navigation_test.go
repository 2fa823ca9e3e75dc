package engine

import (
	"errors"
	"testing"

	"github.com/gargallo/neolingus-backend/internal/model"
	"github.com/google/uuid"
)

// multiSectionModel builds two sections with two parts each, five
// questions total, to exercise document-order flattening.
func multiSectionModel() *model.ExamModel {
	q := func(n int) model.Question {
		return model.Question{
			ID:            uuid.New(),
			Number:        n,
			Type:          model.QuestionTypeMultipleChoice,
			CorrectAnswer: "A",
			Points:        1,
		}
	}
	return &model.ExamModel{
		ExamID:          uuid.New(),
		Title:           "Anglès C1",
		DurationMinutes: 90,
		Sections: []model.Section{
			{
				ID:   uuid.New(),
				Name: "Reading",
				Parts: []model.Part{
					{ID: uuid.New(), Name: "Part 1", Questions: []model.Question{q(1), q(2)}},
					{ID: uuid.New(), Name: "Part 2", Questions: []model.Question{q(3)}},
				},
			},
			{
				ID:   uuid.New(),
				Name: "Writing",
				Parts: []model.Part{
					{ID: uuid.New(), Name: "Part 1", Questions: []model.Question{q(4), q(5)}},
				},
			},
		},
	}
}

func TestFlattenDocumentOrder(t *testing.T) {
	m := multiSectionModel()
	idx := BuildNavigationIndex(m)

	if idx.Total() != 5 {
		t.Fatalf("Total = %d, want 5", idx.Total())
	}

	for want := 1; want <= 5; want++ {
		q, ok := idx.Current()
		if !ok {
			t.Fatalf("Current at position %d: no question", want-1)
		}
		if q.Number != want {
			t.Errorf("position %d holds question %d, want %d", want-1, q.Number, want)
		}
		idx.Next()
	}
}

func TestGoToOutOfRange(t *testing.T) {
	m := multiSectionModel()
	idx := BuildNavigationIndex(m)
	if err := idx.GoTo(2); err != nil {
		t.Fatalf("GoTo(2): %v", err)
	}

	var oor *OutOfRangeError
	if err := idx.GoTo(-1); !errors.As(err, &oor) {
		t.Errorf("GoTo(-1): got %v, want OutOfRangeError", err)
	}
	if err := idx.GoTo(idx.Total()); !errors.As(err, &oor) {
		t.Errorf("GoTo(total): got %v, want OutOfRangeError", err)
	}
	if idx.Position() != 2 {
		t.Errorf("position changed to %d after rejected GoTo, want 2", idx.Position())
	}
}

func TestNextPreviousBoundaries(t *testing.T) {
	m := multiSectionModel()
	idx := BuildNavigationIndex(m)

	if moved := idx.Previous(); moved {
		t.Error("Previous at first question must not move")
	}

	for i := 0; i < idx.Total()-1; i++ {
		if moved := idx.Next(); !moved {
			t.Fatalf("Next at position %d should move", i)
		}
	}
	if moved := idx.Next(); moved {
		t.Error("Next at last question must not move")
	}
	if idx.Position() != idx.Total()-1 {
		t.Errorf("position = %d, want %d", idx.Position(), idx.Total()-1)
	}
}

func TestCurrentSectionFollowsPosition(t *testing.T) {
	m := multiSectionModel()
	idx := BuildNavigationIndex(m)

	if got := idx.CurrentSectionID(); got != m.Sections[0].ID {
		t.Errorf("section at start = %s, want first section", got)
	}
	if err := idx.GoTo(3); err != nil {
		t.Fatalf("GoTo(3): %v", err)
	}
	if got := idx.CurrentSectionID(); got != m.Sections[1].ID {
		t.Errorf("section at position 3 = %s, want second section", got)
	}
}

func TestEmptyExam(t *testing.T) {
	idx := BuildNavigationIndex(&model.ExamModel{ExamID: uuid.New()})

	if _, ok := idx.Current(); ok {
		t.Error("Current on an empty exam must report no question")
	}
	if idx.CurrentSectionID() != uuid.Nil {
		t.Error("CurrentSectionID on an empty exam must be nil")
	}
	if moved := idx.Next(); moved {
		t.Error("Next on an empty exam must not move")
	}

	var oor *OutOfRangeError
	if err := idx.GoTo(0); !errors.As(err, &oor) {
		t.Errorf("GoTo(0) on empty exam: got %v, want OutOfRangeError", err)
	}
}

func TestControllerNavigationGating(t *testing.T) {
	m := multiSectionModel()
	c := NewController(uuid.New(), m, WithClock(newFakeClock()))

	var ise *InvalidStateError
	if err := c.GoTo(1); !errors.As(err, &ise) {
		t.Errorf("GoTo before start: got %v, want InvalidStateError", err)
	}

	if err := c.Start(60); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.GoTo(4); err != nil {
		t.Fatalf("GoTo in progress: %v", err)
	}

	if err := c.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if _, err := c.Next(); !errors.As(err, &ise) {
		t.Errorf("Next while paused: got %v, want InvalidStateError", err)
	}
	if err := c.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	if _, err := c.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	// Review mode: navigation stays open, answers stay frozen.
	if err := c.GoTo(0); err != nil {
		t.Errorf("GoTo in review mode: %v", err)
	}
	if moved, err := c.Previous(); err != nil || moved {
		t.Errorf("Previous at first question in review: moved=%v err=%v", moved, err)
	}
}
