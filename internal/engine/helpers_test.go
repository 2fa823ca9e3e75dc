package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gargallo/neolingus-backend/internal/model"
	"github.com/google/uuid"
)

// fakeClock is a manual time source. Its tickers never fire; tests
// drive the countdown by calling tick() directly.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fakeClock) NewTicker(time.Duration) Ticker {
	return &fakeTicker{ch: make(chan time.Time)}
}

type fakeTicker struct {
	ch chan time.Time
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               {}

// fakeSaver records Save calls. If block is non-nil, a call waits on it
// before returning err.
type fakeSaver struct {
	mu    sync.Mutex
	calls []savedAnswer
	err   error
	block chan struct{}
	done  chan struct{} // Signaled once per completed Save.
}

type savedAnswer struct {
	sessionID  uuid.UUID
	questionID uuid.UUID
	value      string
}

func newFakeSaver() *fakeSaver {
	return &fakeSaver{done: make(chan struct{}, 16)}
}

func (s *fakeSaver) Save(_ context.Context, sessionID, questionID uuid.UUID, value string) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	s.calls = append(s.calls, savedAnswer{sessionID, questionID, value})
	s.mu.Unlock()
	s.done <- struct{}{}
	return s.err
}

func (s *fakeSaver) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// fakeSink captures published Results.
type fakeSink struct {
	ch  chan *model.Result
	err error
}

func newFakeSink() *fakeSink {
	return &fakeSink{ch: make(chan *model.Result, 1)}
}

func (s *fakeSink) Publish(_ context.Context, _ uuid.UUID, result *model.Result) error {
	s.ch <- result
	return s.err
}

// essayText builds an answer with exactly n whitespace-delimited words.
func essayText(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = "paraula"
	}
	return strings.Join(words, " ")
}

// twoQuestionModel builds a minimal paper: one multiple_choice
// worth 2 points (correct "B") and one text_input worth 1 point
// (correct "valencia"), in a single section and part.
func twoQuestionModel() (*model.ExamModel, uuid.UUID, uuid.UUID) {
	mcID := uuid.New()
	textID := uuid.New()
	m := &model.ExamModel{
		ExamID:          uuid.New(),
		Title:           "Valencià B2 — Prova escrita",
		DurationMinutes: 60,
		Sections: []model.Section{
			{
				ID:   uuid.New(),
				Name: "Comprensió",
				Parts: []model.Part{
					{
						ID:   uuid.New(),
						Name: "Part 1",
						Questions: []model.Question{
							{
								ID:     mcID,
								Number: 1,
								Type:   model.QuestionTypeMultipleChoice,
								Text:   "Tria la resposta correcta",
								Options: []model.Option{
									{Value: "A", Label: "Primera"},
									{Value: "B", Label: "Segona"},
									{Value: "C", Label: "Tercera"},
								},
								CorrectAnswer: "B",
								Points:        2,
							},
							{
								ID:            textID,
								Number:        2,
								Type:          model.QuestionTypeTextInput,
								Text:          "Capital de la Comunitat Valenciana?",
								CorrectAnswer: "valencia",
								Points:        1,
							},
						},
					},
				},
			},
		},
	}
	return m, mcID, textID
}

// essayOnlyModel builds a model with a single essay question.
func essayOnlyModel(points, wordLimit int) (*model.ExamModel, uuid.UUID) {
	qID := uuid.New()
	m := &model.ExamModel{
		ExamID:          uuid.New(),
		Title:           "Expressió escrita",
		DurationMinutes: 45,
		Sections: []model.Section{
			{
				ID:   uuid.New(),
				Name: "Redacció",
				Parts: []model.Part{
					{
						ID:   uuid.New(),
						Name: "Tasca 1",
						Questions: []model.Question{
							{
								ID:        qID,
								Number:    1,
								Type:      model.QuestionTypeEssay,
								Text:      "Escriu sobre la teua ciutat",
								Points:    points,
								WordLimit: wordLimit,
							},
						},
					},
				},
			},
		},
	}
	return m, qID
}

// waitFor polls cond until it returns true or the deadline expires.
func waitFor(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
