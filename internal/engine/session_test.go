package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gargallo/neolingus-backend/internal/model"
	"github.com/google/uuid"
)

func newTestController(t *testing.T, opts ...Option) (*Controller, uuid.UUID, uuid.UUID) {
	t.Helper()
	m, mcID, textID := twoQuestionModel()
	base := []Option{WithClock(newFakeClock())}
	c := NewController(uuid.New(), m, append(base, opts...)...)
	return c, mcID, textID
}

func TestStartOnlyFromNotStarted(t *testing.T) {
	c, _, _ := newTestController(t)

	if err := c.Start(60); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var ise *InvalidStateError
	if err := c.Start(60); !errors.As(err, &ise) {
		t.Fatalf("second Start: got %v, want InvalidStateError", err)
	}
	if c.Status() != model.SessionStatusInProgress {
		t.Errorf("status = %s, want IN_PROGRESS", c.Status())
	}
}

func TestCountdownFinishesAtZero(t *testing.T) {
	c, _, _ := newTestController(t)
	if err := c.Start(180); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// 181 ticks: the 180th completes the session, the 181st is a no-op.
	for i := 0; i < 181; i++ {
		c.tick()
	}

	if got := c.Remaining(); got != 0 {
		t.Errorf("remaining = %d, want 0 (never negative)", got)
	}
	if c.Status() != model.SessionStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", c.Status())
	}
	if c.Result() == nil {
		t.Error("timeout completion must produce a Result")
	}
}

func TestRemainingWithinBounds(t *testing.T) {
	c, _, _ := newTestController(t)
	if err := c.Start(5); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 20; i++ {
		if r := c.Remaining(); r < 0 || r > 5 {
			t.Fatalf("remaining = %d out of [0, 5]", r)
		}
		c.tick()
	}
}

func TestFinishIdempotent(t *testing.T) {
	c, mcID, _ := newTestController(t)
	if err := c.Start(60); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.SetAnswer(mcID, "B"); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}

	first, err := c.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	second, err := c.Finish()
	if err != nil {
		t.Fatalf("second Finish: %v", err)
	}
	if first != second {
		t.Error("second Finish must return the identical Result, not a recomputed one")
	}
}

func TestTimeoutAndManualFinishRace(t *testing.T) {
	c, _, _ := newTestController(t)
	if err := c.Start(1); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]*model.Result, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		c.tick() // Drives remaining to 0 → timeout finish.
		results[0] = c.Result()
	}()
	go func() {
		defer wg.Done()
		res, err := c.Finish()
		if err != nil {
			t.Errorf("manual Finish: %v", err)
		}
		results[1] = res
	}()
	wg.Wait()

	if results[0] == nil || results[1] == nil {
		t.Fatal("both paths must observe a Result")
	}
	if results[0] != results[1] {
		t.Error("timeout and manual finish must converge on one Result")
	}
}

func TestFinishBeforeStart(t *testing.T) {
	c, _, _ := newTestController(t)
	var ise *InvalidStateError
	if _, err := c.Finish(); !errors.As(err, &ise) {
		t.Fatalf("Finish before Start: got %v, want InvalidStateError", err)
	}
}

func TestPauseResumeCycle(t *testing.T) {
	c, mcID, _ := newTestController(t)
	if err := c.Start(60); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := c.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	var ise *InvalidStateError
	if err := c.SetAnswer(mcID, "B"); !errors.As(err, &ise) {
		t.Errorf("SetAnswer while paused: got %v, want InvalidStateError", err)
	}
	if err := c.Pause(); !errors.As(err, &ise) {
		t.Errorf("double Pause: got %v, want InvalidStateError", err)
	}

	// Ticks while paused must not move the clock.
	before := c.Remaining()
	c.tick()
	if c.Remaining() != before {
		t.Error("tick while paused must be a no-op")
	}

	if err := c.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if err := c.Resume(); !errors.As(err, &ise) {
		t.Errorf("Resume while running: got %v, want InvalidStateError", err)
	}
	if err := c.SetAnswer(mcID, "B"); err != nil {
		t.Errorf("SetAnswer after resume: %v", err)
	}
}

func TestFinishFromPaused(t *testing.T) {
	c, _, _ := newTestController(t)
	if err := c.Start(60); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if _, err := c.Finish(); err != nil {
		t.Fatalf("Finish from paused: %v", err)
	}
	if c.Status() != model.SessionStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", c.Status())
	}
}

func TestAnswersFrozenAfterCompletion(t *testing.T) {
	c, mcID, _ := newTestController(t)
	if err := c.Start(60); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := c.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	var ise *InvalidStateError
	if err := c.SetAnswer(mcID, "A"); !errors.As(err, &ise) {
		t.Fatalf("SetAnswer after completion: got %v, want InvalidStateError", err)
	}
}

func TestHydrateSeedsWithoutDispatch(t *testing.T) {
	saver := newFakeSaver()
	m, mcID, textID := twoQuestionModel()
	c := NewController(uuid.New(), m, WithClock(newFakeClock()), WithSaver(saver))

	if err := c.Hydrate(map[uuid.UUID]string{mcID: "B", textID: "valencia"}); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if err := c.Start(60); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var ise *InvalidStateError
	if err := c.Hydrate(nil); !errors.As(err, &ise) {
		t.Errorf("Hydrate after Start: got %v, want InvalidStateError", err)
	}

	res, err := c.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if res.TotalScore != 3 {
		t.Errorf("TotalScore = %d, want 3 (hydrated answers must grade)", res.TotalScore)
	}
	if saver.callCount() != 0 {
		t.Errorf("Hydrate dispatched %d autosaves, want 0", saver.callCount())
	}
}

func TestResultSinkReceivesResult(t *testing.T) {
	sink := newFakeSink()
	m, mcID, _ := twoQuestionModel()
	c := NewController(uuid.New(), m, WithClock(newFakeClock()), WithResultSink(sink))

	if err := c.Start(60); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.SetAnswer(mcID, "B"); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}

	want, err := c.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	select {
	case got := <-sink.ch:
		if got != want {
			t.Error("sink must receive the session's Result")
		}
	case <-time.After(time.Second):
		t.Fatal("sink never received the Result")
	}
}

func TestFinishDoesNotWaitForInflightSaves(t *testing.T) {
	saver := newFakeSaver()
	saver.block = make(chan struct{}) // Saves hang until released.
	defer close(saver.block)

	m, mcID, _ := twoQuestionModel()
	c := NewController(uuid.New(), m, WithClock(newFakeClock()), WithSaver(saver))
	if err := c.Start(60); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.SetAnswer(mcID, "B"); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}

	done := make(chan struct{})
	go func() {
		if _, err := c.Finish(); err != nil {
			t.Errorf("Finish: %v", err)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Finish blocked on an in-flight autosave")
	}

	// Grading read the in-memory value regardless of persistence state.
	if got := c.Result().TotalScore; got != 2 {
		t.Errorf("TotalScore = %d, want 2", got)
	}
}

func TestTimeSpentTracksTicks(t *testing.T) {
	c, _, _ := newTestController(t)
	if err := c.Start(120); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 45; i++ {
		c.tick()
	}
	res, err := c.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if res.TimeSpentSeconds != 45 {
		t.Errorf("TimeSpentSeconds = %d, want 45", res.TimeSpentSeconds)
	}
}
