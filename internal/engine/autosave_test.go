package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/gargallo/neolingus-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestDispatchMarksSaved(t *testing.T) {
	saver := newFakeSaver()
	d := NewDispatcher(saver, zerolog.Nop())
	qID := uuid.New()

	d.Dispatch(uuid.New(), qID, "hola")

	ok := waitFor(func() bool {
		rec, found := d.Record(qID)
		return found && rec.Status == model.SaveStatusSaved
	}, time.Second)
	if !ok {
		rec, _ := d.Record(qID)
		t.Fatalf("record status = %s, want saved", rec.Status)
	}
	if saver.callCount() != 1 {
		t.Errorf("saver called %d times, want 1", saver.callCount())
	}
}

func TestDispatchMarksError(t *testing.T) {
	saver := newFakeSaver()
	saver.err = errors.New("redis: connection refused")
	d := NewDispatcher(saver, zerolog.Nop())
	qID := uuid.New()

	d.Dispatch(uuid.New(), qID, "hola")

	ok := waitFor(func() bool {
		rec, found := d.Record(qID)
		return found && rec.Status == model.SaveStatusError
	}, time.Second)
	if !ok {
		t.Fatal("record never reached error status")
	}
	rec, _ := d.Record(qID)
	if rec.Error == "" {
		t.Error("error record must carry the failure message")
	}
}

func TestDispatchNeverBlocks(t *testing.T) {
	saver := newFakeSaver()
	saver.block = make(chan struct{}) // Saves hang.
	defer close(saver.block)

	d := NewDispatcher(saver, zerolog.Nop())
	qID := uuid.New()

	done := make(chan struct{})
	go func() {
		d.Dispatch(uuid.New(), qID, "hola")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on the saver")
	}

	rec, found := d.Record(qID)
	if !found || rec.Status != model.SaveStatusSaving {
		t.Errorf("in-flight record status = %s, want saving", rec.Status)
	}
}

func TestLaterDispatchSupersedesEarlier(t *testing.T) {
	saver := newFakeSaver()
	saver.block = make(chan struct{})
	d := NewDispatcher(saver, zerolog.Nop())
	sessionID := uuid.New()
	qID := uuid.New()

	// First save hangs in flight.
	d.Dispatch(sessionID, qID, "first")

	// Second save for the same question: completes immediately once
	// released, and owns the visible status from now on.
	d.Dispatch(sessionID, qID, "second")

	// Release both in-flight saves.
	close(saver.block)

	ok := waitFor(func() bool { return saver.callCount() == 2 }, time.Second)
	if !ok {
		t.Fatalf("saver completed %d calls, want 2", saver.callCount())
	}

	ok = waitFor(func() bool {
		rec, found := d.Record(qID)
		return found && rec.Status == model.SaveStatusSaved && rec.Value == "second"
	}, time.Second)
	if !ok {
		rec, _ := d.Record(qID)
		t.Fatalf("visible record = %+v, want value %q with status saved", rec, "second")
	}
}

func TestStaleCompletionCannotOverwrite(t *testing.T) {
	saver := newFakeSaver()
	saver.block = make(chan struct{})
	saver.err = errors.New("slow write failed")
	d := NewDispatcher(saver, zerolog.Nop())
	sessionID := uuid.New()
	qID := uuid.New()

	// First dispatch will eventually fail; before it completes, a
	// second dispatch with a nil-saver path records success.
	d.Dispatch(sessionID, qID, "stale")

	d.mu.Lock()
	d.seqs[qID]++ // Simulate a newer dispatch owning the status.
	seq := d.seqs[qID]
	d.records[qID] = &model.AnswerRecord{QuestionID: qID, Value: "fresh", Status: model.SaveStatusSaving}
	d.mu.Unlock()
	d.complete(qID, seq, nil)

	close(saver.block) // Let the stale save fail now.
	waitFor(func() bool { return saver.callCount() == 1 }, time.Second)

	rec, _ := d.Record(qID)
	if rec.Status != model.SaveStatusSaved || rec.Value != "fresh" {
		t.Errorf("stale completion overwrote the record: %+v", rec)
	}
}

func TestNilSaverReportsSaved(t *testing.T) {
	d := NewDispatcher(nil, zerolog.Nop())
	qID := uuid.New()

	d.Dispatch(uuid.New(), qID, "hola")

	rec, found := d.Record(qID)
	if !found || rec.Status != model.SaveStatusSaved {
		t.Errorf("nil-saver record status = %s, want saved", rec.Status)
	}
}

func TestSetAnswerSurfacesSaveState(t *testing.T) {
	saver := newFakeSaver()
	m, mcID, _ := twoQuestionModel()
	c := NewController(uuid.New(), m, WithClock(newFakeClock()), WithSaver(saver))

	if err := c.Start(60); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.SetAnswer(mcID, "B"); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}

	ok := waitFor(func() bool {
		rec, found := c.SaveState(mcID)
		return found && rec.Status == model.SaveStatusSaved
	}, time.Second)
	if !ok {
		t.Fatal("save state never reached saved")
	}

	states := c.SaveStates()
	if len(states) != 1 {
		t.Errorf("got %d save states, want 1", len(states))
	}
}
