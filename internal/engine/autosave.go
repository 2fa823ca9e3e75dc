package engine

import (
	"context"
	"sync"

	"github.com/gargallo/neolingus-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Saver is the external persistence collaborator invoked for each
// answer mutation. Implementations must tolerate calls after the
// session has completed; the engine never cancels an in-flight save.
type Saver interface {
	Save(ctx context.Context, sessionID, questionID uuid.UUID, value string) error
}

// ResultSink receives the computed Result exactly once when a session
// completes. The engine does not retry a failed handoff.
type ResultSink interface {
	Publish(ctx context.Context, sessionID uuid.UUID, result *model.Result) error
}

// Dispatcher asynchronously persists answer mutations through a Saver
// and exposes a per-question AnswerRecord. Dispatch never blocks the
// caller. A later dispatch for the same question supersedes the visible
// status of any earlier in-flight save; the earlier network call is
// left to complete or fail on its own.
type Dispatcher struct {
	mu      sync.Mutex
	saver   Saver
	log     zerolog.Logger
	records map[uuid.UUID]*model.AnswerRecord
	seqs    map[uuid.UUID]uint64
}

// NewDispatcher creates a Dispatcher. A nil saver turns Dispatch into a
// no-op that reports every record as saved (used by review mode and
// tests that do not care about persistence).
func NewDispatcher(saver Saver, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		saver:   saver,
		log:     log.With().Str("component", "autosave_dispatcher").Logger(),
		records: make(map[uuid.UUID]*model.AnswerRecord),
		seqs:    make(map[uuid.UUID]uint64),
	}
}

// Dispatch fires an asynchronous save for one answer. The record status
// is "saving" while in flight, then "saved" or "error".
func (d *Dispatcher) Dispatch(sessionID, questionID uuid.UUID, value string) {
	d.mu.Lock()
	d.seqs[questionID]++
	seq := d.seqs[questionID]
	d.records[questionID] = &model.AnswerRecord{
		QuestionID: questionID,
		Value:      value,
		Status:     model.SaveStatusSaving,
	}
	d.mu.Unlock()

	if d.saver == nil {
		d.complete(questionID, seq, nil)
		return
	}

	go func() {
		// Detached from the session lifecycle on purpose: a save may
		// still be in flight after the session completes.
		err := d.saver.Save(context.Background(), sessionID, questionID, value)
		if err != nil {
			perr := &PersistenceError{QuestionID: questionID, Err: err}
			d.log.Warn().Err(perr).Str("question_id", questionID.String()).Msg("Autosave failed")
		}
		d.complete(questionID, seq, err)
	}()
}

// complete records the outcome of a save. Only the latest dispatch for
// a question may set the visible status.
func (d *Dispatcher) complete(questionID uuid.UUID, seq uint64, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.seqs[questionID] != seq {
		return // Superseded by a later dispatch.
	}
	rec := d.records[questionID]
	if rec == nil {
		return
	}
	if err != nil {
		rec.Status = model.SaveStatusError
		rec.Error = err.Error()
		return
	}
	rec.Status = model.SaveStatusSaved
	rec.Error = ""
}

// Record returns a copy of the AnswerRecord for one question. The
// boolean is false if the question was never dispatched.
func (d *Dispatcher) Record(questionID uuid.UUID) (model.AnswerRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.records[questionID]
	if !ok {
		return model.AnswerRecord{}, false
	}
	return *rec, true
}

// Records returns copies of all answer records.
func (d *Dispatcher) Records() []model.AnswerRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]model.AnswerRecord, 0, len(d.records))
	for _, rec := range d.records {
		out = append(out, *rec)
	}
	return out
}
