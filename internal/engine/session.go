package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gargallo/neolingus-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Controller owns one exam session: its status, countdown timer,
// navigation position and answers. All mutation of session state runs
// under a single mutex, so a timer-driven finish (timeout) and a
// user-driven finish (manual submit) serialize; exactly one computes
// the Result and the other observes the already-completed state.
type Controller struct {
	mu sync.Mutex

	id   uuid.UUID
	exam *model.ExamModel

	nav        *NavigationIndex
	answers    *AnswerStore
	dispatcher *Dispatcher

	clock Clock
	saver Saver
	sink  ResultSink
	log   zerolog.Logger

	status    model.SessionStatus
	startedAt time.Time
	duration  int // Configured duration in seconds.
	remaining int // Countdown, never negative.
	result    *model.Result

	ticker   Ticker
	tickStop chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock injects a time source. Defaults to the runtime clock.
func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithSaver injects the autosave persistence collaborator.
func WithSaver(saver Saver) Option {
	return func(c *Controller) { c.saver = saver }
}

// WithResultSink injects the collaborator receiving the final Result.
func WithResultSink(sink ResultSink) Option {
	return func(c *Controller) { c.sink = sink }
}

// WithLogger injects the observability logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// NewController creates a session controller in NOT_STARTED state for
// the given exam model. The model is referenced, never copied.
func NewController(sessionID uuid.UUID, exam *model.ExamModel, opts ...Option) *Controller {
	c := &Controller{
		id:      sessionID,
		exam:    exam,
		nav:     BuildNavigationIndex(exam),
		answers: NewAnswerStore(),
		clock:   NewRealClock(),
		log:     zerolog.Nop(),
		status:  model.SessionStatusNotStarted,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("component", "session_controller").Str("session_id", sessionID.String()).Logger()
	c.dispatcher = NewDispatcher(c.saver, c.log)
	return c
}

// ID returns the session id.
func (c *Controller) ID() uuid.UUID { return c.id }

// Exam returns the read-only exam model backing this session.
func (c *Controller) Exam() *model.ExamModel { return c.exam }

// Start begins the session: sets the start timestamp, initializes the
// countdown to durationSeconds and schedules the 1 Hz tick. Valid only
// from NOT_STARTED.
func (c *Controller) Start(durationSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != model.SessionStatusNotStarted {
		return &InvalidStateError{Op: "start", Status: c.status}
	}
	if durationSeconds <= 0 {
		return errors.New("engine: duration must be positive")
	}

	c.startedAt = c.clock.Now()
	c.duration = durationSeconds
	c.remaining = durationSeconds
	c.status = model.SessionStatusInProgress
	c.scheduleTickLocked()

	c.log.Info().Int("duration_seconds", durationSeconds).Msg("Session started")
	return nil
}

// Hydrate seeds previously autosaved answers before Start. Used when a
// learner resumes an existing session from its persisted snapshot; the
// seeded answers do not trigger autosave dispatches.
func (c *Controller) Hydrate(answers map[uuid.UUID]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != model.SessionStatusNotStarted {
		return &InvalidStateError{Op: "hydrate", Status: c.status}
	}
	c.answers.Seed(answers)
	return nil
}

// Pause suspends the countdown: IN_PROGRESS → PAUSED. The scheduled
// tick is cancelled before any Resume can schedule a new one, so
// duplicate tickers for one session cannot exist.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != model.SessionStatusInProgress {
		return &InvalidStateError{Op: "pause", Status: c.status}
	}
	c.stopTickerLocked()
	c.status = model.SessionStatusPaused
	c.log.Debug().Int("remaining_seconds", c.remaining).Msg("Session paused")
	return nil
}

// Resume restarts the countdown: PAUSED → IN_PROGRESS.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != model.SessionStatusPaused {
		return &InvalidStateError{Op: "resume", Status: c.status}
	}
	c.status = model.SessionStatusInProgress
	c.scheduleTickLocked()
	c.log.Debug().Int("remaining_seconds", c.remaining).Msg("Session resumed")
	return nil
}

// Finish completes the session and computes the Result. Callable from
// IN_PROGRESS or PAUSED (manual submit) and invoked internally when the
// countdown reaches zero. Idempotent: once completed, every further
// call returns the existing Result without recomputing.
func (c *Controller) Finish() (*model.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finishLocked()
}

func (c *Controller) finishLocked() (*model.Result, error) {
	switch c.status {
	case model.SessionStatusCompleted:
		return c.result, nil
	case model.SessionStatusNotStarted:
		return nil, &InvalidStateError{Op: "finish", Status: c.status}
	}

	c.stopTickerLocked()
	c.answers.Freeze()

	completedAt := c.clock.Now()
	timeSpent := c.duration - c.remaining
	c.result = Aggregate(c.id, c.exam, c.answers.Snapshot(), timeSpent, completedAt, c.log)
	c.status = model.SessionStatusCompleted

	c.log.Info().
		Int("total_score", c.result.TotalScore).
		Int("max_score", c.result.MaxScore).
		Int("percentage", c.result.Percentage).
		Str("grade", c.result.Grade).
		Msg("Session completed")

	if c.sink != nil {
		// Best-effort handoff. Grading already holds the authoritative
		// Result; a failed sink write surfaces as "results delayed",
		// never as loss of the computed score.
		result := c.result
		go func() {
			if err := c.sink.Publish(context.Background(), c.id, result); err != nil {
				c.log.Error().Err(err).Msg("Result sink publish failed")
			}
		}()
	}

	return c.result, nil
}

// tick decrements the countdown by one second. When it reaches zero the
// session finishes exactly once instead of going negative; any further
// tick is a no-op against the completed state.
func (c *Controller) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != model.SessionStatusInProgress {
		return
	}
	c.remaining--
	if c.remaining <= 0 {
		c.remaining = 0
		if _, err := c.finishLocked(); err != nil {
			c.log.Error().Err(err).Msg("Timeout finish failed")
		}
	}
}

// SetAnswer records the learner's answer for a question: a synchronous
// in-memory write followed by a fire-and-forget autosave dispatch.
// Valid only while IN_PROGRESS.
func (c *Controller) SetAnswer(questionID uuid.UUID, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != model.SessionStatusInProgress {
		return &InvalidStateError{Op: "set answer", Status: c.status}
	}
	c.answers.Set(questionID, value)
	c.dispatcher.Dispatch(c.id, questionID, value)
	return nil
}

// Answer returns the stored answer for a question.
func (c *Controller) Answer(questionID uuid.UUID) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answers.Get(questionID)
}

// CurrentQuestion returns the question at the current navigation
// position; the boolean is false for an exam with no questions.
func (c *Controller) CurrentQuestion() (*model.Question, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nav.Current()
}

// GoTo moves the navigation position. Allowed while IN_PROGRESS and,
// for read-only review, after completion.
func (c *Controller) GoTo(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.navigableLocked("go to"); err != nil {
		return err
	}
	return c.nav.GoTo(index)
}

// Next advances one question; at the last question it is a no-op
// returning false.
func (c *Controller) Next() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.navigableLocked("next"); err != nil {
		return false, err
	}
	return c.nav.Next(), nil
}

// Previous steps back one question; at the first question it is a no-op
// returning false.
func (c *Controller) Previous() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.navigableLocked("previous"); err != nil {
		return false, err
	}
	return c.nav.Previous(), nil
}

func (c *Controller) navigableLocked(op string) error {
	if c.status != model.SessionStatusInProgress && c.status != model.SessionStatusCompleted {
		return &InvalidStateError{Op: op, Status: c.status}
	}
	return nil
}

// Status returns the current session status.
func (c *Controller) Status() model.SessionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Remaining returns the countdown in seconds.
func (c *Controller) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// StartedAt returns the start timestamp (zero before Start).
func (c *Controller) StartedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startedAt
}

// Result returns the computed Result, or nil before completion.
func (c *Controller) Result() *model.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// SaveStates returns the autosave records for UI feedback.
func (c *Controller) SaveStates() []model.AnswerRecord {
	return c.dispatcher.Records()
}

// SaveState returns the autosave record for one question.
func (c *Controller) SaveState(questionID uuid.UUID) (model.AnswerRecord, bool) {
	return c.dispatcher.Record(questionID)
}

// Snapshot captures the live session view handed to the API.
func (c *Controller) Snapshot() model.SessionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return model.SessionSnapshot{
		SessionID:        c.id,
		ExamID:           c.exam.ExamID,
		Status:           c.status,
		RemainingSeconds: c.remaining,
		CurrentQuestion:  c.nav.Position(),
		CurrentSectionID: c.nav.CurrentSectionID(),
		Answers:          c.answers.Snapshot(),
		SaveStates:       c.dispatcher.Records(),
	}
}

// scheduleTickLocked starts the 1 Hz countdown goroutine. Callers hold
// c.mu and must have stopped any previous ticker first.
func (c *Controller) scheduleTickLocked() {
	ticker := c.clock.NewTicker(time.Second)
	stop := make(chan struct{})
	c.ticker = ticker
	c.tickStop = stop

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-ticker.C():
				c.tick()
			}
		}
	}()
}

// stopTickerLocked cancels the scheduled tick. Safe to call when no
// ticker is running.
func (c *Controller) stopTickerLocked() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	close(c.tickStop)
	c.ticker = nil
	c.tickStop = nil
}
