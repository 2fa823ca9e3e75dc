package engine

import (
	"fmt"

	"github.com/gargallo/neolingus-backend/internal/model"
	"github.com/google/uuid"
)

// InvalidStateError reports an operation invoked from a session status
// that does not permit it. The session state is left untouched.
type InvalidStateError struct {
	Op     string
	Status model.SessionStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("engine: %s not allowed while session is %s", e.Op, e.Status)
}

// OutOfRangeError reports a navigation target outside [0, Total).
type OutOfRangeError struct {
	Index int
	Total int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("engine: question index %d out of range [0, %d)", e.Index, e.Total)
}

// PersistenceError reports a failed autosave or result-sink write. It is
// surfaced through AnswerRecord status only and never retried here.
type PersistenceError struct {
	QuestionID uuid.UUID
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("engine: persist answer %s: %v", e.QuestionID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// MalformedQuestionError reports a question missing data required by its
// declared type. Grading never fails on it; the question degrades to
// zero points earned while keeping its full weight in the max score.
type MalformedQuestionError struct {
	QuestionID uuid.UUID
	Reason     string
}

func (e *MalformedQuestionError) Error() string {
	return fmt.Sprintf("engine: malformed question %s: %s", e.QuestionID, e.Reason)
}
