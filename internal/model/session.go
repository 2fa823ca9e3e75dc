package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates the states of an exam session state machine.
// Transitions: NOT_STARTED → IN_PROGRESS ⇄ PAUSED → COMPLETED.
// COMPLETED is terminal.
type SessionStatus string

const (
	SessionStatusNotStarted SessionStatus = "NOT_STARTED"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusPaused     SessionStatus = "PAUSED"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
)

// ExamSession is the persisted record of a learner's exam attempt.
type ExamSession struct {
	ID         uuid.UUID     `json:"id"`
	ExamID     uuid.UUID     `json:"exam_id"`
	LearnerID  int           `json:"learner_id"`
	Status     SessionStatus `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	FinalScore *int          `json:"final_score,omitempty"`
}

// SaveStatus tracks the autosave liveness of a single answer. It is
// UI feedback only and is never part of the persisted session.
type SaveStatus string

const (
	SaveStatusIdle   SaveStatus = "idle"
	SaveStatusSaving SaveStatus = "saving"
	SaveStatusSaved  SaveStatus = "saved"
	SaveStatusError  SaveStatus = "error"
)

// AnswerRecord is the autosave bookkeeping for one question.
type AnswerRecord struct {
	QuestionID uuid.UUID  `json:"question_id"`
	Value      string     `json:"value"`
	Status     SaveStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
}

// SessionSnapshot is the live view of a session handed to the API:
// remaining time, current position and the in-memory answers.
type SessionSnapshot struct {
	SessionID        uuid.UUID            `json:"session_id"`
	ExamID           uuid.UUID            `json:"exam_id"`
	Status           SessionStatus        `json:"status"`
	RemainingSeconds int                  `json:"remaining_seconds"`
	CurrentQuestion  int                  `json:"current_question"`
	CurrentSectionID uuid.UUID            `json:"current_section_id"`
	Answers          map[uuid.UUID]string `json:"answers"`
	SaveStates       []AnswerRecord       `json:"save_states,omitempty"`
}
