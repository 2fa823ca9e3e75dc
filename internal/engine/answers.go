package engine

import (
	"github.com/google/uuid"
)

// AnswerStore holds the learner's in-progress answers keyed by question
// id. Writes are synchronous and in-memory; this map is the single
// source of truth for grading regardless of autosave outcomes.
//
// AnswerStore is not safe for concurrent use on its own; the owning
// session controller serializes access.
type AnswerStore struct {
	values map[uuid.UUID]string
	frozen bool
}

// NewAnswerStore returns an empty store.
func NewAnswerStore() *AnswerStore {
	return &AnswerStore{values: make(map[uuid.UUID]string)}
}

// Set overwrites the answer for a question. Returns false once the
// store is frozen (session completed).
func (s *AnswerStore) Set(questionID uuid.UUID, value string) bool {
	if s.frozen {
		return false
	}
	s.values[questionID] = value
	return true
}

// Get returns the stored answer and whether one exists.
func (s *AnswerStore) Get(questionID uuid.UUID) (string, bool) {
	v, ok := s.values[questionID]
	return v, ok
}

// Len returns the number of answered questions.
func (s *AnswerStore) Len() int { return len(s.values) }

// Snapshot returns a copy of the answer map.
func (s *AnswerStore) Snapshot() map[uuid.UUID]string {
	out := make(map[uuid.UUID]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Seed bulk-loads answers without dispatching autosaves. Used when
// resuming a session from a persisted snapshot.
func (s *AnswerStore) Seed(answers map[uuid.UUID]string) {
	if s.frozen {
		return
	}
	for k, v := range answers {
		s.values[k] = v
	}
}

// Freeze makes the store read-only. Called exactly once on completion.
func (s *AnswerStore) Freeze() { s.frozen = true }

// Frozen reports whether the store has been frozen.
func (s *AnswerStore) Frozen() bool { return s.frozen }
