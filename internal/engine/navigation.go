package engine

import (
	"github.com/gargallo/neolingus-backend/internal/model"
	"github.com/google/uuid"
)

// navEntry binds a flattened question to its owning section.
type navEntry struct {
	question  *model.Question
	sectionID uuid.UUID
}

// NavigationIndex flattens the section → part → question hierarchy in
// document order and tracks the current position. The flattened order
// defines the question ordinals used throughout grading and review.
//
// NavigationIndex is not safe for concurrent use on its own; the owning
// session controller serializes access.
type NavigationIndex struct {
	entries []navEntry
	pos     int
}

// BuildNavigationIndex flattens the exam model once per session.
func BuildNavigationIndex(m *model.ExamModel) *NavigationIndex {
	idx := &NavigationIndex{}
	for i := range m.Sections {
		sec := &m.Sections[i]
		for j := range sec.Parts {
			part := &sec.Parts[j]
			for k := range part.Questions {
				idx.entries = append(idx.entries, navEntry{
					question:  &part.Questions[k],
					sectionID: sec.ID,
				})
			}
		}
	}
	return idx
}

// Total returns the number of questions in the flattened sequence.
func (n *NavigationIndex) Total() int { return len(n.entries) }

// Position returns the current question index.
func (n *NavigationIndex) Position() int { return n.pos }

// Current returns the question at the current position. The boolean is
// false when the flattened list is empty.
func (n *NavigationIndex) Current() (*model.Question, bool) {
	if len(n.entries) == 0 {
		return nil, false
	}
	return n.entries[n.pos].question, true
}

// CurrentSectionID returns the id of the section owning the current
// question, or uuid.Nil for an empty exam.
func (n *NavigationIndex) CurrentSectionID() uuid.UUID {
	if len(n.entries) == 0 {
		return uuid.Nil
	}
	return n.entries[n.pos].sectionID
}

// GoTo moves to an absolute index. Indices outside [0, Total) are
// rejected with OutOfRangeError and the position is unchanged. There is
// no wraparound and no clamping.
func (n *NavigationIndex) GoTo(index int) error {
	if index < 0 || index >= len(n.entries) {
		return &OutOfRangeError{Index: index, Total: len(n.entries)}
	}
	n.pos = index
	return nil
}

// Next advances one question. At the last question it is a no-op and
// returns false, matching disabled-button UI semantics.
func (n *NavigationIndex) Next() bool {
	if n.pos+1 >= len(n.entries) {
		return false
	}
	n.pos++
	return true
}

// Previous steps back one question. At the first question it is a no-op
// and returns false.
func (n *NavigationIndex) Previous() bool {
	if n.pos == 0 || len(n.entries) == 0 {
		return false
	}
	n.pos--
	return true
}
