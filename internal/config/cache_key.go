package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// LearnerLoginKey returns the cache key for a learner's login session (JTI).
func (r *CacheKeyStruct) LearnerLoginKey(learnerID int) string {
	return fmt.Sprintf("login:%d", learnerID)
}

// SessionAnswersKey returns the cache key for a session's autosaved answers.
func (r *CacheKeyStruct) SessionAnswersKey(sessionID string) string {
	return fmt.Sprintf("session:%s:answers", sessionID)
}

// SessionStartKey returns the cache key for a session's start timestamp.
func (r *CacheKeyStruct) SessionStartKey(sessionID string) string {
	return fmt.Sprintf("session:%s:started_at", sessionID)
}

// ExamPayloadKey returns the cache key for a learner-safe exam payload.
func (r *CacheKeyStruct) ExamPayloadKey(examID string) string {
	return fmt.Sprintf("exam:%s:payload", examID)
}

// ExamModelKey returns the cache key for the full exam model
// (including correct answers — never sent to learners).
func (r *CacheKeyStruct) ExamModelKey(examID string) string {
	return fmt.Sprintf("exam:%s:model", examID)
}

// ExamDurationKey returns the cache key for an exam's duration.
func (r *CacheKeyStruct) ExamDurationKey(examID string) string {
	return fmt.Sprintf("exam:%s:duration", examID)
}

var CacheKey = NewCacheKeyStruct()
