package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key for a user's login session
func (r *CacheKeyStruct) UserSessionKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// AttemptAnswersKey returns the cache key for an attempt's answer hash
func (r *CacheKeyStruct) AttemptAnswersKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:answers", attemptID)
}

// ExamPayloadKey returns the cache key for an exam's taker payload
func (r *CacheKeyStruct) ExamPayloadKey(examID string) string {
	return fmt.Sprintf("exam:%s:payload", examID)
}

// ExamAnswerKey returns the cache key for an exam's answer key
func (r *CacheKeyStruct) ExamAnswerKey(examID string) string {
	return fmt.Sprintf("exam:%s:key", examID)
}

// ExamBudgetKey returns the cache key for an exam's time budget (seconds)
func (r *CacheKeyStruct) ExamBudgetKey(examID string) string {
	return fmt.Sprintf("exam:%s:budget", examID)
}

// HeldResultKey returns the holding-area key for an anonymous visitor's
// finalized result, scoped by guest token
func (r *CacheKeyStruct) HeldResultKey(guestToken string) string {
	return fmt.Sprintf("guest:%s:held_result", guestToken)
}

var CacheKey = NewCacheKeyStruct()
