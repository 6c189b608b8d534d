package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptResult is the frozen outcome of one attempt. Computed exactly once
// when the attempt is finalized; never recomputed afterward.
type AttemptResult struct {
	AttemptID      uuid.UUID `json:"attempt_id"`
	ExamID         uuid.UUID `json:"exam_id"`
	SubjectID      int       `json:"subject_id"`
	Score          int       `json:"score"`
	Total          int       `json:"total"`
	Percentage     int       `json:"percentage"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	FinalizedAt    time.Time `json:"finalized_at"`
}

// ResultRecord is a persisted attempt result as read back from storage.
type ResultRecord struct {
	ID             uuid.UUID      `json:"id"`
	UserID         int            `json:"user_id"`
	ExamID         uuid.UUID      `json:"exam_id"`
	SubjectID      int            `json:"subject_id"`
	ExamTitle      string         `json:"exam_title,omitempty"`
	Score          int            `json:"score"`
	Total          int            `json:"total"`
	Percentage     int            `json:"percentage"`
	ElapsedSeconds int            `json:"elapsed_seconds"`
	Answers        map[string]int `json:"answers,omitempty"`
	FinalizedAt    time.Time      `json:"finalized_at"`
	CreatedAt      time.Time      `json:"created_at"`
}

// QuestionReview is one row of a detailed result breakdown: the taker's
// choice against the correct one, with the explanation. Only revealed to
// identified users.
type QuestionReview struct {
	QuestionID    uuid.UUID `json:"question_id"`
	Prompt        string    `json:"prompt"`
	Selected      *int      `json:"selected,omitempty"`
	CorrectChoice int       `json:"correct_choice"`
	Correct       bool      `json:"correct"`
	Explanation   *string   `json:"explanation,omitempty"`
	OrderNum      int       `json:"order_num"`
}

// StartAttemptRequest is the payload for starting an attempt.
type StartAttemptRequest struct {
	ExamID uuid.UUID `json:"exam_id" binding:"required"`
}

// SelectAnswerRequest is the payload for recording an answer.
type SelectAnswerRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Choice     int       `json:"choice" binding:"min=0"`
}

// NavigateRequest is the payload for moving the current-question pointer.
type NavigateRequest struct {
	Index int `json:"index" binding:"min=0"`
}
