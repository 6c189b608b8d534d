package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam definition.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// Subject is an exam category (civil service, TOEIC, aptitude, ...).
// The monthly attempt quota is tracked per subject.
type Subject struct {
	ID        int       `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExamDefinition is an immutable published exam: ordered questions plus a
// total time budget. Read-only to the attempt controller.
type ExamDefinition struct {
	ID                uuid.UUID  `json:"id"`
	SubjectID         int        `json:"subject_id"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	TimeBudgetSeconds int        `json:"time_budget_seconds"`
	QuestionCount     int        `json:"question_count"`
	Status            ExamStatus `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ExamPayload is the Redis-cached payload sent to exam takers (no correct
// answers, no explanations).
type ExamPayload struct {
	ExamID            uuid.UUID          `json:"exam_id"`
	SubjectID         int                `json:"subject_id"`
	Title             string             `json:"title"`
	TimeBudgetSeconds int                `json:"time_budget_seconds"`
	Questions         []QuestionForTaker `json:"questions"`
}

// QuestionForTaker is a question stripped of its correct choice and
// explanation.
type QuestionForTaker struct {
	ID       uuid.UUID       `json:"id"`
	Prompt   string          `json:"prompt"`
	Type     QuestionType    `json:"type"`
	Choices  json.RawMessage `json:"choices"`
	OrderNum int             `json:"order_num"`
}

// AnswerKeyEntry is one row of an exam's cached answer key.
type AnswerKeyEntry struct {
	QuestionID    uuid.UUID `json:"question_id"`
	CorrectChoice int       `json:"correct_choice"`
	ChoiceCount   int       `json:"choice_count"`
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	SubjectID         int    `json:"subject_id" binding:"required"`
	Title             string `json:"title" binding:"required,min=3,max=255"`
	Description       string `json:"description" binding:"omitempty,max=2000"`
	TimeBudgetSeconds int    `json:"time_budget_seconds" binding:"required,min=30,max=28800"`
}

// UpdateExamRequest is the payload for updating an existing draft exam.
type UpdateExamRequest struct {
	SubjectID         *int   `json:"subject_id" binding:"omitempty"`
	Title             string `json:"title" binding:"omitempty,min=3,max=255"`
	Description       string `json:"description" binding:"omitempty,max=2000"`
	TimeBudgetSeconds *int   `json:"time_budget_seconds" binding:"omitempty,min=30,max=28800"`
}

// CreateSubjectRequest is the payload for creating a subject.
type CreateSubjectRequest struct {
	Slug string `json:"slug" binding:"required,min=2,max=50"`
	Name string `json:"name" binding:"required,min=2,max=100"`
}
