package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// QuestionType distinguishes multiple-choice from true/false questions.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeTrueFalse      QuestionType = "TRUE_FALSE"
)

// Question represents a single exam question. Choices is a JSON array of
// strings; CorrectChoice is the index into that array. TRUE_FALSE questions
// carry exactly two choices.
type Question struct {
	ID            uuid.UUID       `json:"id"`
	ExamID        uuid.UUID       `json:"exam_id"`
	Prompt        string          `json:"prompt"`
	Type          QuestionType    `json:"type"`
	Choices       json.RawMessage `json:"choices"`
	CorrectChoice int             `json:"correct_choice"`
	Explanation   *string         `json:"explanation,omitempty"`
	OrderNum      int             `json:"order_num"`
}

// ChoiceCount returns the number of declared choices, or 0 if the choices
// JSON is malformed.
func (q *Question) ChoiceCount() int {
	var choices []string
	if err := json.Unmarshal(q.Choices, &choices); err != nil {
		return 0
	}
	return len(choices)
}

// AddQuestionRequest is the payload for adding a question to an exam.
type AddQuestionRequest struct {
	Prompt        string          `json:"prompt" binding:"required,min=1,max=2000"`
	Type          string          `json:"type" binding:"required,oneof=MULTIPLE_CHOICE TRUE_FALSE"`
	Choices       json.RawMessage `json:"choices" binding:"required"`
	CorrectChoice int             `json:"correct_choice" binding:"min=0"`
	Explanation   *string         `json:"explanation" binding:"omitempty"`
	OrderNum      int             `json:"order_num" binding:"min=0"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing an exam's questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"dive"`
}
