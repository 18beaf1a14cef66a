package exam

import (
	"strings"
	"time"
)

const (
	AnswerTest  = "TEST"
	AnswerEssay = "ESSAY"
)

type Answer struct {
	ID             int64     `json:"id"`
	ExamQuestionID int64     `json:"exam_question_id"`
	Type           string    `json:"type"`
	OptionID       *int64    `json:"option_id,omitempty"`
	Text           string    `json:"text,omitempty"`
	Score          *float64  `json:"score,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewAnswer builds an answer for a question of the given kind. The kind
// tag is matched case-insensitively and decides which payload is
// required: a multiple-choice answer carries an option, an essay answer
// carries text. Anything else is rejected.
func NewAnswer(questionType string, optionID *int64, text string) (*Answer, error) {
	switch strings.ToUpper(questionType) {
	case AnswerTest:
		if optionID == nil || *optionID <= 0 {
			return nil, ErrInvalidInput
		}
		return &Answer{Type: AnswerTest, OptionID: optionID}, nil
	case AnswerEssay:
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, ErrInvalidInput
		}
		return &Answer{Type: AnswerEssay, Text: text}, nil
	default:
		return nil, ErrInvalidInput
	}
}
