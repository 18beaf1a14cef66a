package question

import (
	"errors"
	"strings"
	"time"
)

const (
	TypeEssay = "ESSAY"
	TypeTest  = "TEST"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnknownType      = errors.New("unknown question type")
	ErrQuestionNotFound = errors.New("question not found")
	ErrQuestionInUse    = errors.New("question is used by an exam")
	ErrCourseNotFound   = errors.New("course not found")
)

type Option struct {
	ID        int64  `json:"id"`
	Body      string `json:"body"`
	IsCorrect bool   `json:"is_correct"`
}

type Question struct {
	ID           int64     `json:"id"`
	CourseID     int64     `json:"course_id"`
	Type         string    `json:"type"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	DefaultScore float64   `json:"default_score"`
	Options      []Option  `json:"options,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type OptionInput struct {
	Body      string
	IsCorrect bool
}

type CreateInput struct {
	CourseID     int64
	Type         string
	Title        string
	Body         string
	DefaultScore float64
	Options      []OptionInput
}

// New builds a question of the requested kind. The type tag is matched
// case-insensitively; anything but an essay or multiple-choice tag is
// rejected. A multiple-choice question must carry at least two options
// with at least one of them correct. DefaultScore of zero is rejected: a
// question that is worth nothing cannot be assigned to an exam.
func New(in CreateInput) (*Question, error) {
	title := strings.TrimSpace(in.Title)
	body := strings.TrimSpace(in.Body)
	if in.CourseID <= 0 || title == "" || body == "" {
		return nil, ErrInvalidInput
	}
	if in.DefaultScore <= 0 {
		return nil, ErrInvalidInput
	}

	q := &Question{
		CourseID:     in.CourseID,
		Title:        title,
		Body:         body,
		DefaultScore: in.DefaultScore,
	}

	switch strings.ToUpper(in.Type) {
	case TypeEssay:
		if len(in.Options) != 0 {
			return nil, ErrInvalidInput
		}
		q.Type = TypeEssay
	case TypeTest:
		if len(in.Options) < 2 {
			return nil, ErrInvalidInput
		}
		correct := 0
		for _, opt := range in.Options {
			if strings.TrimSpace(opt.Body) == "" {
				return nil, ErrInvalidInput
			}
			if opt.IsCorrect {
				correct++
			}
		}
		if correct < 1 {
			return nil, ErrInvalidInput
		}
		q.Type = TypeTest
		q.Options = make([]Option, 0, len(in.Options))
		for _, opt := range in.Options {
			q.Options = append(q.Options, Option{
				Body:      strings.TrimSpace(opt.Body),
				IsCorrect: opt.IsCorrect,
			})
		}
	default:
		return nil, ErrUnknownType
	}

	return q, nil
}
