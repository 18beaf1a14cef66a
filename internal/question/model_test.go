package question

import (
	"errors"
	"testing"
)

func validChoiceInput() CreateInput {
	return CreateInput{
		CourseID:     1,
		Type:         "TEST",
		Title:        "Binary search complexity",
		Body:         "What is the worst-case complexity of binary search?",
		DefaultScore: 2,
		Options: []OptionInput{
			{Body: "O(n)", IsCorrect: false},
			{Body: "O(log n)", IsCorrect: true},
			{Body: "O(1)", IsCorrect: false},
		},
	}
}

func TestNewChoiceQuestion(t *testing.T) {
	q, err := New(validChoiceInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Type != TypeTest {
		t.Fatalf("expected TEST, got %s", q.Type)
	}
	if len(q.Options) != 3 {
		t.Fatalf("expected 3 options, got %d", len(q.Options))
	}
}

func TestNewNormalizesTypeCase(t *testing.T) {
	in := validChoiceInput()
	in.Type = "test"
	q, err := New(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Type != TypeTest {
		t.Fatalf("expected %s, got %s", TypeTest, q.Type)
	}
}

func TestNewAcceptsMultipleCorrectOptions(t *testing.T) {
	in := validChoiceInput()
	in.Options[0].IsCorrect = true
	q, err := New(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	correct := 0
	for _, opt := range q.Options {
		if opt.IsCorrect {
			correct++
		}
	}
	if correct != 2 {
		t.Fatalf("expected 2 correct options, got %d", correct)
	}
}

func TestNewEssayQuestion(t *testing.T) {
	q, err := New(CreateInput{
		CourseID:     1,
		Type:         "ESSAY",
		Title:        "Normalization",
		Body:         "Explain third normal form.",
		DefaultScore: 5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Type != TypeEssay {
		t.Fatalf("expected ESSAY, got %s", q.Type)
	}
	if q.Options != nil {
		t.Fatalf("essay question must not carry options")
	}
}

func TestNewQuestionValidation(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*CreateInput)
		wantErr error
	}{
		{"empty title", func(in *CreateInput) { in.Title = "   " }, ErrInvalidInput},
		{"empty body", func(in *CreateInput) { in.Body = "" }, ErrInvalidInput},
		{"zero default score", func(in *CreateInput) { in.DefaultScore = 0 }, ErrInvalidInput},
		{"negative default score", func(in *CreateInput) { in.DefaultScore = -1 }, ErrInvalidInput},
		{"missing course", func(in *CreateInput) { in.CourseID = 0 }, ErrInvalidInput},
		{"unknown type", func(in *CreateInput) { in.Type = "MATCHING" }, ErrUnknownType},
		{"single option", func(in *CreateInput) { in.Options = in.Options[:1] }, ErrInvalidInput},
		{"no correct option", func(in *CreateInput) {
			for i := range in.Options {
				in.Options[i].IsCorrect = false
			}
		}, ErrInvalidInput},
		{"blank option body", func(in *CreateInput) { in.Options[0].Body = " " }, ErrInvalidInput},
		{"essay with options", func(in *CreateInput) { in.Type = "ESSAY" }, ErrInvalidInput},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validChoiceInput()
			tc.mutate(&in)
			_, err := New(in)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}
