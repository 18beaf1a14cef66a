package exam

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreateExamValidation(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := NewServiceWithClock(nil, func() time.Time { return base })

	valid := CreateExamInput{
		OfferedCourseID: 1,
		Title:           "Midterm",
		StartAt:         base.Add(time.Hour),
		EndAt:           base.Add(3 * time.Hour),
	}

	cases := []struct {
		name   string
		mutate func(in *CreateExamInput)
	}{
		{"missing offering", func(in *CreateExamInput) { in.OfferedCourseID = 0 }},
		{"blank title", func(in *CreateExamInput) { in.Title = "   " }},
		{"zero start", func(in *CreateExamInput) { in.StartAt = time.Time{} }},
		{"zero end", func(in *CreateExamInput) { in.EndAt = time.Time{} }},
		{"start equals end", func(in *CreateExamInput) { in.EndAt = in.StartAt }},
		{"start after end", func(in *CreateExamInput) {
			in.StartAt = base.Add(3 * time.Hour)
			in.EndAt = base.Add(time.Hour)
		}},
		{"start in the past", func(in *CreateExamInput) { in.StartAt = base.Add(-2 * time.Hour) }},
		{"window fully in the past", func(in *CreateExamInput) {
			in.StartAt = base.Add(-3 * time.Hour)
			in.EndAt = base.Add(-time.Hour)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			_, err := svc.CreateExam(context.Background(), in)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
