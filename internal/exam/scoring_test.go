package exam

import "testing"

func TestEffectiveScore(t *testing.T) {
	override := 7.5

	if got := EffectiveScore(nil, 4); got != 4 {
		t.Fatalf("expected default 4, got %g", got)
	}
	if got := EffectiveScore(&override, 4); got != 7.5 {
		t.Fatalf("expected override 7.5, got %g", got)
	}

	zero := 0.0
	if got := EffectiveScore(&zero, 4); got != 0 {
		t.Fatalf("an explicit zero override must win over the default, got %g", got)
	}
}

func TestGradeChoice(t *testing.T) {
	if got := GradeChoice(true, 5); got != 5 {
		t.Fatalf("correct answer should earn full points, got %g", got)
	}
	if got := GradeChoice(false, 5); got != 0 {
		t.Fatalf("wrong answer should earn zero, got %g", got)
	}
}

func TestSumScores(t *testing.T) {
	a, b := 2.5, 4.0

	cases := []struct {
		name   string
		scores []*float64
		want   float64
	}{
		{"empty", nil, 0},
		{"all graded", []*float64{&a, &b}, 6.5},
		{"ungraded counts as zero", []*float64{&a, nil, &b}, 6.5},
		{"only ungraded", []*float64{nil, nil}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SumScores(tc.scores); got != tc.want {
				t.Fatalf("expected %g, got %g", tc.want, got)
			}
		})
	}
}
