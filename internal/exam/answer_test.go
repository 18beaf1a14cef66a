package exam

import "testing"

func TestNewAnswer(t *testing.T) {
	optionID := int64(12)
	badOption := int64(0)

	cases := []struct {
		name         string
		questionType string
		optionID     *int64
		text         string
		wantErr      bool
	}{
		{"choice with option", "TEST", &optionID, "", false},
		{"choice without option", "TEST", nil, "", true},
		{"choice with zero option", "TEST", &badOption, "", true},
		{"essay with text", "ESSAY", nil, "my long answer", false},
		{"essay with blank text", "ESSAY", nil, "   ", true},
		{"unknown type", "ORAL", nil, "text", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			answer, err := NewAnswer(tc.questionType, tc.optionID, tc.text)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got answer %+v", answer)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if answer.Type != tc.questionType {
				t.Fatalf("expected type %s, got %s", tc.questionType, answer.Type)
			}
		})
	}
}

func TestNewAnswerNormalizesType(t *testing.T) {
	answer, err := NewAnswer("essay", nil, "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Type != AnswerEssay {
		t.Fatalf("expected type %s, got %s", AnswerEssay, answer.Type)
	}
}

func TestNewAnswerTrimsEssayText(t *testing.T) {
	answer, err := NewAnswer("ESSAY", nil, "  padded  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Text != "padded" {
		t.Fatalf("expected trimmed text, got %q", answer.Text)
	}
	if answer.OptionID != nil {
		t.Fatalf("essay answer must not carry an option")
	}
}
