package exam

// EffectiveScore resolves how many points a question is worth inside an
// exam: the per-exam override when one is set, the question's default
// otherwise.
func EffectiveScore(override *float64, defaultScore float64) float64 {
	if override != nil {
		return *override
	}
	return defaultScore
}

// GradeChoice scores a multiple-choice answer: full points for the correct
// option, zero for anything else.
func GradeChoice(correct bool, points float64) float64 {
	if correct {
		return points
	}
	return 0
}

// SumScores totals per-answer scores. Ungraded answers are passed as nil
// and count as zero, so the total stays a pure function of current scores.
func SumScores(scores []*float64) float64 {
	var total float64
	for _, s := range scores {
		if s != nil {
			total += *s
		}
	}
	return total
}
