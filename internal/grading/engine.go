package grading

import (
	"github.com/mind-engage/eduquest/internal/portal"
)

// Pass threshold as an exact fraction: score >= 4/10 of total marks.
const (
	passNumerator   = 4
	passDenominator = 10
)

// Result is the outcome of grading one attempt.
type Result struct {
	Score      int                 `json:"score"`
	TotalMarks int                 `json:"totalMarks"`
	Status     portal.ResultStatus `json:"status"`
}

// IsCorrect is exact equality; an unanswered slot never matches.
func IsCorrect(answer *int, q portal.Question) bool {
	return answer != nil && *answer == q.CorrectAnswer
}

// Score counts the indices whose answer equals the question's correct answer.
// Answers beyond the question list are ignored, missing answers count as unanswered.
func Score(answers []*int, questions []portal.Question) int {
	score := 0
	for i, q := range questions {
		if i < len(answers) && IsCorrect(answers[i], q) {
			score++
		}
	}
	return score
}

// StatusFor applies the 40% pass rule. It is used both at submission and
// when an administrator overrides the score.
func StatusFor(score, totalMarks int) portal.ResultStatus {
	if score*passDenominator >= totalMarks*passNumerator {
		return portal.StatusPass
	}
	return portal.StatusFail
}

func Grade(answers []*int, questions []portal.Question) Result {
	score := Score(answers, questions)
	total := len(questions)
	return Result{Score: score, TotalMarks: total, Status: StatusFor(score, total)}
}
