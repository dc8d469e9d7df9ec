package grading

import (
	"testing"

	"github.com/mind-engage/eduquest/internal/portal"
)

func questions(n, correct int) []portal.Question {
	qs := make([]portal.Question, n)
	for i := range qs {
		qs[i] = portal.Question{ID: "q", Text: "t", Options: [4]string{"a", "b", "c", "d"}, CorrectAnswer: correct}
	}
	return qs
}

func TestGradeTwelveOfTwentyPasses(t *testing.T) {
	qs := questions(20, 0)
	answers := make([]*int, 20)
	for i := 0; i < 12; i++ {
		answers[i] = portal.IntPtr(0)
	}
	res := Grade(answers, qs)
	if res.Score != 12 || res.TotalMarks != 20 || res.Status != portal.StatusPass {
		t.Fatalf("got %+v", res)
	}
}

func TestGradeAllNullScoresZero(t *testing.T) {
	res := Grade(make([]*int, 20), questions(20, 2))
	if res.Score != 0 || res.Status != portal.StatusFail {
		t.Fatalf("got %+v", res)
	}
}

func TestNullNeverMatches(t *testing.T) {
	if IsCorrect(nil, portal.Question{CorrectAnswer: 0}) {
		t.Fatal("nil answer matched correctAnswer 0")
	}
}

func TestStatusForBoundary(t *testing.T) {
	cases := []struct {
		score, total int
		want         portal.ResultStatus
	}{
		{8, 20, portal.StatusPass},
		{7, 20, portal.StatusFail},
		{0, 0, portal.StatusPass},
		{-1, 20, portal.StatusFail},
		{2, 5, portal.StatusPass},
		{1, 3, portal.StatusFail},
		{20, 20, portal.StatusPass},
	}
	for _, c := range cases {
		if got := StatusFor(c.score, c.total); got != c.want {
			t.Errorf("StatusFor(%d,%d)=%s want %s", c.score, c.total, got, c.want)
		}
	}
}

func TestScoreIgnoresShortAnswerSlice(t *testing.T) {
	qs := questions(3, 1)
	if got := Score([]*int{portal.IntPtr(1)}, qs); got != 1 {
		t.Fatalf("score=%d", got)
	}
}
