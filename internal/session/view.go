package session

import (
	"github.com/mind-engage/eduquest/internal/grading"
)

// QuestionView is a question as shown to the student, without the answer key.
type QuestionView struct {
	ID      string    `json:"id"`
	Text    string    `json:"text"`
	Options [4]string `json:"options"`
}

type View struct {
	State           State           `json:"state"`
	StudentRoll     string          `json:"studentRoll"`
	SubjectCode     string          `json:"subjectCode"`
	SubjectName     string          `json:"subjectName"`
	Questions       []QuestionView  `json:"questions"`
	Answers         []*int          `json:"answers"`
	Answered        int             `json:"answered"`
	Current         int             `json:"current"`
	Remaining       int             `json:"remaining"` // seconds
	AdvisoryVisible bool            `json:"advisoryVisible"`
	Guarded         bool            `json:"guarded"`
	Result          *grading.Result `json:"result,omitempty"`
}

func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := View{
		State:           e.state,
		StudentRoll:     e.student.RollNumber,
		SubjectCode:     e.subject.Code,
		SubjectName:     e.subject.Name,
		Questions:       make([]QuestionView, len(e.subject.Questions)),
		Answers:         e.attempt(false).Answers,
		Current:         e.current,
		Remaining:       e.remaining,
		AdvisoryVisible: e.advisoryVisible,
		Guarded:         e.state == StateInProgress && !e.closed,
	}
	for i, q := range e.subject.Questions {
		v.Questions[i] = QuestionView{ID: q.ID, Text: q.Text, Options: q.Options}
	}
	for _, a := range e.answers {
		if a != nil {
			v.Answered++
		}
	}
	if e.result != nil {
		r := *e.result
		v.Result = &r
	}
	return v
}
