package portal

import "context"

type ExamStatus string

const (
	ExamNotStarted        ExamStatus = "Not Started"
	ExamInProgress        ExamStatus = "In Progress"
	ExamPendingEvaluation ExamStatus = "Pending Evaluation"
	ExamResultPublished   ExamStatus = "Result Published"
)

// SubjectSummary is a subject without its questions.
type SubjectSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Code          string `json:"code"`
	Duration      int    `json:"duration"`
	QuestionCount int    `json:"questionCount"`
}

func Summarize(s Subject) SubjectSummary {
	return SubjectSummary{ID: s.ID, Name: s.Name, Code: s.Code, Duration: s.Duration, QuestionCount: len(s.Questions)}
}

type DashboardEntry struct {
	Subject  SubjectSummary `json:"subject"`
	Status   ExamStatus     `json:"status"`
	CanStart bool           `json:"canStart"`
	Result   *ExamAttempt   `json:"result,omitempty"`
}

type Dashboard struct {
	Student Student          `json:"student"`
	Exams   []DashboardEntry `json:"exams"`
}

// Dashboard re-reads the student by roll so assignment changes made after
// login are reflected, and lists the assigned subjects that still exist.
func (r *Repository) Dashboard(ctx context.Context, roll string) (Dashboard, error) {
	d, err := r.Load(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	i := d.studentIndex(roll)
	if i < 0 {
		return Dashboard{}, Redirect(DestStudentLogin, "", ErrStudentNotFound)
	}
	st := d.Students[i]
	out := Dashboard{Student: st, Exams: []DashboardEntry{}}
	for _, sub := range d.Subjects {
		if !st.HasSubject(sub.Code) {
			continue
		}
		e := DashboardEntry{Subject: Summarize(sub)}
		j := d.attemptIndex(AttemptKey{Roll: roll, Code: sub.Code})
		switch {
		case j < 0:
			e.Status, e.CanStart = ExamNotStarted, true
		case !d.Attempts[j].Completed:
			e.Status, e.CanStart = ExamInProgress, true
		case !d.Attempts[j].IsPublished:
			e.Status = ExamPendingEvaluation
		default:
			a := d.Attempts[j]
			e.Status, e.Result = ExamResultPublished, &a
		}
		out.Exams = append(out.Exams, e)
	}
	return out, nil
}
