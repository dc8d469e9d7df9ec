package authoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mind-engage/eduquest/internal/portal"
)

func newRepo(t *testing.T) *portal.Repository {
	t.Helper()
	return portal.NewRepository(portal.NewInMemoryStore())
}

func draft(i int) Draft {
	return Draft{
		Text:    fmt.Sprintf("Question %d", i),
		Options: []string{"a", "b", "c", "d"},
	}
}

func TestWizardCommitsOnTwentiethQuestion(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	w := NewWizard(repo)

	if _, err := w.Begin(ctx, Metadata{Name: "Maths", Code: "MATH101", AssignRoll: "S001"}); err != nil {
		t.Fatalf("begin: %v", err)
	}
	for i := 1; i < portal.QuestionsPerSubject; i++ {
		p, err := w.AddQuestion(ctx, draft(i))
		if err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
		if p.Committed != nil {
			t.Fatalf("committed early at %d", i)
		}
		if _, err := repo.Subject(ctx, "MATH101"); !errors.Is(err, portal.ErrSubjectNotFound) {
			t.Fatalf("subject visible after %d questions", i)
		}
	}
	p, err := w.AddQuestion(ctx, draft(20))
	if err != nil {
		t.Fatalf("add 20: %v", err)
	}
	if p.Committed == nil || p.Stage != StageMetadata || p.Accepted != 0 || p.Metadata != nil {
		t.Fatalf("unexpected progress after commit: %+v", p)
	}
	sub, err := repo.Subject(ctx, "MATH101")
	if err != nil {
		t.Fatalf("subject: %v", err)
	}
	if len(sub.Questions) != portal.QuestionsPerSubject || sub.Duration != DefaultDuration {
		t.Fatalf("subject: %d questions, duration %d", len(sub.Questions), sub.Duration)
	}
	st, _ := repo.StudentByRoll(ctx, "S001")
	if !st.HasSubject("MATH101") {
		t.Fatalf("S001 not assigned: %v", st.AssignedSubjectCodes)
	}
}

func TestWizardUnknownAssignRollIsIgnored(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	w := NewWizard(repo)
	if _, err := w.Begin(ctx, Metadata{Name: "Physics", Code: "PHY1", Duration: 30, AssignRoll: "NOPE"}); err != nil {
		t.Fatal(err)
	}
	var last Progress
	for i := 1; i <= portal.QuestionsPerSubject; i++ {
		p, err := w.AddQuestion(ctx, draft(i))
		if err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
		last = p
	}
	if last.Committed == nil || last.Committed.Duration != 30 {
		t.Fatalf("not committed: %+v", last)
	}
}

var errAssignStore = errors.New("assignment store offline")

type assignFailStore struct{ *portal.Repository }

func (assignFailStore) AssignSubject(context.Context, string, string) error { return errAssignStore }

func TestWizardAssignFailureKeepsCommitAndNamesRoll(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	w := NewWizard(assignFailStore{repo})
	if _, err := w.Begin(ctx, Metadata{Name: "Chem", Code: "CHEM1", AssignRoll: "S001"}); err != nil {
		t.Fatal(err)
	}
	for i := 1; i < portal.QuestionsPerSubject; i++ {
		if _, err := w.AddQuestion(ctx, draft(i)); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	p, err := w.AddQuestion(ctx, draft(20))
	if !errors.Is(err, errAssignStore) || !strings.Contains(err.Error(), "assign S001:") {
		t.Fatalf("error %v", err)
	}
	if p.Committed == nil || p.Stage != StageMetadata {
		t.Fatalf("progress %+v", p)
	}
	if _, err := repo.Subject(ctx, "CHEM1"); err != nil {
		t.Fatalf("subject not stored: %v", err)
	}
}

func TestWizardMetadataValidation(t *testing.T) {
	ctx := context.Background()
	w := NewWizard(newRepo(t))
	if _, err := w.Begin(ctx, Metadata{Name: "  ", Code: "X"}); !errors.Is(err, ErrMissingField) {
		t.Fatalf("want ErrMissingField, got %v", err)
	}
	if w.Progress().Stage != StageMetadata {
		t.Fatal("stage changed on invalid metadata")
	}
	if _, err := w.AddQuestion(ctx, draft(1)); !errors.Is(err, ErrWrongStage) {
		t.Fatalf("want ErrWrongStage, got %v", err)
	}
}

func TestWizardRejectsInvalidDrafts(t *testing.T) {
	ctx := context.Background()
	w := NewWizard(newRepo(t))
	if _, err := w.Begin(ctx, Metadata{Name: "N", Code: "C"}); err != nil {
		t.Fatal(err)
	}
	bad := []struct {
		d    Draft
		want error
	}{
		{Draft{Text: "", Options: []string{"a", "b", "c", "d"}}, ErrBlankText},
		{Draft{Text: "t", Options: []string{"a", "b", "c"}}, ErrOptionCount},
		{Draft{Text: "t", Options: []string{"a", " ", "c", "d"}}, ErrBlankOption},
		{Draft{Text: "t", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: portal.IntPtr(4)}, ErrBadAnswer},
	}
	for _, b := range bad {
		if _, err := w.AddQuestion(ctx, b.d); !errors.Is(err, b.want) {
			t.Errorf("draft %+v: want %v, got %v", b.d, b.want, err)
		}
	}
	if p := w.Progress(); p.Accepted != 0 || p.Stage != StageQuestions {
		t.Fatalf("state changed: %+v", p)
	}
}

func TestWizardDefaultsCorrectAnswerToZero(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	w := NewWizard(repo)
	_, _ = w.Begin(ctx, Metadata{Name: "N", Code: "C"})
	for i := 1; i <= portal.QuestionsPerSubject; i++ {
		d := draft(i)
		if i == 5 {
			d.CorrectAnswer = portal.IntPtr(3)
		}
		if _, err := w.AddQuestion(ctx, d); err != nil {
			t.Fatal(err)
		}
	}
	sub, err := repo.Subject(ctx, "C")
	if err != nil {
		t.Fatal(err)
	}
	if sub.Questions[0].CorrectAnswer != 0 || sub.Questions[4].CorrectAnswer != 3 {
		t.Fatalf("answers: %d %d", sub.Questions[0].CorrectAnswer, sub.Questions[4].CorrectAnswer)
	}
}

func TestWizardRejectsExistingCode(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	w := NewWizard(repo)
	_, _ = w.Begin(ctx, Metadata{Name: "N", Code: "DUP"})
	for i := 1; i <= portal.QuestionsPerSubject; i++ {
		_, _ = w.AddQuestion(ctx, draft(i))
	}
	if _, err := w.Begin(ctx, Metadata{Name: "N2", Code: "DUP"}); !errors.Is(err, portal.ErrDuplicateCode) {
		t.Fatalf("want ErrDuplicateCode, got %v", err)
	}
}

func TestWizardResetDiscardsDraft(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	w := NewWizard(repo)
	_, _ = w.Begin(ctx, Metadata{Name: "N", Code: "R"})
	_, _ = w.AddQuestion(ctx, draft(1))
	if p := w.Reset(); p.Stage != StageMetadata || p.Accepted != 0 {
		t.Fatalf("reset: %+v", p)
	}
	subs, _ := repo.Subjects(ctx)
	if len(subs) != 0 {
		t.Fatalf("subjects persisted: %d", len(subs))
	}
}

func TestDraftsAreScopedPerSession(t *testing.T) {
	d := NewDrafts(newRepo(t))
	a, b := d.For("a"), d.For("b")
	if a == b || d.For("a") != a {
		t.Fatal("drafts not keyed by session")
	}
	d.Drop("a")
	if d.For("a") == a {
		t.Fatal("dropped draft came back")
	}
}
