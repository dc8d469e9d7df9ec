package portal_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/mind-engage/eduquest/internal/portal"
)

func mathSubject(code string) portal.Subject {
	qs := make([]portal.Question, portal.QuestionsPerSubject)
	for i := range qs {
		qs[i] = portal.Question{ID: fmt.Sprint(i), Text: fmt.Sprintf("q%d", i), Options: [4]string{"a", "b", "c", "d"}}
	}
	return portal.Subject{Name: "Maths", Code: code, Duration: 60, Questions: qs}
}

func completed(roll, code string, score int, published bool) portal.ExamAttempt {
	st := portal.StatusFail
	return portal.ExamAttempt{
		StudentRoll: roll, SubjectCode: code, Answers: make([]*int, 20), Completed: true,
		Score: portal.IntPtr(score), TotalMarks: portal.IntPtr(20), Status: &st, IsPublished: published,
	}
}

func TestSeedSnapshot(t *testing.T) {
	repo := portal.NewRepository(portal.NewInMemoryStore())
	d, err := repo.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Students) != 1 || d.Students[0].RollNumber != "S001" || d.Students[0].Name != "John Doe" {
		t.Fatalf("seed: %+v", d.Students)
	}
	if len(d.Subjects) != 0 || len(d.Attempts) != 0 {
		t.Fatal("seed should have no subjects or attempts")
	}
}

func TestAddStudentDefaultsAndDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := portal.NewRepository(portal.NewInMemoryStore())
	s, err := repo.AddStudent(ctx, portal.Student{Name: "Ann", RollNumber: "S002", DOB: "2001-02-03"})
	if err != nil {
		t.Fatal(err)
	}
	if s.ID == "" || s.ProfilePhoto != "https://picsum.photos/seed/S002/200" || s.AssignedSubjectCodes == nil {
		t.Fatalf("defaults: %+v", s)
	}
	if _, err := repo.AddStudent(ctx, portal.Student{Name: "Dup", RollNumber: "S002", DOB: "x"}); !errors.Is(err, portal.ErrDuplicateRoll) {
		t.Fatalf("want ErrDuplicateRoll, got %v", err)
	}
	if _, err := repo.AddStudent(ctx, portal.Student{RollNumber: "S003", DOB: "x"}); !errors.Is(err, portal.ErrInvalidStudent) {
		t.Fatalf("want ErrInvalidStudent, got %v", err)
	}
}

func TestUpsertStudents(t *testing.T) {
	ctx := context.Background()
	repo := portal.NewRepository(portal.NewInMemoryStore())
	if err := repo.AssignSubject(ctx, "S001", "MATH101"); err != nil {
		t.Fatal(err)
	}
	ins, upd, err := repo.UpsertStudents(ctx, []portal.Student{
		{Name: "John Q Doe", RollNumber: "S001", DOB: "2000-01-01"},
		{Name: "Ann", RollNumber: "S002", DOB: "2001-02-03"},
	})
	if err != nil || ins != 1 || upd != 1 {
		t.Fatalf("upsert: ins=%d upd=%d err=%v", ins, upd, err)
	}
	s, _ := repo.StudentByRoll(ctx, "S001")
	if s.Name != "John Q Doe" || s.ID != "1" || !s.HasSubject("MATH101") || s.ProfilePhoto == "" {
		t.Fatalf("updated row lost fields: %+v", s)
	}

	_, _, err = repo.UpsertStudents(ctx, []portal.Student{
		{Name: "Ben", RollNumber: "S003", DOB: "2002-01-01"},
		{Name: "", RollNumber: "S004", DOB: "2002-01-01"},
	})
	if !errors.Is(err, portal.ErrInvalidStudent) {
		t.Fatalf("want ErrInvalidStudent, got %v", err)
	}
	if _, err := repo.StudentByRoll(ctx, "S003"); !errors.Is(err, portal.ErrStudentNotFound) {
		t.Fatal("a rejected batch wrote rows")
	}
}

func TestAssignUnassign(t *testing.T) {
	ctx := context.Background()
	repo := portal.NewRepository(portal.NewInMemoryStore())
	if err := repo.AssignSubject(ctx, "S001", "MATH101"); err != nil {
		t.Fatal(err)
	}
	if err := repo.AssignSubject(ctx, "S001", "MATH101"); !errors.Is(err, portal.ErrAlreadyAssigned) {
		t.Fatalf("want ErrAlreadyAssigned, got %v", err)
	}
	if err := repo.AssignSubject(ctx, "NOPE", "MATH101"); !errors.Is(err, portal.ErrStudentNotFound) {
		t.Fatalf("want ErrStudentNotFound, got %v", err)
	}
	if err := repo.UnassignSubject(ctx, "S001", "MATH101"); err != nil {
		t.Fatal(err)
	}
	st, _ := repo.StudentByRoll(ctx, "S001")
	if st.HasSubject("MATH101") {
		t.Fatal("still assigned")
	}
}

func TestAddSubjectRequiresTwentyQuestions(t *testing.T) {
	ctx := context.Background()
	repo := portal.NewRepository(portal.NewInMemoryStore())
	short := mathSubject("MATH101")
	short.Questions = short.Questions[:19]
	if _, err := repo.AddSubject(ctx, short); !errors.Is(err, portal.ErrQuestionCount) {
		t.Fatalf("want ErrQuestionCount, got %v", err)
	}
	if _, err := repo.AddSubject(ctx, mathSubject("MATH101")); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.AddSubject(ctx, mathSubject("MATH101")); !errors.Is(err, portal.ErrDuplicateCode) {
		t.Fatalf("want ErrDuplicateCode, got %v", err)
	}
}

func TestSaveAttemptUpsertsByPair(t *testing.T) {
	ctx := context.Background()
	repo := portal.NewRepository(portal.NewInMemoryStore())
	a := portal.ExamAttempt{StudentRoll: "S001", SubjectCode: "MATH101", Answers: make([]*int, 20)}
	if err := repo.SaveAttempt(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveAttempt(ctx, completed("S001", "MATH101", 9, false)); err != nil {
		t.Fatal(err)
	}
	d, _ := repo.Load(ctx)
	if len(d.Attempts) != 1 || !d.Attempts[0].Completed {
		t.Fatalf("attempts: %+v", d.Attempts)
	}
	bad := a
	bad.Answers = []*int{portal.IntPtr(7)}
	if err := repo.SaveAttempt(ctx, bad); !errors.Is(err, portal.ErrInvalidAttempt) {
		t.Fatalf("want ErrInvalidAttempt, got %v", err)
	}
}

func TestResultsVisibilityAndIdempotence(t *testing.T) {
	ctx := context.Background()
	repo := portal.NewRepository(portal.NewInMemoryStore())
	_ = repo.SaveAttempt(ctx, completed("S001", "A", 10, true))
	_ = repo.SaveAttempt(ctx, completed("S001", "B", 10, false))
	_ = repo.SaveAttempt(ctx, portal.ExamAttempt{StudentRoll: "S001", SubjectCode: "C"})

	first, err := repo.GetStudentResults(ctx, "S001", "2000-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 || first[0].SubjectCode != "A" {
		t.Fatalf("results: %+v", first)
	}
	second, _ := repo.GetStudentResults(ctx, "S001", "2000-01-01")
	if !reflect.DeepEqual(first, second) {
		t.Fatal("results not idempotent")
	}
	if _, err := repo.GetStudentResults(ctx, "S001", "1999-01-01"); !errors.Is(err, portal.ErrStudentNotFound) {
		t.Fatalf("wrong dob: %v", err)
	}
}

func TestDeleteStudentKeepsAttempt(t *testing.T) {
	ctx := context.Background()
	repo := portal.NewRepository(portal.NewInMemoryStore())
	_ = repo.SaveAttempt(ctx, completed("S001", "MATH101", 12, true))
	if err := repo.DeleteStudent(ctx, "S001"); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteStudent(ctx, "S001"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := repo.Attempt(ctx, "S001", "MATH101"); err != nil {
		t.Fatalf("attempt gone: %v", err)
	}
	if _, err := repo.GetStudentResults(ctx, "S001", "2000-01-01"); !errors.Is(err, portal.ErrStudentNotFound) {
		t.Fatalf("orphan reachable: %v", err)
	}
}

func TestPublishAttempt(t *testing.T) {
	ctx := context.Background()
	repo := portal.NewRepository(portal.NewInMemoryStore())
	_ = repo.SaveAttempt(ctx, completed("S001", "MATH101", 12, false))
	ok, err := repo.PublishAttempt(ctx, "S001", "MATH101", 7, portal.StatusFail)
	if err != nil || !ok {
		t.Fatalf("publish: %v %v", ok, err)
	}
	a, _ := repo.Attempt(ctx, "S001", "MATH101")
	if *a.Score != 7 || *a.Status != portal.StatusFail || !a.IsPublished {
		t.Fatalf("attempt: %+v", a)
	}
	if ok, err := repo.PublishAttempt(ctx, "S009", "MATH101", 7, portal.StatusFail); ok || err != nil {
		t.Fatalf("missing publish: %v %v", ok, err)
	}
}

func TestDashboardStatuses(t *testing.T) {
	ctx := context.Background()
	repo := portal.NewRepository(portal.NewInMemoryStore())
	for _, c := range []string{"A", "B", "C", "D", "E"} {
		if _, err := repo.AddSubject(ctx, mathSubject(c)); err != nil {
			t.Fatal(err)
		}
		if c != "E" {
			_ = repo.AssignSubject(ctx, "S001", c)
		}
	}
	_ = repo.SaveAttempt(ctx, portal.ExamAttempt{StudentRoll: "S001", SubjectCode: "B"})
	_ = repo.SaveAttempt(ctx, completed("S001", "C", 5, false))
	_ = repo.SaveAttempt(ctx, completed("S001", "D", 5, true))

	db, err := repo.Dashboard(ctx, "S001")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]portal.ExamStatus{
		"A": portal.ExamNotStarted, "B": portal.ExamInProgress,
		"C": portal.ExamPendingEvaluation, "D": portal.ExamResultPublished,
	}
	if len(db.Exams) != len(want) {
		t.Fatalf("exams: %d", len(db.Exams))
	}
	for _, e := range db.Exams {
		if e.Status != want[e.Subject.Code] {
			t.Errorf("%s: got %s want %s", e.Subject.Code, e.Status, want[e.Subject.Code])
		}
		if e.CanStart != (e.Status == portal.ExamNotStarted || e.Status == portal.ExamInProgress) {
			t.Errorf("%s: canStart %v", e.Subject.Code, e.CanStart)
		}
		if (e.Result != nil) != (e.Status == portal.ExamResultPublished) {
			t.Errorf("%s: result %v", e.Subject.Code, e.Result)
		}
	}

	_ = repo.DeleteStudent(ctx, "S001")
	var re *portal.RedirectError
	if _, err := repo.Dashboard(ctx, "S001"); !errors.As(err, &re) || re.To != portal.DestStudentLogin {
		t.Fatalf("deleted student: %v", err)
	}
}

// racyStore reports a conflict on the first n saves.
type racyStore struct {
	portal.SnapshotStore
	mu        sync.Mutex
	conflicts int
}

func (s *racyStore) Save(ctx context.Context, d portal.SystemData, expected int64) (int64, error) {
	s.mu.Lock()
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return 0, portal.ErrConflict
	}
	s.mu.Unlock()
	return s.SnapshotStore.Save(ctx, d, expected)
}

func TestUpdateRetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	repo := portal.NewRepository(&racyStore{SnapshotStore: portal.NewInMemoryStore(), conflicts: 3})
	if err := repo.AssignSubject(ctx, "S001", "X"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	repo = portal.NewRepository(&racyStore{SnapshotStore: portal.NewInMemoryStore(), conflicts: 100})
	if err := repo.AssignSubject(ctx, "S001", "X"); !errors.Is(err, portal.ErrTooManyConflicts) {
		t.Fatalf("want ErrTooManyConflicts, got %v", err)
	}
}

func TestConcurrentWritersDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	store := portal.NewInMemoryStore()
	a, b := portal.NewRepository(store), portal.NewRepository(store)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, _ = a.AddStudent(ctx, portal.Student{Name: "a", RollNumber: fmt.Sprintf("A%d", i), DOB: "d"})
		}(i)
		go func(i int) {
			defer wg.Done()
			_, _ = b.AddStudent(ctx, portal.Student{Name: "b", RollNumber: fmt.Sprintf("B%d", i), DOB: "d"})
		}(i)
	}
	wg.Wait()
	students, _ := a.Students(ctx)
	if len(students) < 2 {
		t.Fatalf("students: %d", len(students))
	}
	for _, s := range students {
		for _, o := range students {
			if s.RollNumber == o.RollNumber && s.ID != o.ID {
				t.Fatalf("duplicate roll %s", s.RollNumber)
			}
		}
	}
}
