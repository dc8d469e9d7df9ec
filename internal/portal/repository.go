package portal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

const maxWriteRetries = 5

// Repository exposes the portal's entity operations on top of a SnapshotStore.
// Every mutation loads the full snapshot, changes it in memory and saves it
// back with the loaded version, retrying when another writer got there first.
type Repository struct {
	store SnapshotStore
	mu    sync.Mutex
	newID func() string
}

func NewRepository(store SnapshotStore) *Repository {
	return &Repository{store: store, newID: uuid.NewString}
}

// Load returns the current snapshot.
func (r *Repository) Load(ctx context.Context) (SystemData, error) {
	d, _, err := r.store.Load(ctx)
	return d, err
}

// Save overwrites the entire snapshot.
func (r *Repository) Save(ctx context.Context, d SystemData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.store.Save(ctx, d, AnyVersion)
	return err
}

// update runs fn against a fresh snapshot and saves the result. fn returning
// errSkipSave ends the cycle without writing.
func (r *Repository) update(ctx context.Context, fn func(d *SystemData) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < maxWriteRetries; i++ {
		d, version, err := r.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		if err := fn(&d); err != nil {
			if errors.Is(err, errSkipSave) {
				return nil
			}
			return err
		}
		if _, err := r.store.Save(ctx, d, version); err != nil {
			if errors.Is(err, ErrConflict) {
				continue
			}
			return fmt.Errorf("save snapshot: %w", err)
		}
		return nil
	}
	return ErrTooManyConflicts
}

var errSkipSave = errors.New("nothing to save")

func (r *Repository) AddStudent(ctx context.Context, s Student) (Student, error) {
	if err := validateStudent(s); err != nil {
		return Student{}, err
	}
	if s.ID == "" {
		s.ID = r.newID()
	}
	if s.ProfilePhoto == "" {
		s.ProfilePhoto = defaultPhoto(s.RollNumber)
	}
	if s.AssignedSubjectCodes == nil {
		s.AssignedSubjectCodes = []string{}
	}
	err := r.update(ctx, func(d *SystemData) error {
		if d.studentIndex(s.RollNumber) >= 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateRoll, s.RollNumber)
		}
		d.Students = append(d.Students, s)
		return nil
	})
	if err != nil {
		return Student{}, err
	}
	return s, nil
}

// UpdateStudent replaces the student with the same roll number.
func (r *Repository) UpdateStudent(ctx context.Context, s Student) error {
	if err := validateStudent(s); err != nil {
		return err
	}
	if s.AssignedSubjectCodes == nil {
		s.AssignedSubjectCodes = []string{}
	}
	return r.update(ctx, func(d *SystemData) error {
		i := d.studentIndex(s.RollNumber)
		if i < 0 {
			return ErrStudentNotFound
		}
		if s.ID == "" {
			s.ID = d.Students[i].ID
		}
		d.Students[i] = s
		return nil
	})
}

// UpsertStudents registers or updates many students in one write. Updates
// keep the existing id and subject assignments; nothing is written when any
// row is invalid.
func (r *Repository) UpsertStudents(ctx context.Context, rows []Student) (inserted, updated int, err error) {
	for i, s := range rows {
		if err := validateStudent(s); err != nil {
			return 0, 0, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	err = r.update(ctx, func(d *SystemData) error {
		inserted, updated = 0, 0
		for _, s := range rows {
			if i := d.studentIndex(s.RollNumber); i >= 0 {
				cur := &d.Students[i]
				cur.Name, cur.DOB = s.Name, s.DOB
				if s.ProfilePhoto != "" {
					cur.ProfilePhoto = s.ProfilePhoto
				}
				updated++
				continue
			}
			if s.ID == "" {
				s.ID = r.newID()
			}
			if s.ProfilePhoto == "" {
				s.ProfilePhoto = defaultPhoto(s.RollNumber)
			}
			s.AssignedSubjectCodes = []string{}
			d.Students = append(d.Students, s)
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return inserted, updated, nil
}

func defaultPhoto(roll string) string {
	return "https://picsum.photos/seed/" + roll + "/200"
}

// DeleteStudent removes the student. Their attempts stay in the store.
func (r *Repository) DeleteStudent(ctx context.Context, roll string) error {
	return r.update(ctx, func(d *SystemData) error {
		i := d.studentIndex(roll)
		if i < 0 {
			return errSkipSave
		}
		d.Students = append(d.Students[:i], d.Students[i+1:]...)
		return nil
	})
}

func (r *Repository) AssignSubject(ctx context.Context, roll, code string) error {
	return r.update(ctx, func(d *SystemData) error {
		i := d.studentIndex(roll)
		if i < 0 {
			return ErrStudentNotFound
		}
		if d.Students[i].HasSubject(code) {
			return ErrAlreadyAssigned
		}
		d.Students[i].AssignedSubjectCodes = append(d.Students[i].AssignedSubjectCodes, code)
		return nil
	})
}

func (r *Repository) UnassignSubject(ctx context.Context, roll, code string) error {
	return r.update(ctx, func(d *SystemData) error {
		i := d.studentIndex(roll)
		if i < 0 {
			return ErrStudentNotFound
		}
		codes := d.Students[i].AssignedSubjectCodes[:0]
		for _, c := range d.Students[i].AssignedSubjectCodes {
			if c != code {
				codes = append(codes, c)
			}
		}
		d.Students[i].AssignedSubjectCodes = codes
		return nil
	})
}

// AddSubject persists a fully authored subject.
func (r *Repository) AddSubject(ctx context.Context, s Subject) (Subject, error) {
	if s.ID == "" {
		s.ID = r.newID()
	}
	if err := ValidateSubject(s); err != nil {
		return Subject{}, err
	}
	err := r.update(ctx, func(d *SystemData) error {
		if d.subjectIndex(s.Code) >= 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateCode, s.Code)
		}
		d.Subjects = append(d.Subjects, s)
		return nil
	})
	if err != nil {
		return Subject{}, err
	}
	return s, nil
}

// DeleteSubject removes the subject. Attempts referencing it stay in the store.
func (r *Repository) DeleteSubject(ctx context.Context, code string) error {
	return r.update(ctx, func(d *SystemData) error {
		i := d.subjectIndex(code)
		if i < 0 {
			return errSkipSave
		}
		d.Subjects = append(d.Subjects[:i], d.Subjects[i+1:]...)
		return nil
	})
}

// SaveAttempt upserts by (studentRoll, subjectCode).
func (r *Repository) SaveAttempt(ctx context.Context, a ExamAttempt) error {
	if err := validateAttempt(a); err != nil {
		return err
	}
	return r.update(ctx, func(d *SystemData) error {
		if i := d.attemptIndex(a.Key()); i >= 0 {
			d.Attempts[i] = a
		} else {
			d.Attempts = append(d.Attempts, a)
		}
		return nil
	})
}

// PublishAttempt sets the final score and status and makes the result visible.
// It reports false, without error, when no such attempt exists.
func (r *Repository) PublishAttempt(ctx context.Context, roll, code string, score int, status ResultStatus) (bool, error) {
	found := false
	err := r.update(ctx, func(d *SystemData) error {
		i := d.attemptIndex(AttemptKey{Roll: roll, Code: code})
		if i < 0 {
			return errSkipSave
		}
		found = true
		st := status
		d.Attempts[i].Score = IntPtr(score)
		d.Attempts[i].Status = &st
		d.Attempts[i].IsPublished = true
		return nil
	})
	return found, err
}

// GetStudentResults authenticates by exact (roll, dob) and returns only
// completed, published attempts for that roll.
func (r *Repository) GetStudentResults(ctx context.Context, roll, dob string) ([]ExamAttempt, error) {
	d, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := findStudent(d, roll, dob); !ok {
		return nil, ErrStudentNotFound
	}
	out := []ExamAttempt{}
	for _, a := range d.Attempts {
		if a.StudentRoll == roll && a.Completed && a.IsPublished {
			out = append(out, a)
		}
	}
	return out, nil
}

func findStudent(d SystemData, roll, dob string) (Student, bool) {
	for _, s := range d.Students {
		if s.RollNumber == roll && s.DOB == dob {
			return s, true
		}
	}
	return Student{}, false
}

// FindStudent looks a student up by exact (roll, dob).
func (r *Repository) FindStudent(ctx context.Context, roll, dob string) (Student, error) {
	d, err := r.Load(ctx)
	if err != nil {
		return Student{}, err
	}
	s, ok := findStudent(d, roll, dob)
	if !ok {
		return Student{}, ErrStudentNotFound
	}
	return s, nil
}

func (r *Repository) StudentByRoll(ctx context.Context, roll string) (Student, error) {
	d, err := r.Load(ctx)
	if err != nil {
		return Student{}, err
	}
	if i := d.studentIndex(roll); i >= 0 {
		return d.Students[i], nil
	}
	return Student{}, ErrStudentNotFound
}

func (r *Repository) Subject(ctx context.Context, code string) (Subject, error) {
	d, err := r.Load(ctx)
	if err != nil {
		return Subject{}, err
	}
	if i := d.subjectIndex(code); i >= 0 {
		return d.Subjects[i], nil
	}
	return Subject{}, ErrSubjectNotFound
}

func (r *Repository) Attempt(ctx context.Context, roll, code string) (ExamAttempt, error) {
	d, err := r.Load(ctx)
	if err != nil {
		return ExamAttempt{}, err
	}
	if i := d.attemptIndex(AttemptKey{Roll: roll, Code: code}); i >= 0 {
		return d.Attempts[i], nil
	}
	return ExamAttempt{}, ErrAttemptNotFound
}

func (r *Repository) Students(ctx context.Context) ([]Student, error) {
	d, err := r.Load(ctx)
	return d.Students, err
}

func (r *Repository) Subjects(ctx context.Context) ([]Subject, error) {
	d, err := r.Load(ctx)
	return d.Subjects, err
}

// CompletedAttempts lists every completed attempt, published or not.
func (r *Repository) CompletedAttempts(ctx context.Context) ([]ExamAttempt, error) {
	d, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := []ExamAttempt{}
	for _, a := range d.Attempts {
		if a.Completed {
			out = append(out, a)
		}
	}
	return out, nil
}
