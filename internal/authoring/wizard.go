// Package authoring implements the two-stage exam authoring wizard: exam
// metadata first, then exactly portal.QuestionsPerSubject questions, after
// which the subject is committed in one step.
package authoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mind-engage/eduquest/internal/portal"
)

const DefaultDuration = 60 // minutes

type Stage string

const (
	StageMetadata  Stage = "metadata"
	StageQuestions Stage = "questions"
)

var (
	ErrMissingField = errors.New("name and code are required")
	ErrBadDuration  = errors.New("duration must be a positive number of minutes")
	ErrWrongStage   = errors.New("operation not valid in the current authoring stage")
	ErrBlankText    = errors.New("question text is required")
	ErrOptionCount  = errors.New("a question needs exactly 4 options")
	ErrBlankOption  = errors.New("please fill all fields for the question")
	ErrBadAnswer    = errors.New("correct answer must be an option index 0-3")
)

// Store is what the wizard needs to commit a subject.
type Store interface {
	Subject(ctx context.Context, code string) (portal.Subject, error)
	AddSubject(ctx context.Context, s portal.Subject) (portal.Subject, error)
	AssignSubject(ctx context.Context, roll, code string) error
}

type Metadata struct {
	Name       string `json:"name"`
	Code       string `json:"code"`
	Duration   int    `json:"duration"`
	AssignRoll string `json:"assignRoll,omitempty"`
}

type Draft struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correctAnswer,omitempty"`
}

type Progress struct {
	Stage     Stage           `json:"stage"`
	Metadata  *Metadata       `json:"metadata,omitempty"`
	Accepted  int             `json:"accepted"`
	Total     int             `json:"total"`
	Percent   int             `json:"percent"`
	Committed *portal.Subject `json:"committed,omitempty"`
}

type Wizard struct {
	store Store
	newID func() string

	mu        sync.Mutex
	stage     Stage
	meta      Metadata
	questions []portal.Question
}

func NewWizard(store Store) *Wizard {
	return &Wizard{store: store, newID: uuid.NewString, stage: StageMetadata}
}

// Begin validates the exam metadata and moves to the question stage.
func (w *Wizard) Begin(ctx context.Context, m Metadata) (Progress, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stage != StageMetadata {
		return w.progress(), ErrWrongStage
	}
	m.Name = strings.TrimSpace(m.Name)
	m.Code = strings.TrimSpace(m.Code)
	m.AssignRoll = strings.TrimSpace(m.AssignRoll)
	if m.Name == "" || m.Code == "" {
		return w.progress(), ErrMissingField
	}
	if m.Duration < 0 {
		return w.progress(), ErrBadDuration
	}
	if m.Duration == 0 {
		m.Duration = DefaultDuration
	}
	if _, err := w.store.Subject(ctx, m.Code); err == nil {
		return w.progress(), fmt.Errorf("%w: %s", portal.ErrDuplicateCode, m.Code)
	} else if !errors.Is(err, portal.ErrSubjectNotFound) {
		return w.progress(), err
	}
	w.meta = m
	w.questions = make([]portal.Question, 0, portal.QuestionsPerSubject)
	w.stage = StageQuestions
	return w.progress(), nil
}

// AddQuestion accepts one question. The twentieth accepted question commits
// the subject and resets the wizard.
func (w *Wizard) AddQuestion(ctx context.Context, d Draft) (Progress, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stage != StageQuestions {
		return w.progress(), ErrWrongStage
	}
	q, err := w.buildQuestion(d)
	if err != nil {
		return w.progress(), err
	}
	if len(w.questions)+1 < portal.QuestionsPerSubject {
		w.questions = append(w.questions, q)
		return w.progress(), nil
	}

	qs := make([]portal.Question, 0, portal.QuestionsPerSubject)
	qs = append(append(qs, w.questions...), q)
	sub, err := w.store.AddSubject(ctx, portal.Subject{
		ID:        w.newID(),
		Name:      w.meta.Name,
		Code:      w.meta.Code,
		Duration:  w.meta.Duration,
		Questions: qs,
	})
	if err != nil {
		return w.progress(), fmt.Errorf("commit subject: %w", err)
	}
	if w.meta.AssignRoll != "" {
		// An unknown roll or an existing assignment is ignored on purpose.
		err := w.store.AssignSubject(ctx, w.meta.AssignRoll, sub.Code)
		if err != nil && !errors.Is(err, portal.ErrStudentNotFound) && !errors.Is(err, portal.ErrAlreadyAssigned) {
			roll := w.meta.AssignRoll
			w.reset()
			p := w.progress()
			p.Committed = &sub
			return p, fmt.Errorf("assign %s: %w", roll, err)
		}
	}
	w.reset()
	p := w.progress()
	p.Committed = &sub
	return p, nil
}

func (w *Wizard) buildQuestion(d Draft) (portal.Question, error) {
	if strings.TrimSpace(d.Text) == "" {
		return portal.Question{}, ErrBlankText
	}
	if len(d.Options) != portal.OptionsPerQuestion {
		return portal.Question{}, ErrOptionCount
	}
	var opts [4]string
	for i, o := range d.Options {
		if strings.TrimSpace(o) == "" {
			return portal.Question{}, ErrBlankOption
		}
		opts[i] = o
	}
	correct := 0
	if d.CorrectAnswer != nil {
		correct = *d.CorrectAnswer
	}
	if correct < 0 || correct >= portal.OptionsPerQuestion {
		return portal.Question{}, ErrBadAnswer
	}
	return portal.Question{ID: "q-" + w.newID(), Text: d.Text, Options: opts, CorrectAnswer: correct}, nil
}

// Reset abandons the draft; nothing is persisted.
func (w *Wizard) Reset() Progress {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reset()
	return w.progress()
}

func (w *Wizard) Progress() Progress {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.progress()
}

func (w *Wizard) reset() {
	w.stage = StageMetadata
	w.meta = Metadata{}
	w.questions = nil
}

func (w *Wizard) progress() Progress {
	p := Progress{
		Stage:    w.stage,
		Accepted: len(w.questions),
		Total:    portal.QuestionsPerSubject,
		Percent:  len(w.questions) * 100 / portal.QuestionsPerSubject,
	}
	if w.stage == StageQuestions {
		m := w.meta
		p.Metadata = &m
	}
	return p
}
