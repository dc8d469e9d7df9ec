// Package session runs one student's timed attempt at one subject:
// Uninitialized -> Loading -> InProgress -> Submitted.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mind-engage/eduquest/internal/grading"
	"github.com/mind-engage/eduquest/internal/portal"
)

// AdvisoryThreshold is the remaining time, in seconds, at which the
// "5 minutes remaining" advisory is raised.
const AdvisoryThreshold = 300

type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateInProgress    State = "in_progress"
	StateSubmitted     State = "submitted"
)

type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerTimer  Trigger = "timer"
)

var (
	ErrNoSession     = errors.New("no authenticated student")
	ErrSubmitted     = errors.New("exam already submitted")
	ErrClosed        = errors.New("exam session closed")
	ErrNotInProgress = errors.New("exam session not in progress")
	ErrBadIndex      = errors.New("question index out of range")
	ErrBadOption     = errors.New("option must be 0-3")
)

// Store is the persistence the engine reads the exam from and writes attempts to.
type Store interface {
	Subject(ctx context.Context, code string) (portal.Subject, error)
	Attempt(ctx context.Context, roll, code string) (portal.ExamAttempt, error)
	SaveAttempt(ctx context.Context, a portal.ExamAttempt) error
}

// Guard is engaged while an attempt is in progress and released when it ends.
// It stands in for the client's leave-page and context-menu interception.
type Guard interface {
	Engage()
	Release()
}

type noGuard struct{}

func (noGuard) Engage()  {}
func (noGuard) Release() {}

type Options struct {
	Now       func() time.Time
	TickEvery time.Duration
	Guard     Guard
	Log       *zap.Logger
	OnSubmit  func(a portal.ExamAttempt, trigger Trigger)
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.TickEvery <= 0 {
		o.TickEvery = time.Second
	}
	if o.Guard == nil {
		o.Guard = noGuard{}
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	return o
}

type Engine struct {
	store Store
	opts  Options

	mu              sync.Mutex
	state           State
	closed          bool
	student         portal.Student
	subject         portal.Subject
	answers         []*int
	current         int
	remaining       int
	advisoryFired   bool
	advisoryVisible bool
	startTime       int64
	result          *grading.Result

	stop   chan struct{}
	onDone func(*Engine)
}

// Start loads the exam for student and persists the in-progress attempt.
// A nil student means there is no authenticated session.
func Start(ctx context.Context, store Store, student *portal.Student, code string, opts Options) (*Engine, error) {
	e := &Engine{store: store, opts: opts.withDefaults(), state: StateUninitialized, stop: make(chan struct{})}
	if err := e.load(ctx, student, code); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) load(ctx context.Context, student *portal.Student, code string) error {
	e.state = StateLoading
	if student == nil {
		return portal.Redirect(portal.DestStudentLogin, "", ErrNoSession)
	}
	prev, err := e.store.Attempt(ctx, student.RollNumber, code)
	switch {
	case err == nil && prev.Completed:
		return portal.Redirect(portal.DestStudentDashboard, "Exam already submitted.", ErrSubmitted)
	case err != nil && !errors.Is(err, portal.ErrAttemptNotFound):
		return fmt.Errorf("load attempt: %w", err)
	}
	sub, err := e.store.Subject(ctx, code)
	if errors.Is(err, portal.ErrSubjectNotFound) {
		return portal.Redirect(portal.DestStudentDashboard, "", err)
	}
	if err != nil {
		return fmt.Errorf("load subject: %w", err)
	}

	e.student = *student
	e.subject = sub
	e.answers = make([]*int, len(sub.Questions))
	e.remaining = sub.Duration * 60
	e.startTime = e.opts.Now().UnixMilli()

	// Persist right away so an abandoned session still leaves a record.
	if err := e.store.SaveAttempt(ctx, e.attempt(false)); err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	e.state = StateInProgress
	e.opts.Guard.Engage()
	return nil
}

func (e *Engine) attempt(completed bool) portal.ExamAttempt {
	answers := make([]*int, len(e.answers))
	for i, v := range e.answers {
		if v != nil {
			answers[i] = portal.IntPtr(*v)
		}
	}
	return portal.ExamAttempt{
		StudentRoll: e.student.RollNumber,
		SubjectCode: e.subject.Code,
		Answers:     answers,
		StartTime:   e.startTime,
		Completed:   completed,
	}
}

func (e *Engine) Key() portal.AttemptKey {
	return portal.AttemptKey{Roll: e.student.RollNumber, Code: e.subject.Code}
}

func (e *Engine) checkActive() error {
	switch {
	case e.state == StateSubmitted:
		return ErrSubmitted
	case e.closed:
		return ErrClosed
	case e.state != StateInProgress:
		return ErrNotInProgress
	}
	return nil
}

// Select records option for question i, replacing any earlier choice.
func (e *Engine) Select(i, option int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkActive(); err != nil {
		return err
	}
	if i < 0 || i >= len(e.answers) {
		return ErrBadIndex
	}
	if option < 0 || option >= portal.OptionsPerQuestion {
		return ErrBadOption
	}
	e.answers[i] = portal.IntPtr(option)
	return nil
}

func (e *Engine) Next() (int, error) { return e.move(func(c int) int { return c + 1 }) }
func (e *Engine) Prev() (int, error) { return e.move(func(c int) int { return c - 1 }) }

// Jump moves to question i; out-of-range targets are clamped.
func (e *Engine) Jump(i int) (int, error) { return e.move(func(int) int { return i }) }

func (e *Engine) move(f func(int) int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkActive(); err != nil {
		return e.current, err
	}
	n := f(e.current)
	if n > len(e.answers)-1 {
		n = len(e.answers) - 1
	}
	if n < 0 {
		n = 0
	}
	e.current = n
	return n, nil
}

func (e *Engine) DismissAdvisory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.advisoryVisible = false
}

type TickResult struct {
	Remaining int  `json:"remaining"`
	Advisory  bool `json:"advisory"` // the advisory fired on this tick
	Expired   bool `json:"expired"`  // this tick submitted the attempt
}

// Tick advances the countdown by one second. Reaching zero submits the
// attempt with whatever answers are set. After submission it does nothing.
func (e *Engine) Tick(ctx context.Context) (TickResult, error) {
	e.mu.Lock()
	if e.checkActive() != nil {
		res := TickResult{Remaining: e.remaining}
		e.mu.Unlock()
		return res, nil
	}
	e.remaining--
	res := TickResult{}
	if e.remaining <= AdvisoryThreshold && !e.advisoryFired {
		e.advisoryFired = true
		e.advisoryVisible = true
		res.Advisory = true
	}
	if e.remaining > 0 {
		res.Remaining = e.remaining
		e.mu.Unlock()
		return res, nil
	}
	e.remaining = 0
	submitted, err := e.submitLocked(ctx)
	e.mu.Unlock()
	if err != nil {
		return res, err
	}
	res.Expired = true
	e.finish(submitted, TriggerTimer)
	return res, nil
}

// Submit grades and stores the attempt on the student's explicit request.
func (e *Engine) Submit(ctx context.Context) (grading.Result, error) {
	e.mu.Lock()
	if err := e.checkActive(); err != nil {
		e.mu.Unlock()
		return grading.Result{}, err
	}
	submitted, err := e.submitLocked(ctx)
	var res grading.Result
	if err == nil {
		res = *e.result
	}
	e.mu.Unlock()
	if err != nil {
		return grading.Result{}, err
	}
	e.finish(submitted, TriggerManual)
	return res, nil
}

func (e *Engine) submitLocked(ctx context.Context) (portal.ExamAttempt, error) {
	res := grading.Grade(e.answers, e.subject.Questions)
	a := e.attempt(true)
	a.Score = portal.IntPtr(res.Score)
	a.TotalMarks = portal.IntPtr(res.TotalMarks)
	st := res.Status
	a.Status = &st
	a.IsPublished = false
	if err := e.store.SaveAttempt(ctx, a); err != nil {
		return portal.ExamAttempt{}, fmt.Errorf("save attempt: %w", err)
	}
	e.state = StateSubmitted
	e.result = &res
	e.advisoryVisible = false
	e.opts.Guard.Release()
	close(e.stop)
	return a, nil
}

func (e *Engine) finish(a portal.ExamAttempt, t Trigger) {
	e.opts.Log.Info("exam submitted",
		zap.String("roll", a.StudentRoll),
		zap.String("subject", a.SubjectCode),
		zap.String("trigger", string(t)),
		zap.Int("score", *a.Score),
		zap.Int("total", *a.TotalMarks))
	if e.opts.OnSubmit != nil {
		e.opts.OnSubmit(a, t)
	}
	if e.onDone != nil {
		e.onDone(e)
	}
}

// Abandon discards the in-memory session without submitting. The
// in-progress attempt record stays in the store.
func (e *Engine) Abandon() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.state != StateInProgress {
		return
	}
	e.closed = true
	e.opts.Guard.Release()
	close(e.stop)
}

// Run drives Tick once per TickEvery until the attempt is submitted, the
// session is abandoned, or ctx is done.
func (e *Engine) Run(ctx context.Context) {
	t := time.NewTicker(e.opts.TickEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stop:
			return
		case <-t.C:
			if _, err := e.Tick(ctx); err != nil {
				e.opts.Log.Error("exam tick", zap.String("attempt", e.Key().String()), zap.Error(err))
			}
		}
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Done is closed once the session is submitted or abandoned.
func (e *Engine) Done() <-chan struct{} { return e.stop }
