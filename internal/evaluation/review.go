// Package evaluation is the administrator's side of a completed attempt:
// inspect it question by question, optionally override the score, publish.
package evaluation

import (
	"context"
	"errors"
	"fmt"

	"github.com/mind-engage/eduquest/internal/grading"
	"github.com/mind-engage/eduquest/internal/portal"
)

var (
	ErrScoreOutOfRange = errors.New("score exceeds total marks")
	ErrNotCompleted    = errors.New("attempt has not been submitted")
)

type Store interface {
	CompletedAttempts(ctx context.Context) ([]portal.ExamAttempt, error)
	Attempt(ctx context.Context, roll, code string) (portal.ExamAttempt, error)
	Subject(ctx context.Context, code string) (portal.Subject, error)
	PublishAttempt(ctx context.Context, roll, code string, score int, status portal.ResultStatus) (bool, error)
}

type Item struct {
	Index         int       `json:"index"`
	Text          string    `json:"text"`
	Options       [4]string `json:"options"`
	StudentAnswer *int      `json:"studentAnswer"`
	CorrectAnswer int       `json:"correctAnswer"`
	Correct       bool      `json:"correct"`
}

type Review struct {
	Attempt     portal.ExamAttempt `json:"attempt"`
	SubjectName string             `json:"subjectName,omitempty"`
	Items       []Item             `json:"items"`
	Score       int                `json:"score"`    // seeds the override field
	MaxScore    int                `json:"maxScore"` // totalMarks
}

type Reviewer struct {
	store Store
}

func NewReviewer(store Store) *Reviewer { return &Reviewer{store: store} }

// ListCompleted returns every completed attempt, published or not.
func (r *Reviewer) ListCompleted(ctx context.Context) ([]portal.ExamAttempt, error) {
	return r.store.CompletedAttempts(ctx)
}

// Review builds the per-question breakdown for one attempt. A deleted
// subject yields an empty item list.
func (r *Reviewer) Review(ctx context.Context, roll, code string) (Review, error) {
	a, err := r.store.Attempt(ctx, roll, code)
	if err != nil {
		return Review{}, err
	}
	rv := Review{Attempt: a, Items: []Item{}}
	if a.Score != nil {
		rv.Score = *a.Score
	}
	if a.TotalMarks != nil {
		rv.MaxScore = *a.TotalMarks
	}
	sub, err := r.store.Subject(ctx, code)
	switch {
	case errors.Is(err, portal.ErrSubjectNotFound):
		return rv, nil
	case err != nil:
		return Review{}, fmt.Errorf("load subject: %w", err)
	}
	rv.SubjectName = sub.Name
	for i, q := range sub.Questions {
		var ans *int
		if i < len(a.Answers) {
			ans = a.Answers[i]
		}
		rv.Items = append(rv.Items, Item{
			Index:         i,
			Text:          q.Text,
			Options:       q.Options,
			StudentAnswer: ans,
			CorrectAnswer: q.CorrectAnswer,
			Correct:       grading.IsCorrect(ans, q),
		})
	}
	return rv, nil
}

// Publish stores score (possibly overridden) with a status recomputed by the
// pass rule and makes the result visible to the student. It reports false
// without error when there is no such attempt.
func (r *Reviewer) Publish(ctx context.Context, roll, code string, score int) (bool, portal.ResultStatus, error) {
	a, err := r.store.Attempt(ctx, roll, code)
	if errors.Is(err, portal.ErrAttemptNotFound) {
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}
	if !a.Completed {
		return false, "", ErrNotCompleted
	}
	total := len(a.Answers)
	if a.TotalMarks != nil {
		total = *a.TotalMarks
	}
	if score > total {
		return false, "", fmt.Errorf("%w: %d > %d", ErrScoreOutOfRange, score, total)
	}
	status := grading.StatusFor(score, total)
	ok, err := r.store.PublishAttempt(ctx, roll, code, score, status)
	if err != nil {
		return false, "", fmt.Errorf("publish: %w", err)
	}
	return ok, status, nil
}
