package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mind-engage/eduquest/internal/portal"
)

func TestManagerRunsTimerToExpiry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo, st := setup(t, 1)

	var timer atomic.Int32
	m := NewManager(ctx, repo, Options{
		TickEvery: time.Millisecond,
		OnSubmit: func(_ portal.ExamAttempt, tr Trigger) {
			if tr == TriggerTimer {
				timer.Add(1)
			}
		},
	})
	e, err := m.Start(ctx, st, "MATH101")
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 1 {
		t.Fatalf("live = %d", m.Len())
	}
	select {
	case <-e.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("timer never expired")
	}
	// finish runs after Done is closed; give it a moment.
	deadline := time.Now().Add(2 * time.Second)
	for m.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if m.Len() != 0 || timer.Load() != 1 {
		t.Fatalf("live %d timer submits %d", m.Len(), timer.Load())
	}
	a, _ := repo.Attempt(ctx, "S001", "MATH101")
	if !a.Completed {
		t.Fatal("attempt not completed")
	}
}

func TestManagerReplacesLiveSession(t *testing.T) {
	ctx := context.Background()
	repo, st := setup(t, 60)
	m := NewManager(ctx, repo, Options{TickEvery: time.Hour})
	defer m.Close()

	first, err := m.Start(ctx, st, "MATH101")
	if err != nil {
		t.Fatal(err)
	}
	_ = first.Select(0, 2)
	second, err := m.Start(ctx, st, "MATH101")
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := m.Get("S001", "MATH101"); got != second {
		t.Fatal("second session not live")
	}
	if err := first.Select(1, 1); !errors.Is(err, ErrClosed) {
		t.Fatalf("first session still active: %v", err)
	}
	a, _ := repo.Attempt(ctx, "S001", "MATH101")
	if a.Answers[0] != nil {
		t.Fatal("stored attempt not reset")
	}
	if m.Len() != 1 {
		t.Fatalf("live = %d", m.Len())
	}
}

func TestManagerSubmitRemovesSession(t *testing.T) {
	ctx := context.Background()
	repo, st := setup(t, 60)
	m := NewManager(ctx, repo, Options{TickEvery: time.Hour})

	e, _ := m.Start(ctx, st, "MATH101")
	if _, err := e.Submit(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Get("S001", "MATH101"); ok {
		t.Fatal("submitted session still live")
	}
	var re *portal.RedirectError
	if _, err := m.Start(ctx, st, "MATH101"); !errors.As(err, &re) {
		t.Fatalf("restart after submit: %v", err)
	}
	if m.Abandon("S001", "MATH101") {
		t.Fatal("abandon reported a live session")
	}
}

// gateStore holds the first completed save until release is closed.
type gateStore struct {
	*portal.Repository
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gateStore) SaveAttempt(ctx context.Context, a portal.ExamAttempt) error {
	if a.Completed {
		g.once.Do(func() {
			close(g.entered)
			<-g.release
		})
	}
	return g.Repository.SaveAttempt(ctx, a)
}

func TestRestartDuringTimerSubmitKeepsSubmission(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo, st := setup(t, 1)
	g := &gateStore{Repository: repo, entered: make(chan struct{}), release: make(chan struct{})}
	m := NewManager(ctx, g, Options{TickEvery: time.Millisecond})
	defer m.Close()

	if _, err := m.Start(ctx, st, "MATH101"); err != nil {
		t.Fatal(err)
	}
	select {
	case <-g.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("timer never submitted")
	}

	errc := make(chan error, 1)
	go func() {
		_, err := m.Start(ctx, st, "MATH101")
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)
	close(g.release)

	select {
	case err := <-errc:
		if !errors.Is(err, ErrSubmitted) {
			t.Fatalf("restart err = %v, want ErrSubmitted", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("restart never returned")
	}
	a, err := repo.Attempt(ctx, "S001", "MATH101")
	if err != nil {
		t.Fatal(err)
	}
	if !a.Completed || a.Score == nil {
		t.Fatalf("submission lost: %+v", a)
	}
}
