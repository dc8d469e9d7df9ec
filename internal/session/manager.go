package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mind-engage/eduquest/internal/portal"
)

// Manager owns the live engines, one per (roll, code), and runs their timers
// under the server's lifetime context.
type Manager struct {
	base  context.Context
	store Store
	opts  Options

	startMu sync.Mutex

	mu   sync.Mutex
	live map[portal.AttemptKey]*Engine
}

func NewManager(base context.Context, store Store, opts Options) *Manager {
	return &Manager{base: base, store: store, opts: opts.withDefaults(), live: map[portal.AttemptKey]*Engine{}}
}

// Start opens the exam. A session already live for the same pair is
// abandoned before the new attempt is stored, so a timer submission that
// is already saving wins and the restart sees the completed attempt.
func (m *Manager) Start(ctx context.Context, student *portal.Student, code string) (*Engine, error) {
	m.startMu.Lock()
	defer m.startMu.Unlock()

	if student != nil && m.Abandon(student.RollNumber, code) {
		m.opts.Log.Info("exam session replaced", zap.String("roll", student.RollNumber), zap.String("subject", code))
	}
	e, err := Start(ctx, m.store, student, code, m.opts)
	if err != nil {
		return nil, err
	}
	e.onDone = m.remove

	m.mu.Lock()
	m.live[e.Key()] = e
	m.mu.Unlock()

	go e.Run(m.base)
	return e, nil
}

func (m *Manager) Get(roll, code string) (*Engine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live[portal.AttemptKey{Roll: roll, Code: code}]
	return e, ok
}

// Abandon drops a live session without submitting it.
func (m *Manager) Abandon(roll, code string) bool {
	m.mu.Lock()
	k := portal.AttemptKey{Roll: roll, Code: code}
	e, ok := m.live[k]
	delete(m.live, k)
	m.mu.Unlock()
	if ok {
		e.Abandon()
	}
	return ok
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Close abandons every live session.
func (m *Manager) Close() {
	m.mu.Lock()
	live := m.live
	m.live = map[portal.AttemptKey]*Engine{}
	m.mu.Unlock()
	for _, e := range live {
		e.Abandon()
	}
}

func (m *Manager) remove(e *Engine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live[e.Key()] == e {
		delete(m.live, e.Key())
	}
}
