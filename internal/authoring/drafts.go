package authoring

import "sync"

// Drafts holds one wizard per administrator session.
type Drafts struct {
	store Store

	mu sync.Mutex
	m  map[string]*Wizard
}

func NewDrafts(store Store) *Drafts {
	return &Drafts{store: store, m: map[string]*Wizard{}}
}

// For returns the wizard for a session, creating it on first use.
func (d *Drafts) For(sessionID string) *Wizard {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.m[sessionID]
	if !ok {
		w = NewWizard(d.store)
		d.m[sessionID] = w
	}
	return w
}

// Drop forgets a session's wizard, e.g. on logout.
func (d *Drafts) Drop(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.m, sessionID)
}
