package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mind-engage/eduquest/internal/audit"
	"github.com/mind-engage/eduquest/internal/authoring"
	"github.com/mind-engage/eduquest/internal/portal"
)

// GET /api/admin/subjects (includes answer keys; admin only)
func ListSubjectsHandler(repo *portal.Repository, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := repo.Subjects(r.Context())
		if err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// DELETE /api/admin/subjects/{code}. Attempts for the subject are kept.
func DeleteSubjectHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		if err := d.Repo.DeleteSubject(r.Context(), code); err != nil {
			fail(w, d.Log, err)
			return
		}
		d.record(r.Context(), audit.SubjectDeleted, code, nil)
		w.WriteHeader(http.StatusNoContent)
	}
}

func wizardFor(drafts *authoring.Drafts, r *http.Request) *authoring.Wizard {
	id := "admin"
	if s, ok := sessionFrom(r); ok {
		id = s.ID
	}
	return drafts.For(id)
}

// GET /api/admin/authoring
func AuthoringProgressHandler(drafts *authoring.Drafts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, wizardFor(drafts, r).Progress())
	}
}

// POST /api/admin/authoring {name, code, duration, assignRoll}
func BeginAuthoringHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var m authoring.Metadata
		if !decode(w, r, &m) {
			return
		}
		p, err := wizardFor(d.Drafts, r).Begin(r.Context(), m)
		if err != nil {
			fail(w, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

type committedWithError struct {
	authoring.Progress
	Error string `json:"error"`
}

// POST /api/admin/authoring/questions {text, options, correctAnswer}
func AddQuestionHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q authoring.Draft
		if !decode(w, r, &q) {
			return
		}
		p, err := wizardFor(d.Drafts, r).AddQuestion(r.Context(), q)
		if p.Committed != nil {
			d.record(r.Context(), audit.SubjectCreated, p.Committed.Code, portal.Summarize(*p.Committed))
			if err != nil {
				// the subject is stored; only the assignment failed
				d.Log.Warn("subject committed without assignment", zap.String("subject", p.Committed.Code), zap.Error(err))
				writeJSON(w, http.StatusCreated, committedWithError{Progress: p, Error: err.Error()})
				return
			}
			writeJSON(w, http.StatusCreated, p)
			return
		}
		if err != nil {
			fail(w, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// DELETE /api/admin/authoring
func ResetAuthoringHandler(drafts *authoring.Drafts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, wizardFor(drafts, r).Reset())
	}
}
