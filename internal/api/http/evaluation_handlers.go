package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mind-engage/eduquest/internal/audit"
	"github.com/mind-engage/eduquest/internal/evaluation"
	"github.com/mind-engage/eduquest/internal/portal"
)

// GET /api/admin/attempts
func ListCompletedAttemptsHandler(rv *evaluation.Reviewer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := rv.ListCompleted(r.Context())
		if err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// GET /api/admin/attempts/{roll}/{code}
func ReviewAttemptHandler(rv *evaluation.Reviewer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := rv.Review(r.Context(), chi.URLParam(r, "roll"), chi.URLParam(r, "code"))
		if err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type publishReq struct {
	Score *int `json:"score" validate:"required"`
}

// POST /api/admin/attempts/{roll}/{code}/publish {score}
//
// A missing attempt is not an error: the response is 204 and nothing changes.
func PublishAttemptHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roll, code := chi.URLParam(r, "roll"), chi.URLParam(r, "code")
		var req publishReq
		if !decode(w, r, &req) {
			return
		}
		ok, status, err := d.Reviewer.Publish(r.Context(), roll, code, *req.Score)
		if err != nil {
			fail(w, d.Log, err)
			return
		}
		if !ok {
			d.Log.Debug("publish skipped: no attempt", zap.String("roll", roll), zap.String("subject", code))
			w.WriteHeader(http.StatusNoContent)
			return
		}
		key := portal.AttemptKey{Roll: roll, Code: code}.String()
		d.Metrics.ResultsPublished.WithLabelValues(string(status)).Inc()
		d.record(r.Context(), audit.AttemptPublished, key, map[string]any{"score": *req.Score, "status": status})
		writeJSON(w, http.StatusOK, map[string]any{"published": true, "score": *req.Score, "status": status})
	}
}

// GET /api/admin/events?key=&limit=
func ListEventsHandler(events EventLister, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if events == nil {
			writeError(w, http.StatusNotFound, "event log not available for this store driver", "")
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		out, err := events.List(r.Context(), r.URL.Query().Get("key"), limit)
		if err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}
