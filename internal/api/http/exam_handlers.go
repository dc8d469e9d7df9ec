package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mind-engage/eduquest/internal/audit"
	"github.com/mind-engage/eduquest/internal/auth"
	"github.com/mind-engage/eduquest/internal/calc"
	"github.com/mind-engage/eduquest/internal/portal"
	"github.com/mind-engage/eduquest/internal/session"
)

func sessionFrom(r *http.Request) (auth.Session, bool) {
	return auth.FromContext(r.Context())
}

// GET /api/student/dashboard
func DashboardHandler(repo *portal.Repository, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := auth.StudentFromContext(r.Context())
		if st == nil {
			writeError(w, http.StatusUnauthorized, "no student session", portal.DestStudentLogin)
			return
		}
		out, err := repo.Dashboard(r.Context(), st.RollNumber)
		if err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// POST /api/exams/{code}/session
func StartExamHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		e, err := d.Sessions.Start(r.Context(), auth.StudentFromContext(r.Context()), code)
		if err != nil {
			fail(w, d.Log, err)
			return
		}
		d.Metrics.ExamsStarted.Inc()
		d.record(r.Context(), audit.AttemptStarted, e.Key().String(), nil)
		writeJSON(w, http.StatusCreated, e.View())
	}
}

// liveEngine finds the caller's running session for {code}. When there is
// none the client is sent back to the dashboard.
func liveEngine(d *Deps, w http.ResponseWriter, r *http.Request) (*session.Engine, bool) {
	st := auth.StudentFromContext(r.Context())
	if st == nil {
		writeError(w, http.StatusUnauthorized, "no student session", portal.DestStudentLogin)
		return nil, false
	}
	code := chi.URLParam(r, "code")
	if e, ok := d.Sessions.Get(st.RollNumber, code); ok {
		return e, true
	}
	msg := "no exam in progress"
	if a, err := d.Repo.Attempt(r.Context(), st.RollNumber, code); err == nil && a.Completed {
		msg = "Exam already submitted."
	}
	writeError(w, http.StatusConflict, msg, portal.DestStudentDashboard)
	return nil, false
}

// GET /api/exams/{code}/session
func ExamViewHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := liveEngine(d, w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, e.View())
	}
}

type selectReq struct {
	Index  *int `json:"index" validate:"required,min=0"`
	Option *int `json:"option" validate:"required,min=0,max=3"`
}

// POST /api/exams/{code}/session/answers {index, option}
func SelectAnswerHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectReq
		if !decode(w, r, &req) {
			return
		}
		e, ok := liveEngine(d, w, r)
		if !ok {
			return
		}
		if err := e.Select(*req.Index, *req.Option); err != nil {
			examFail(d, w, err)
			return
		}
		writeJSON(w, http.StatusOK, e.View())
	}
}

type navigateReq struct {
	Action string `json:"action" validate:"required,oneof=next prev jump"`
	Index  int    `json:"index"`
}

// POST /api/exams/{code}/session/navigate {action, index}
func NavigateHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req navigateReq
		if !decode(w, r, &req) {
			return
		}
		e, ok := liveEngine(d, w, r)
		if !ok {
			return
		}
		var err error
		switch req.Action {
		case "next":
			_, err = e.Next()
		case "prev":
			_, err = e.Prev()
		default:
			_, err = e.Jump(req.Index)
		}
		if err != nil {
			examFail(d, w, err)
			return
		}
		writeJSON(w, http.StatusOK, e.View())
	}
}

// POST /api/exams/{code}/session/advisory/dismiss
func DismissAdvisoryHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := liveEngine(d, w, r)
		if !ok {
			return
		}
		e.DismissAdvisory()
		writeJSON(w, http.StatusOK, e.View())
	}
}

type submitReq struct {
	Confirm bool `json:"confirm"`
}

// POST /api/exams/{code}/session/submit {confirm: true}
func SubmitExamHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitReq
		if !decode(w, r, &req) {
			return
		}
		if !req.Confirm {
			writeError(w, http.StatusBadRequest, "submission must be confirmed", "")
			return
		}
		e, ok := liveEngine(d, w, r)
		if !ok {
			return
		}
		res, err := e.Submit(r.Context())
		if err != nil {
			examFail(d, w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"score":      res.Score,
			"totalMarks": res.TotalMarks,
			"status":     res.Status,
			"redirect":   portal.DestStudentDashboard,
		})
	}
}

// examFail sends the student to the dashboard once the session is over.
func examFail(d *Deps, w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrSubmitted) || errors.Is(err, session.ErrClosed) {
		writeError(w, http.StatusConflict, err.Error(), portal.DestStudentDashboard)
		return
	}
	fail(w, d.Log, err)
}

type calcReq struct {
	Expression string `json:"expression" validate:"required,max=256"`
}

// POST /api/calc {expression}
func CalcHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req calcReq
		if !decode(w, r, &req) {
			return
		}
		v, err := calc.Eval(req.Expression)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"result": v, "display": calc.Format(v)})
	}
}
