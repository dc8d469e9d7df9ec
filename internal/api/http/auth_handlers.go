package http

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mind-engage/eduquest/internal/auth"
	"github.com/mind-engage/eduquest/internal/authoring"
	"github.com/mind-engage/eduquest/internal/portal"
)

type adminLoginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type studentCredentials struct {
	RollNumber string `json:"rollNumber" validate:"required"`
	DOB        string `json:"dob" validate:"required"`
}

// POST /api/auth/admin/login
func AdminLoginHandler(authn *auth.Authenticator, svc *auth.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adminLoginReq
		if !decode(w, r, &req) {
			return
		}
		s, err := authn.Admin(req.Username, req.Password)
		if err != nil {
			writeError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error(), "")
			return
		}
		tok, err := svc.Issue(s)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "issue token", "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access_token": tok, "redirect": string(s.Home())})
	}
}

// POST /api/auth/student/login
func StudentLoginHandler(authn *auth.Authenticator, svc *auth.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req studentCredentials
		if !decode(w, r, &req) {
			return
		}
		s, err := authn.Student(r.Context(), req.RollNumber, req.DOB)
		if errors.Is(err, auth.ErrNoStudent) {
			writeError(w, http.StatusUnauthorized, err.Error(), "")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "lookup failed", "")
			return
		}
		tok, err := svc.Issue(s)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "issue token", "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": tok,
			"student":      s.Student,
			"redirect":     s.Home(),
		})
	}
}

// POST /api/auth/logout. Tokens are discarded by the client; the server only
// forgets the session's authoring draft.
func LogoutHandler(drafts *authoring.Drafts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s, ok := auth.FromContext(r.Context()); ok {
			drafts.Drop(s.ID)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /api/results {rollNumber, dob}: published results only.
func ResultsHandler(repo *portal.Repository, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req studentCredentials
		if !decode(w, r, &req) {
			return
		}
		res, err := repo.GetStudentResults(r.Context(), req.RollNumber, req.DOB)
		if errors.Is(err, portal.ErrStudentNotFound) {
			writeError(w, http.StatusNotFound, auth.ErrNoStudent.Error(), "")
			return
		}
		if err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
