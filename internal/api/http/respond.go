package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mind-engage/eduquest/internal/auth"
	"github.com/mind-engage/eduquest/internal/authoring"
	"github.com/mind-engage/eduquest/internal/calc"
	"github.com/mind-engage/eduquest/internal/evaluation"
	"github.com/mind-engage/eduquest/internal/portal"
	"github.com/mind-engage/eduquest/internal/session"
)

var validate = validator.New()

type errorBody struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, redirect portal.Destination) {
	writeJSON(w, status, errorBody{Error: msg, Redirect: string(redirect)})
}

// decode reads a JSON body into v and runs its validate tags.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error(), "")
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err), "")
		return false
	}
	return true
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return "invalid request: " + strings.Join(msgs, ", ")
}

// fail maps a domain error onto a status code. Redirects carry their
// destination so the client navigates instead of showing an error page.
func fail(w http.ResponseWriter, log *zap.Logger, err error) {
	var re *portal.RedirectError
	if errors.As(err, &re) {
		status := http.StatusConflict
		switch {
		case re.To == portal.DestStudentLogin || re.To == portal.DestAdminLogin:
			status = http.StatusUnauthorized
		case isNotFound(err):
			status = http.StatusNotFound
		}
		writeError(w, status, re.Error(), re.To)
		return
	}
	switch {
	case isNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), "")
	case isInvalid(err):
		writeError(w, http.StatusBadRequest, err.Error(), "")
	case isConflict(err):
		writeError(w, http.StatusConflict, err.Error(), "")
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrNoStudent):
		writeError(w, http.StatusUnauthorized, err.Error(), "")
	default:
		log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func isNotFound(err error) bool {
	return anyIs(err, portal.ErrStudentNotFound, portal.ErrSubjectNotFound, portal.ErrAttemptNotFound)
}

func isInvalid(err error) bool {
	return anyIs(err,
		portal.ErrInvalidStudent, portal.ErrInvalidSubject, portal.ErrInvalidQuestion,
		portal.ErrQuestionCount, portal.ErrInvalidAttempt,
		authoring.ErrMissingField, authoring.ErrBadDuration, authoring.ErrBlankText,
		authoring.ErrOptionCount, authoring.ErrBlankOption, authoring.ErrBadAnswer,
		session.ErrBadIndex, session.ErrBadOption,
		evaluation.ErrScoreOutOfRange,
		calc.ErrSyntax, calc.ErrDivideByZero, calc.ErrNotFinite, calc.ErrTooLong,
	)
}

func isConflict(err error) bool {
	return anyIs(err,
		portal.ErrDuplicateRoll, portal.ErrDuplicateCode, portal.ErrAlreadyAssigned,
		portal.ErrConflict, portal.ErrTooManyConflicts,
		authoring.ErrWrongStage,
		session.ErrSubmitted, session.ErrClosed, session.ErrNotInProgress,
		evaluation.ErrNotCompleted,
	)
}

func anyIs(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
