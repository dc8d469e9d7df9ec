package portal

import "errors"

var (
	ErrConflict         = errors.New("snapshot version conflict")
	ErrStudentNotFound  = errors.New("student not found")
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrDuplicateRoll    = errors.New("roll number already registered")
	ErrDuplicateCode    = errors.New("subject code already exists")
	ErrAlreadyAssigned  = errors.New("subject already assigned to this student")
	ErrInvalidStudent   = errors.New("invalid student")
	ErrInvalidSubject   = errors.New("invalid subject")
	ErrInvalidQuestion  = errors.New("invalid question")
	ErrQuestionCount    = errors.New("a subject needs exactly 20 questions")
	ErrInvalidAttempt   = errors.New("invalid attempt")
	ErrTooManyConflicts = errors.New("snapshot kept changing underneath the write")
)

// RedirectError sends the caller to another destination instead of failing.
type RedirectError struct {
	To      Destination
	Message string
	Err     error
}

func (e *RedirectError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "redirect to " + string(e.To)
}

func (e *RedirectError) Unwrap() error { return e.Err }

// Redirect builds a RedirectError.
func Redirect(to Destination, msg string, err error) error {
	return &RedirectError{To: to, Message: msg, Err: err}
}
