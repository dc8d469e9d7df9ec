package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/eduquest/internal/portal"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoStudent          = errors.New("no student found with these credentials")
)

// StudentFinder is the read-only lookup used for student login.
type StudentFinder interface {
	FindStudent(ctx context.Context, roll, dob string) (portal.Student, error)
}

type Authenticator struct {
	AdminUser     string
	AdminPassword string
	AdminPassHash string // bcrypt; used instead of AdminPassword when set
	Students      StudentFinder
}

// Admin checks the configured administrator credentials.
func (a *Authenticator) Admin(user, pass string) (Session, error) {
	if subtle.ConstantTimeCompare([]byte(user), []byte(a.AdminUser)) != 1 {
		return Session{}, ErrInvalidCredentials
	}
	if !a.adminPasswordOK(pass) {
		return Session{}, ErrInvalidCredentials
	}
	return NewAdminSession(), nil
}

func (a *Authenticator) adminPasswordOK(pass string) bool {
	if strings.HasPrefix(a.AdminPassHash, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(a.AdminPassHash), []byte(pass)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(pass), []byte(a.AdminPassword)) == 1
}

// Student matches (roll, dob) exactly against the store.
func (a *Authenticator) Student(ctx context.Context, roll, dob string) (Session, error) {
	st, err := a.Students.FindStudent(ctx, strings.TrimSpace(roll), strings.TrimSpace(dob))
	if errors.Is(err, portal.ErrStudentNotFound) {
		return Session{}, ErrNoStudent
	}
	if err != nil {
		return Session{}, err
	}
	return NewStudentSession(st), nil
}
