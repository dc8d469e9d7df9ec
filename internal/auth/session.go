package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mind-engage/eduquest/internal/portal"
)

const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

var ErrBadToken = errors.New("invalid session token")

// Session is built once at login and travels with every request as a token.
// Student is a snapshot taken at login and may be stale.
type Session struct {
	ID      string          `json:"sid"`
	Role    string          `json:"role"`
	Student *portal.Student `json:"student,omitempty"`
}

func NewAdminSession() Session {
	return Session{ID: uuid.NewString(), Role: RoleAdmin}
}

func NewStudentSession(s portal.Student) Session {
	return Session{ID: uuid.NewString(), Role: RoleStudent, Student: &s}
}

// Home is where a freshly logged-in session lands.
func (s Session) Home() portal.Destination {
	if s.Role == RoleAdmin {
		return portal.DestAdminDashboard
	}
	return portal.DestStudentDashboard
}

type AuthService struct {
	hmac []byte
	ttl  time.Duration
}

// NewAuthService signs sessions with secret. A zero ttl issues tokens without expiry.
func NewAuthService(secret string, ttl time.Duration) *AuthService {
	return &AuthService{hmac: []byte(secret), ttl: ttl}
}

type Claims struct {
	Sub     string          `json:"sub"`
	Role    string          `json:"role"`
	Student *portal.Student `json:"student,omitempty"`
	jwt.RegisteredClaims
}

func (a *AuthService) Issue(s Session) (string, error) {
	now := time.Now()
	sub := s.Role
	if s.Student != nil {
		sub = s.Student.RollNumber
	}
	claims := &Claims{
		Sub:     sub,
		Role:    s.Role,
		Student: s.Student,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       s.ID,
			Issuer:   "eduquest",
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if a.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(a.ttl))
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Session{}, ErrBadToken
	}
	c, _ := token.Claims.(*Claims)
	switch {
	case c.Role == RoleAdmin:
	case c.Role == RoleStudent && c.Student != nil:
	default:
		return Session{}, ErrBadToken
	}
	return Session{ID: c.ID, Role: c.Role, Student: c.Student}, nil
}
