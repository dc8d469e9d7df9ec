package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/eduquest/internal/portal"
	"github.com/mind-engage/eduquest/internal/rbac"
)

func TestIssueAndParseStudentSession(t *testing.T) {
	a := NewAuthService("secret", 0)
	st := portal.DefaultData().Students[0]
	tok, err := a.Issue(NewStudentSession(st))
	if err != nil {
		t.Fatal(err)
	}
	s, err := a.Parse(tok)
	if err != nil {
		t.Fatal(err)
	}
	if s.Role != RoleStudent || s.Student == nil || s.Student.RollNumber != "S001" || s.ID == "" {
		t.Fatalf("session: %+v", s)
	}
	if s.Home() != portal.DestStudentDashboard {
		t.Fatalf("home %s", s.Home())
	}
}

func TestParseRejectsForeignAndExpiredTokens(t *testing.T) {
	tok, _ := NewAuthService("other", 0).Issue(NewAdminSession())
	if _, err := NewAuthService("secret", 0).Parse(tok); !errors.Is(err, ErrBadToken) {
		t.Fatalf("foreign key: %v", err)
	}
	noExp, _ := NewAuthService("secret", -time.Minute).Issue(NewAdminSession())
	// a negative ttl is treated as no expiry by Issue
	if _, err := NewAuthService("secret", 0).Parse(noExp); err != nil {
		t.Fatalf("no-expiry token: %v", err)
	}
	short := NewAuthService("secret", time.Nanosecond)
	tok, _ = short.Issue(NewAdminSession())
	time.Sleep(1100 * time.Millisecond)
	if _, err := short.Parse(tok); !errors.Is(err, ErrBadToken) {
		t.Fatalf("expired: %v", err)
	}
}

func TestAuthenticatorAdmin(t *testing.T) {
	a := &Authenticator{AdminUser: "1234", AdminPassword: "1234"}
	if s, err := a.Admin("1234", "1234"); err != nil || s.Role != RoleAdmin {
		t.Fatalf("plain: %+v %v", s, err)
	}
	if _, err := a.Admin("1234", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("bad pass: %v", err)
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	a.AdminPassHash = string(hash)
	if _, err := a.Admin("1234", "1234"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("plain password accepted while a hash is configured")
	}
	if _, err := a.Admin("1234", "s3cret"); err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
}

func TestAuthenticatorStudent(t *testing.T) {
	ctx := context.Background()
	a := &Authenticator{Students: portal.NewRepository(portal.NewInMemoryStore())}
	s, err := a.Student(ctx, "S001", "2000-01-01")
	if err != nil || s.Student.Name != "John Doe" {
		t.Fatalf("login: %+v %v", s, err)
	}
	if _, err := a.Student(ctx, "S001", "2000-01-02"); !errors.Is(err, ErrNoStudent) {
		t.Fatalf("wrong dob: %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	a := NewAuthService("secret", 0)
	var got Session
	var role string
	h := Middleware(a, portal.DestStudentLogin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
		role = rbac.RoleFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", rec.Code)
	}
	var body map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body["redirect"] != string(portal.DestStudentLogin) {
		t.Fatalf("body: %v", body)
	}

	tok, _ := a.Issue(NewStudentSession(portal.DefaultData().Students[0]))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || got.Role != RoleStudent || role != RoleStudent {
		t.Fatalf("valid token: %d %+v %q", rec.Code, got, role)
	}
	if st := StudentFromContext(WithSession(context.Background(), got)); st == nil || st.RollNumber != "S001" {
		t.Fatalf("student from context: %+v", st)
	}
}
