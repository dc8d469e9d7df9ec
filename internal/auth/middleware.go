package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mind-engage/eduquest/internal/portal"
	"github.com/mind-engage/eduquest/internal/rbac"
)

// Middleware decodes the bearer token into a Session on the request context.
// Requests without a valid token get 401 and a redirect to login.
func Middleware(a *AuthService, login portal.Destination) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				unauthorized(w, "missing bearer", login)
				return
			}
			s, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				unauthorized(w, "bad token", login)
				return
			}
			ctx := rbac.WithRole(WithSession(r.Context(), s), s.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string, to portal.Destination) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "redirect": string(to)})
}
