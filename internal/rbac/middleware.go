package rbac

import (
	"encoding/json"
	"net/http"

	"github.com/mind-engage/eduquest/internal/portal"
)

var defaultChecker = NewChecker(nil)

// Require enforces a single permission. A role without it is sent back to
// the login destination of the area it tried to enter.
func Require(perm string, login portal.Destination) func(http.Handler) http.Handler {
	return RequireAny(login, perm)
}

// RequireAny enforces that the role has at least one of the permissions.
func RequireAny(login portal.Destination, perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" || !defaultChecker.Any(role, perms...) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "forbidden", "redirect": string(login)})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
