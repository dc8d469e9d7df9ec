package rbac

import (
	"context"
	"strings"
)

type Checker struct {
	RolePermissions map[string][]string
}

func NewChecker(rp map[string][]string) *Checker {
	if rp == nil {
		rp = RolePermissions
	}
	return &Checker{RolePermissions: rp}
}

// Has reports whether role grants perm. A pattern ending in "*" matches by prefix.
func (c *Checker) Has(role, perm string) bool {
	for _, p := range c.RolePermissions[role] {
		if matchPerm(p, perm) {
			return true
		}
	}
	return false
}

func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

func matchPerm(pattern, perm string) bool {
	if pattern == "*" || pattern == perm {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(perm, strings.TrimSuffix(pattern, "*"))
	}
	return false
}

type ctxKey struct{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxKey{}).(string)
	return s
}
