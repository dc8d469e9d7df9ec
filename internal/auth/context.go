package auth

import (
	"context"

	"github.com/mind-engage/eduquest/internal/portal"
)

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}

// StudentFromContext returns the session's student snapshot, or nil.
func StudentFromContext(ctx context.Context) *portal.Student {
	s, ok := FromContext(ctx)
	if !ok || s.Student == nil {
		return nil
	}
	st := *s.Student
	return &st
}
