package auth

import (
	"context"

	"github.com/mind-engage/mindengage-learner/internal/session"
)

type ctxKey string

const (
	ctxKeySub     ctxKey = "sub"
	ctxKeyProfile ctxKey = "profile"
)

func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, ctxKeySub, sub)
}

func SubjectFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxKeySub); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func WithProfile(ctx context.Context, p session.Profile) context.Context {
	return context.WithValue(ctx, ctxKeyProfile, p)
}

func ProfileFromContext(ctx context.Context) (session.Profile, bool) {
	p, ok := ctx.Value(ctxKeyProfile).(session.Profile)
	return p, ok
}
