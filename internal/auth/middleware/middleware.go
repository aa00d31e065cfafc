package auth

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mind-engage/mindengage-learner/internal/rbac"
	"github.com/mind-engage/mindengage-learner/internal/session"
)

// DefaultRole is assumed when neither the profile nor the token names one.
const DefaultRole = "employee"

// AnonymousRole is given to requests without a session on routes that allow it.
const AnonymousRole = "anonymous"

// Verifier checks the session token's HMAC signature when the LMS shares its
// signing secret with the gateway. Without a secret tokens are trusted as-is
// and the backend stays the authority.
type Verifier struct{ hmac []byte }

func NewVerifier(secret string) *Verifier {
	if secret == "" {
		return nil
	}
	return &Verifier{hmac: []byte(secret)}
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (v *Verifier) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.hmac, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	c, _ := token.Claims.(*Claims)
	return c, nil
}

// SessionSource is the signed-in session; *session.Store satisfies it.
type SessionSource interface {
	Current() (session.Session, bool)
	Clear(ctx context.Context) error
}

// RequireSession rejects requests when nobody is signed in, and otherwise
// puts the user's subject, profile and role in the request context for
// rbac.Require further down.
func RequireSession(src SessionSource, v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := src.Current()
			if !ok {
				http.Error(w, "not signed in", http.StatusUnauthorized)
				return
			}
			ctx, ok := sessionContext(w, r, src, v, sess)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalSession lets anonymous requests through with AnonymousRole and an
// empty subject. A session that is present is still verified the way
// RequireSession does it.
func OptionalSession(src SessionSource, v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := src.Current()
			if !ok {
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(r.Context(), AnonymousRole)))
				return
			}
			ctx, ok := sessionContext(w, r, src, v, sess)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionContext(w http.ResponseWriter, r *http.Request, src SessionSource, v *Verifier, sess session.Session) (context.Context, bool) {
	role := strings.ToLower(sess.User.Role)
	if v != nil {
		c, err := v.Parse(sess.Token)
		if err != nil {
			log.Printf("auth: rejecting session token: %v", err)
			if cerr := src.Clear(r.Context()); cerr != nil {
				log.Printf("auth: clear session: %v", cerr)
			}
			http.Error(w, "bad token", http.StatusUnauthorized)
			return nil, false
		}
		// a verified claim outranks the stored profile
		if c.Role != "" {
			role = strings.ToLower(c.Role)
		}
	}
	if role == "" {
		role = DefaultRole
	}
	ctx := WithSubject(r.Context(), sess.User.ID)
	ctx = WithProfile(ctx, sess.User)
	return rbac.WithRole(ctx, role), true
}
