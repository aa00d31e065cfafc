package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	auth "github.com/mind-engage/mindengage-learner/internal/auth/middleware"
	"github.com/mind-engage/mindengage-learner/internal/backend"
	"github.com/mind-engage/mindengage-learner/internal/rbac"
	"github.com/mind-engage/mindengage-learner/internal/session"
)

type Authenticator interface {
	Login(ctx context.Context, email, password string) (backend.LoginResult, error)
}

type SessionWriter interface {
	Set(ctx context.Context, token string, user session.Profile) error
	Clear(ctx context.Context) error
	Current() (session.Session, bool)
}

// POST /auth/login  { "email": "...", "password": "..." }
func LoginHandler(a Authenticator, sessions SessionWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		req.Email = strings.TrimSpace(req.Email)
		if req.Email == "" || req.Password == "" {
			http.Error(w, "email and password required", http.StatusBadRequest)
			return
		}
		res, err := a.Login(r.Context(), req.Email, req.Password)
		if errors.Is(err, backend.ErrUnauthorized) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if err != nil {
			writeBackendError(w, err)
			return
		}
		if err := sessions.Set(r.Context(), res.Token, res.User); err != nil {
			http.Error(w, "store session", http.StatusInternalServerError)
			return
		}
		sess, _ := sessions.Current()
		writeJSON(w, http.StatusOK, meResponse(sess))
	}
}

// POST /auth/logout
func LogoutHandler(sessions SessionWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.Clear(r.Context()); err != nil {
			http.Error(w, "clear session", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /me
func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := auth.ProfileFromContext(r.Context())
		role := rbac.RoleFromContext(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{
			"user":        p,
			"role":        role,
			"permissions": rbac.Granted(role),
		})
	}
}

func meResponse(s session.Session) map[string]any {
	out := map[string]any{"user": s.User}
	if !s.ExpiresAt.IsZero() {
		out["expiresAt"] = s.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return out
}
