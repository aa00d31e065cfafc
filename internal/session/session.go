package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Canonical keys. Nothing outside this package should know key names.
const (
	keyToken = "session.token"
	keyUser  = "session.user"
)

// Legacy key names older clients wrote. Load migrates them once.
var (
	legacyTokenKeys = []string{"token", "authToken", "access_token"}
	legacyUserKeys  = []string{"user", "userData", "currentUser"}
)

type Profile struct {
	ID           string `json:"id"`
	Email        string `json:"email,omitempty"`
	Name         string `json:"name,omitempty"`
	Role         string `json:"role,omitempty"`
	DepartmentID string `json:"departmentId,omitempty"`
}

// UnmarshalJSON accepts the canonical shape as well as the user payloads the
// backend and older clients produce (numeric ids, _id, first/last name).
func (p *Profile) UnmarshalJSON(b []byte) error {
	var w map[string]any
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*p = Profile{
		ID:           firstString(w, "id", "_id", "userId", "user_id"),
		Email:        firstString(w, "email"),
		Name:         firstString(w, "name", "fullName", "full_name"),
		Role:         strings.ToLower(firstString(w, "role", "userRole")),
		DepartmentID: firstString(w, "departmentId", "department_id"),
	}
	if p.Name == "" {
		first := firstString(w, "firstName", "first_name")
		last := firstString(w, "lastName", "last_name")
		p.Name = strings.TrimSpace(first + " " + last)
	}
	return nil
}

type Session struct {
	Token     string
	User      Profile
	ExpiresAt time.Time // zero when the token carries no exp claim
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store holds the current bearer token and user profile. It is set on login
// and cleared on logout, on a 401, or once the token's exp has passed.
type Store struct {
	kv  KV
	now func() time.Time

	mu  sync.RWMutex
	cur Session
}

type Option func(*Store)

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func NewStore(kv KV, opts ...Option) *Store {
	s := &Store{kv: kv, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load restores a persisted session, migrating legacy keys into the
// canonical ones.
func (s *Store) Load(ctx context.Context) error {
	token, err := s.readMigrating(ctx, keyToken, legacyTokenKeys)
	if err != nil {
		return err
	}
	rawUser, err := s.readMigrating(ctx, keyUser, legacyUserKeys)
	if err != nil {
		return err
	}
	var user Profile
	if rawUser != "" {
		if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
			log.Printf("session: dropping unreadable user profile: %v", err)
			user = Profile{}
		}
	}
	if token == "" {
		s.mu.Lock()
		s.cur = Session{User: user}
		s.mu.Unlock()
		return nil
	}
	sess := newSession(token, user)
	s.mu.Lock()
	s.cur = sess
	s.mu.Unlock()
	if sess.Expired(s.now()) {
		return s.Clear(ctx)
	}
	return nil
}

func (s *Store) readMigrating(ctx context.Context, canonical string, legacy []string) (string, error) {
	v, err := s.kv.Get(ctx, canonical)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("read %s: %w", canonical, err)
	}
	for _, k := range legacy {
		lv, err := s.kv.Get(ctx, k)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("read %s: %w", k, err)
		}
		if canonical == keyToken {
			// older clients stored the token JSON-quoted
			lv = strings.Trim(strings.TrimSpace(lv), `"`)
		}
		if err := s.kv.Set(ctx, canonical, lv); err != nil {
			return "", fmt.Errorf("migrate %s: %w", k, err)
		}
		for _, d := range legacy {
			_ = s.kv.Delete(ctx, d)
		}
		return lv, nil
	}
	return "", nil
}

// Set stores a new session after login.
func (s *Store) Set(ctx context.Context, token string, user Profile) error {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return errors.New("empty token")
	}
	sess := newSession(token, user)
	buf, err := json.Marshal(sess.User)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, keyToken, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	if err := s.kv.Set(ctx, keyUser, string(buf)); err != nil {
		return fmt.Errorf("store user: %w", err)
	}
	s.mu.Lock()
	s.cur = sess
	s.mu.Unlock()
	return nil
}

// Clear drops the session from memory and from the KV store.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.cur = Session{}
	s.mu.Unlock()
	if err := s.kv.Delete(ctx, keyToken); err != nil {
		return err
	}
	return s.kv.Delete(ctx, keyUser)
}

// Token returns the current bearer token, or "" when there is none or it has
// expired. An expired session is cleared as a side effect.
func (s *Store) Token() string {
	sess, _ := s.Current()
	return sess.Token
}

// Current returns the active session, if any. The session and its expiry are
// read from one snapshot, so a concurrent Clear never yields an empty session
// reported as active.
func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	cur := s.cur
	s.mu.RUnlock()
	if cur.Token == "" {
		return Session{}, false
	}
	if cur.Expired(s.now()) {
		if err := s.clearIfCurrent(context.Background(), cur.Token); err != nil {
			log.Printf("session: clear expired: %v", err)
		}
		return Session{}, false
	}
	return cur, true
}

// clearIfCurrent clears the session only while token is still the active
// one, leaving a session set in the meantime alone.
func (s *Store) clearIfCurrent(ctx context.Context, token string) error {
	s.mu.Lock()
	if s.cur.Token != token {
		s.mu.Unlock()
		return nil
	}
	s.cur = Session{}
	s.mu.Unlock()
	if err := s.kv.Delete(ctx, keyToken); err != nil {
		return err
	}
	return s.kv.Delete(ctx, keyUser)
}

func (s *Store) UserID() string {
	sess, ok := s.Current()
	if !ok {
		return ""
	}
	return sess.User.ID
}

func newSession(token string, user Profile) Session {
	sess := Session{Token: token, User: user}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		// opaque token: no expiry known, backend decides
		return sess
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		sess.ExpiresAt = exp.Time
	}
	if sess.User.ID == "" {
		if sub, err := claims.GetSubject(); err == nil {
			sess.User.ID = sub
		}
	}
	if sess.User.Role == "" {
		if r, ok := claims["role"].(string); ok {
			sess.User.Role = strings.ToLower(r)
		}
	}
	return sess
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		}
	}
	return ""
}
