package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-learner/internal/db"
)

func signedToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": "Employee",
		"exp":  exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestStore_SetReadsClaims(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	st := NewStore(NewMemoryKV(), WithClock(func() time.Time { return now }))

	tok := signedToken(t, "u-42", now.Add(time.Hour))
	require.NoError(t, st.Set(ctx, "Bearer "+tok, Profile{Email: "a@example.com"}))

	sess, ok := st.Current()
	require.True(t, ok)
	require.Equal(t, tok, sess.Token)
	require.Equal(t, "u-42", sess.User.ID, "user id falls back to sub claim")
	require.Equal(t, "employee", sess.User.Role)
	require.Equal(t, now.Add(time.Hour).Unix(), sess.ExpiresAt.Unix())
}

func TestStore_ExpiredTokenClears(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	kv := NewMemoryKV()
	st := NewStore(kv, WithClock(func() time.Time { return now }))
	require.NoError(t, st.Set(ctx, signedToken(t, "u1", now.Add(time.Minute)), Profile{ID: "u1"}))

	now = now.Add(2 * time.Minute)
	require.Equal(t, "", st.Token())
	_, err := kv.Get(ctx, keyToken)
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, "", st.UserID())
}

func TestStore_OpaqueTokenNeverExpiresLocally(t *testing.T) {
	ctx := context.Background()
	st := NewStore(NewMemoryKV())
	require.NoError(t, st.Set(ctx, "opaque-token", Profile{ID: "7"}))
	require.Equal(t, "opaque-token", st.Token())
	require.Equal(t, "7", st.UserID())
}

func TestStore_CurrentNeverReportsEmptySession(t *testing.T) {
	ctx := context.Background()
	st := NewStore(NewMemoryKV())
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			_ = st.Set(ctx, "opaque-token", Profile{ID: "7"})
			_ = st.Clear(ctx)
		}
	}()

	for i := 0; i < 5000; i++ {
		if sess, ok := st.Current(); ok {
			if sess.Token == "" || sess.User.ID != "7" {
				close(stop)
				wg.Wait()
				t.Fatalf("active session without token or user: %+v", sess)
			}
		}
	}
	close(stop)
	wg.Wait()
}

func TestStore_ExpiryDoesNotClearNewerSession(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	st := NewStore(NewMemoryKV(), WithClock(func() time.Time { return now }))
	old := signedToken(t, "u1", now.Add(time.Minute))
	require.NoError(t, st.Set(ctx, old, Profile{ID: "u1"}))
	fresh := signedToken(t, "u1", now.Add(time.Hour))
	require.NoError(t, st.Set(ctx, fresh, Profile{ID: "u1"}))

	require.NoError(t, st.clearIfCurrent(ctx, old))
	require.Equal(t, fresh, st.Token())
}

func TestStore_SetRejectsEmptyToken(t *testing.T) {
	st := NewStore(NewMemoryKV())
	require.Error(t, st.Set(context.Background(), "  ", Profile{}))
}

func TestStore_LoadMigratesLegacyKeys(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, "authToken", `"legacy-token"`))
	require.NoError(t, kv.Set(ctx, "userData", `{"_id": 15, "first_name": "Ada", "last_name": "Lovelace", "role": "ADMIN"}`))

	st := NewStore(kv)
	require.NoError(t, st.Load(ctx))

	sess, ok := st.Current()
	require.True(t, ok)
	require.Equal(t, "legacy-token", sess.Token)
	require.Equal(t, "15", sess.User.ID)
	require.Equal(t, "Ada Lovelace", sess.User.Name)
	require.Equal(t, "admin", sess.User.Role)

	v, err := kv.Get(ctx, keyToken)
	require.NoError(t, err)
	require.Equal(t, "legacy-token", v)
	_, err = kv.Get(ctx, "authToken")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = kv.Get(ctx, "userData")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SQLKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:session_test?mode=memory&cache=shared")
	require.NoError(t, err)
	defer dbh.Close()

	st := NewStore(NewSQLKV(dbh))
	require.NoError(t, st.Set(ctx, "tok-1", Profile{ID: "u1", Name: "Grace"}))

	reloaded := NewStore(NewSQLKV(dbh))
	require.NoError(t, reloaded.Load(ctx))
	sess, ok := reloaded.Current()
	require.True(t, ok)
	require.Equal(t, "tok-1", sess.Token)
	require.Equal(t, "Grace", sess.User.Name)

	require.NoError(t, reloaded.Clear(ctx))
	again := NewStore(NewSQLKV(dbh))
	require.NoError(t, again.Load(ctx))
	_, ok = again.Current()
	require.False(t, ok)
}

func TestSealedKV_EncryptsAtRest(t *testing.T) {
	ctx := context.Background()
	raw := NewMemoryKV()
	st := NewStore(NewSealedKV(raw, "correct horse"))
	require.NoError(t, st.Set(ctx, "opaque-token", Profile{ID: "u1", Email: "a@example.com"}))

	stored, err := raw.Get(ctx, keyToken)
	require.NoError(t, err)
	require.NotContains(t, stored, "opaque-token")

	again := NewStore(NewSealedKV(raw, "correct horse"))
	require.NoError(t, again.Load(ctx))
	require.Equal(t, "opaque-token", again.Token())
	require.Equal(t, "u1", again.UserID())
}

func TestSealedKV_WrongSecretDropsSession(t *testing.T) {
	ctx := context.Background()
	raw := NewMemoryKV()
	require.NoError(t, NewStore(NewSealedKV(raw, "one")).Set(ctx, "opaque-token", Profile{ID: "u1"}))

	st := NewStore(NewSealedKV(raw, "two"))
	require.NoError(t, st.Load(ctx))
	require.Empty(t, st.Token())
}

func TestSealedKV_ReadsPlaintextWrittenBefore(t *testing.T) {
	ctx := context.Background()
	raw := NewMemoryKV()
	require.NoError(t, raw.Set(ctx, keyToken, "plain-token"))

	st := NewStore(NewSealedKV(raw, "k"))
	require.NoError(t, st.Load(ctx))
	require.Equal(t, "plain-token", st.Token())
}
