package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-learner/internal/training"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestClient_SendsBearerWhenPresent(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "/api/trainings/t-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id": 1, "title": "Onboarding", "content": [{"id": 10, "title": "Welcome"}],
			"quizzes": [{"id": "qz", "title": "Check", "passing_score": 80, "timeLimit": 5,
			"questions": [{"id": "q1", "text": "Pick", "type": "multiple_choice", "options": ["A","B"], "correctAnswer": ["A","B"], "points": 3}]}]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/api/"}, staticToken("tok-123"))
	tr, err := c.GetTraining(context.Background(), "t-1")
	require.NoError(t, err)
	require.Equal(t, "Bearer tok-123", gotAuth)
	require.Equal(t, "1", tr.ID)
	require.Len(t, tr.Content, 1)
	require.Equal(t, "10", tr.Content[0].ID)

	qz, ok := tr.Quiz("qz")
	require.True(t, ok)
	require.Equal(t, 80, qz.EffectivePassingScore())
	require.Equal(t, 5, qz.TimeLimit)
	require.Len(t, qz.Questions, 1)
	require.Equal(t, training.KindMultipleChoice, qz.Questions[0].Kind())
	require.True(t, qz.Questions[0].MultiSelect())
}

func TestClient_MissingTokenStillSends(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		require.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"quizStatuses": [], "allPassed": true, "totalQuizzes": 0}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, staticToken(""))
	rep, err := c.GetQuizStatus(context.Background(), "t-1")
	require.NoError(t, err)
	require.True(t, called)
	require.True(t, rep.AllPassed)
}

func TestClient_UnauthorizedRunsHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired", http.StatusUnauthorized)
	}))
	defer srv.Close()

	cleared := 0
	c := New(Config{BaseURL: srv.URL}, staticToken("stale"), OnUnauthorized(func() { cleared++ }))
	_, err := c.GetProgress(context.Background(), "t-1", "u-1")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, 1, cleared)
	require.Equal(t, http.StatusUnauthorized, StatusCode(err))
}

func TestClient_StatusErrorCarriesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "training not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, nil)
	_, err := c.GetTraining(context.Background(), "missing")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusNotFound, se.Code)
	require.Contains(t, se.Error(), "training not found")
}

func TestClient_UpdateProgressBody(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/trainings/t-1/progress/u-1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"status": "COMPLETED", "progress": 100, "completed": true}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, staticToken("t"))
	raw, err := c.UpdateProgress(context.Background(), "t-1", "u-1", CompletionUpdate())
	require.NoError(t, err)
	require.Equal(t, "COMPLETED", raw["status"])
	require.Equal(t, map[string]any{"completed": true, "progress": float64(100), "status": "COMPLETED"}, body)
}

func TestClient_SubmitQuizEncodesAnswers(t *testing.T) {
	var body struct {
		Answers map[string]any `json:"answers"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/trainings/t-1/quizzes/qz/submit", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"attemptId": "a-9", "score": 80, "passed": true}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, staticToken("t"))
	ack, err := c.SubmitQuiz(context.Background(), "t-1", "qz", map[string]training.Answer{
		"q1": training.Single("A"),
		"q2": training.Multi("B", "C"),
	})
	require.NoError(t, err)
	require.Equal(t, "a-9", ack.AttemptID)
	require.Equal(t, "A", body.Answers["q1"])
	require.Equal(t, []any{"B", "C"}, body.Answers["q2"])
}

func TestClient_LoginAcceptsTokenVariants(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token": "abc", "user": {"id": 5, "email": "e@example.com", "role": "EMPLOYEE"}}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, nil)
	res, err := c.Login(context.Background(), "e@example.com", "pw")
	require.NoError(t, err)
	require.Equal(t, "abc", res.Token)
	require.Equal(t, "5", res.User.ID)
	require.Equal(t, "employee", res.User.Role)
}
