package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/mindengage-learner/internal/auth/middleware"
	"github.com/mind-engage/mindengage-learner/internal/training"
)

type TrainingGetter interface {
	GetTraining(ctx context.Context, trainingID string) (training.Training, error)
}

// POST /trainings/{trainingID}/quizzes/{quizID}/attempts
func StartAttemptHandler(be TrainingGetter, as *Attempts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tid := chi.URLParam(r, "trainingID")
		t, err := be.GetTraining(r.Context(), tid)
		if err != nil {
			writeBackendError(w, err)
			return
		}
		q, ok := t.Quiz(chi.URLParam(r, "quizID"))
		if !ok {
			http.Error(w, "quiz not found", http.StatusNotFound)
			return
		}
		a := as.Start(tid, auth.SubjectFromContext(r.Context()), q)
		writeJSON(w, http.StatusCreated, a.View())
	}
}

// attemptFrom resolves {attemptID} for the signed-in user, writing 404 on miss.
func attemptFrom(as *Attempts, w http.ResponseWriter, r *http.Request) (*Attempt, bool) {
	a, err := as.Get(chi.URLParam(r, "attemptID"), auth.SubjectFromContext(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return nil, false
	}
	return a, true
}

// GET /attempts/{attemptID}
func GetAttemptHandler(as *Attempts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := attemptFrom(as, w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, a.View())
	}
}

// PUT /attempts/{attemptID}/answers/{questionID}  { "value": "B" | ["A","C"] | true }
//
// For multi-select questions a single value toggles membership and a list
// replaces the selection.
func SetAnswerHandler(as *Attempts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := attemptFrom(as, w, r)
		if !ok {
			return
		}
		var req struct {
			Value any `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		ans, ok := training.AnswerFromAny(req.Value)
		if !ok {
			http.Error(w, "value must be a string, number, boolean or list", http.StatusBadRequest)
			return
		}
		a.Engine.SetAnswer(chi.URLParam(r, "questionID"), ans)
		writeJSON(w, http.StatusOK, a.View())
	}
}

// POST /attempts/{attemptID}/navigate  { "action": "next" | "previous" | "goto", "index": 2 }
func NavigateHandler(as *Attempts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := attemptFrom(as, w, r)
		if !ok {
			return
		}
		var req struct {
			Action string `json:"action"`
			Index  int    `json:"index"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		switch req.Action {
		case "next":
			a.Engine.Next()
		case "previous", "prev":
			a.Engine.Previous()
		case "goto":
			a.Engine.GoTo(req.Index)
		default:
			http.Error(w, "action must be next, previous or goto", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, a.View())
	}
}

// POST /attempts/{attemptID}/submit
//
// Scores locally, then posts to the LMS and reconciles completion before
// responding. Submitting a completed attempt returns its current view.
func SubmitAttemptHandler(as *Attempts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := attemptFrom(as, w, r)
		if !ok {
			return
		}
		a.Engine.Submit()
		writeJSON(w, http.StatusOK, a.View())
	}
}

// POST /attempts/{attemptID}/retake
func RetakeHandler(as *Attempts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := attemptFrom(as, w, r)
		if !ok {
			return
		}
		if err := as.Retake(a); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, http.StatusOK, a.View())
	}
}
