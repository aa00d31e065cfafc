package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/mindengage-learner/internal/auth/middleware"
	"github.com/mind-engage/mindengage-learner/internal/bootcamp"
	"github.com/mind-engage/mindengage-learner/internal/completion"
	"github.com/mind-engage/mindengage-learner/internal/journal"
	"github.com/mind-engage/mindengage-learner/internal/progress"
	"github.com/mind-engage/mindengage-learner/internal/training"
)

type Reconciler interface {
	Reconcile(ctx context.Context, trainingID, userID string, current training.Progress) completion.Outcome
}

// GET /trainings/{trainingID}
func TrainingViewHandler(tr *progress.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "trainingID")
		v, err := tr.LoadView(r.Context(), id, auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeBackendError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"training":         v.Training.PublicView(),
			"progress":         v.Progress,
			"quizStatus":       v.QuizStatus,
			"quizStatusError":  v.QuizStatusErr,
			"contentCompleted": v.ContentCompleted(),
		})
	}
}

// GET /trainings/{trainingID}/progress
//
// Fault statuses are returned as data with 200; the UI must show them as
// "cannot determine progress".
func ProgressHandler(tr *progress.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := tr.Fetch(r.Context(), chi.URLParam(r, "trainingID"), auth.SubjectFromContext(r.Context()))
		writeJSON(w, http.StatusOK, p)
	}
}

// POST /trainings/{trainingID}/content/{contentID}/complete
func CompleteContentHandler(tr *progress.Tracker, rec Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tid := chi.URLParam(r, "trainingID")
		uid := auth.SubjectFromContext(r.Context())
		p, err := tr.MarkContentComplete(r.Context(), tid, uid, chi.URLParam(r, "contentID"))
		if err != nil {
			writeBackendError(w, err)
			return
		}
		if !p.IsContentCompleted() {
			writeJSON(w, http.StatusOK, completion.Outcome{
				Phase:    completion.PhaseConfirmed,
				Progress: p,
				Decision: completion.Decide(false, training.QuizStatusReport{}),
			})
			return
		}
		writeJSON(w, http.StatusOK, rec.Reconcile(r.Context(), tid, uid, p))
	}
}

// POST /trainings/{trainingID}/reconcile
//
// Re-runs the completion decision, the recovery path after a failed update.
func ReconcileHandler(tr *progress.Tracker, rec Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tid := chi.URLParam(r, "trainingID")
		uid := auth.SubjectFromContext(r.Context())
		out := rec.Reconcile(r.Context(), tid, uid, tr.Fetch(r.Context(), tid, uid))
		writeJSON(w, http.StatusOK, out)
	}
}

// GET /bootcamps/{bootcampID}/progress
func BootcampProgressHandler(be bootcamp.Backend, tr *progress.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := bootcamp.Load(r.Context(), be, tr, chi.URLParam(r, "bootcampID"), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeBackendError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// GET /trainings/{trainingID}/journal?limit=N
func JournalHandler(repo *journal.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		key := journal.Key(chi.URLParam(r, "trainingID"), auth.SubjectFromContext(r.Context()))
		evs, err := repo.List(r.Context(), key, limit)
		if err != nil {
			http.Error(w, "journal", http.StatusInternalServerError)
			return
		}
		if evs == nil {
			evs = []journal.Event{}
		}
		writeJSON(w, http.StatusOK, evs)
	}
}
