package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	auth "github.com/mind-engage/mindengage-learner/internal/auth/middleware"
	"github.com/mind-engage/mindengage-learner/internal/bootcamp"
	"github.com/mind-engage/mindengage-learner/internal/journal"
	"github.com/mind-engage/mindengage-learner/internal/progress"
	"github.com/mind-engage/mindengage-learner/internal/rbac"
	"github.com/mind-engage/mindengage-learner/internal/session"
)

// LMS is everything the gateway asks of the LMS API; *backend.Client
// satisfies it.
type LMS interface {
	Authenticator
	TrainingGetter
	bootcamp.Backend
}

type Deps struct {
	LMS         LMS
	Sessions    *session.Store
	Tracker     *progress.Tracker
	Reconciler  Reconciler
	Attempts    *Attempts
	Journal     *journal.Repo // nil when the journal is disabled
	Verifier    *auth.Verifier
	CORSOrigins []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", LoginHandler(d.LMS, d.Sessions))
	r.Post("/auth/logout", LogoutHandler(d.Sessions))

	// Reads tolerate a missing session: the LMS call goes out without a
	// bearer and progress resolves to NO_USER.
	r.Group(func(pub chi.Router) {
		pub.Use(auth.OptionalSession(d.Sessions, d.Verifier))

		pub.With(rbac.Require(rbac.PermTrainingView)).
			Get("/trainings/{trainingID}", TrainingViewHandler(d.Tracker))
		pub.With(rbac.Require(rbac.PermProgressView)).
			Get("/trainings/{trainingID}/progress", ProgressHandler(d.Tracker))
		pub.With(rbac.Require(rbac.PermTrainingView)).
			Get("/bootcamps/{bootcampID}/progress", BootcampProgressHandler(d.LMS, d.Tracker))
	})

	// Writes, attempts and the journal are per user (session → role in
	// context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSession(d.Sessions, d.Verifier))

		pr.Get("/me", MeHandler())

		pr.With(rbac.Require(rbac.PermProgressUpdate)).
			Post("/trainings/{trainingID}/content/{contentID}/complete", CompleteContentHandler(d.Tracker, d.Reconciler))
		pr.With(rbac.Require(rbac.PermProgressUpdate)).
			Post("/trainings/{trainingID}/reconcile", ReconcileHandler(d.Tracker, d.Reconciler))
		pr.With(rbac.Require(rbac.PermQuizTake)).
			Post("/trainings/{trainingID}/quizzes/{quizID}/attempts", StartAttemptHandler(d.LMS, d.Attempts))
		if d.Journal != nil {
			pr.With(rbac.RequireAny(rbac.PermJournalView, rbac.PermProgressView)).
				Get("/trainings/{trainingID}/journal", JournalHandler(d.Journal))
		}

		pr.Route("/attempts/{attemptID}", func(ar chi.Router) {
			ar.Use(rbac.Require(rbac.PermQuizTake))
			ar.Get("/", GetAttemptHandler(d.Attempts))
			ar.Put("/answers/{questionID}", SetAnswerHandler(d.Attempts))
			ar.Post("/navigate", NavigateHandler(d.Attempts))
			ar.Post("/submit", SubmitAttemptHandler(d.Attempts))
			ar.Post("/retake", RetakeHandler(d.Attempts))
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	return r
}
