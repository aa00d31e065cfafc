package http

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-learner/internal/completion"
	"github.com/mind-engage/mindengage-learner/internal/quiz"
	"github.com/mind-engage/mindengage-learner/internal/training"
)

var (
	ErrAttemptNotFound   = errors.New("attempt not found")
	ErrRetakeNotAllowed  = errors.New("retake is only allowed after a failed attempt")
	ErrSubmissionPending = errors.New("the previous submission is still being confirmed")
)

// Settled attempts are kept this long for the UI to read their outcome;
// unsubmitted ones are dropped after maxAttemptAge.
const (
	defaultRetention = time.Hour
	maxAttemptAge    = 24 * time.Hour
)

// Completer posts a finished attempt; *completion.Orchestrator satisfies it.
type Completer interface {
	CompleteAttempt(ctx context.Context, trainingID, userID, quizID string, answers map[string]training.Answer, result quiz.Result) completion.Outcome
}

// Attempt is one in-memory quiz run owned by one user.
type Attempt struct {
	ID         string
	TrainingID string
	UserID     string
	QuizID     string
	Title      string
	Engine     *quiz.Engine

	mu        sync.Mutex
	outcome   *completion.Outcome
	startedAt time.Time
	settledAt time.Time
	stop      context.CancelFunc
}

func (a *Attempt) Outcome() (completion.Outcome, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.outcome == nil {
		return completion.Outcome{}, false
	}
	return *a.outcome, true
}

// AttemptView is what the UI renders. Answer keys appear only inside the
// result, which exists only once the attempt is completed.
type AttemptView struct {
	ID         string              `json:"id"`
	TrainingID string              `json:"trainingId"`
	QuizID     string              `json:"quizId"`
	Title      string              `json:"title"`
	Attempt    quiz.Snapshot       `json:"attempt"`
	Phase      string              `json:"phase,omitempty"`
	Outcome    *completion.Outcome `json:"outcome,omitempty"`
}

func (a *Attempt) View() AttemptView {
	v := AttemptView{ID: a.ID, TrainingID: a.TrainingID, QuizID: a.QuizID, Title: a.Title, Attempt: a.Engine.Snapshot()}
	if out, ok := a.Outcome(); ok {
		v.Outcome = &out
		v.Phase = out.Phase.String()
	} else if v.Attempt.State == quiz.StateCompleted.String() {
		// submitted locally, server has not answered yet
		v.Phase = completion.PhaseOptimistic.String()
	}
	return v
}

// Attempts is the registry of live attempts, keyed by a random id.
type Attempts struct {
	completer     Completer
	submitTimeout time.Duration
	retention     time.Duration
	now           func() time.Time

	mu   sync.Mutex
	byID map[string]*Attempt
}

func NewAttempts(c Completer, submitTimeout time.Duration) *Attempts {
	if submitTimeout <= 0 {
		submitTimeout = 30 * time.Second
	}
	return &Attempts{
		completer:     c,
		submitTimeout: submitTimeout,
		retention:     defaultRetention,
		now:           time.Now,
		byID:          map[string]*Attempt{},
	}
}

// Start creates an attempt and, for timed quizzes, its countdown. Timer
// expiry submits through the same path as a manual submit.
func (as *Attempts) Start(trainingID, userID string, q training.Quiz) *Attempt {
	a := &Attempt{
		ID:         uuid.NewString(),
		TrainingID: trainingID,
		UserID:     userID,
		QuizID:     q.ID,
		Title:      q.Title,
		startedAt:  as.now(),
	}
	a.Engine = quiz.New(q, quiz.OnComplete(func(res quiz.Result, answers map[string]training.Answer) {
		as.complete(a, res, answers)
	}))
	as.startTimer(a)

	as.mu.Lock()
	as.pruneLocked()
	as.byID[a.ID] = a
	as.mu.Unlock()
	return a
}

// pruneLocked drops attempts whose outcome has been available for the
// retention period, and attempts that were never submitted within
// maxAttemptAge. as.mu must be held.
func (as *Attempts) pruneLocked() {
	now := as.now()
	for id, a := range as.byID {
		a.mu.Lock()
		expired := (a.outcome != nil && now.Sub(a.settledAt) > as.retention) ||
			(a.outcome == nil && now.Sub(a.startedAt) > maxAttemptAge)
		if expired && a.stop != nil {
			a.stop()
		}
		a.mu.Unlock()
		if expired {
			delete(as.byID, id)
		}
	}
}

// Get returns the attempt if it exists and belongs to userID.
func (as *Attempts) Get(id, userID string) (*Attempt, error) {
	as.mu.Lock()
	a, ok := as.byID[id]
	as.mu.Unlock()
	if !ok || a.UserID != userID {
		return nil, ErrAttemptNotFound
	}
	return a, nil
}

// Retake resets a failed attempt in place and restarts its timer. It is
// refused until the previous submission has an outcome, so a late outcome
// can never land on the new run.
func (as *Attempts) Retake(a *Attempt) error {
	if a.Engine.State() != quiz.StateCompleted {
		return ErrRetakeNotAllowed
	}
	a.mu.Lock()
	if a.outcome == nil {
		a.mu.Unlock()
		return ErrSubmissionPending
	}
	if !a.Engine.Reset() {
		a.mu.Unlock()
		return ErrRetakeNotAllowed
	}
	a.outcome = nil
	a.startedAt = as.now()
	a.mu.Unlock()
	as.startTimer(a)
	return nil
}

// Close stops every running timer.
func (as *Attempts) Close() {
	as.mu.Lock()
	defer as.mu.Unlock()
	for _, a := range as.byID {
		a.mu.Lock()
		if a.stop != nil {
			a.stop()
		}
		a.mu.Unlock()
	}
}

func (as *Attempts) startTimer(a *Attempt) {
	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	if a.stop != nil {
		a.stop()
	}
	a.stop = cancel
	a.mu.Unlock()
	go a.Engine.RunTimer(ctx)
}

func (as *Attempts) complete(a *Attempt, res quiz.Result, answers map[string]training.Answer) {
	ctx, cancel := context.WithTimeout(context.Background(), as.submitTimeout)
	defer cancel()
	out := as.completer.CompleteAttempt(ctx, a.TrainingID, a.UserID, a.QuizID, answers, res)
	if out.Err != nil {
		log.Printf("attempt %s: %v", a.ID, out.Err)
	}
	a.mu.Lock()
	a.outcome = &out
	a.settledAt = as.now()
	a.mu.Unlock()
}
