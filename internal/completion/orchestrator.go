package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mind-engage/mindengage-learner/internal/backend"
	"github.com/mind-engage/mindengage-learner/internal/journal"
	"github.com/mind-engage/mindengage-learner/internal/quiz"
	"github.com/mind-engage/mindengage-learner/internal/training"
)

// ErrProgressUnknown is returned instead of a decision when the current
// progress carries a fault status.
var ErrProgressUnknown = errors.New("progress cannot be determined")

type Phase int

const (
	PhaseOptimistic Phase = iota // local result only, server has not answered
	PhaseConfirmed
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseOptimistic:
		return "optimistic"
	case PhaseConfirmed:
		return "confirmed"
	case PhaseFailed:
		return "failed"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

type Clock func() time.Time

type Backend interface {
	SubmitQuiz(ctx context.Context, trainingID, quizID string, answers map[string]training.Answer) (backend.SubmitAck, error)
	GetQuizStatus(ctx context.Context, trainingID string) (training.QuizStatusReport, error)
}

type ProgressTracker interface {
	Fetch(ctx context.Context, trainingID, userID string) training.Progress
	Update(ctx context.Context, trainingID, userID string, upd backend.ProgressUpdate) (training.Progress, error)
}

type Journal interface {
	Record(ctx context.Context, typ, key string, payload any) error
}

// Outcome is the two-phase state of one completion attempt. Result stays set
// in every phase so the local score can always be shown.
type Outcome struct {
	Phase        Phase
	Result       *quiz.Result
	Ack          *backend.SubmitAck
	Progress     training.Progress // last normalized progress; zero if never fetched
	Report       training.QuizStatusReport
	Decision     training.Status
	UpdateIssued bool
	Err          error
}

// DisplayStatus is the status to show. QUIZZES_PENDING exists only here and
// a COMPLETED training is never shown as anything else.
func (o Outcome) DisplayStatus() training.Status {
	switch {
	case o.Progress.Status == training.StatusCompleted:
		return training.StatusCompleted
	case o.Decision == training.StatusQuizzesPending:
		return training.StatusQuizzesPending
	}
	return o.Progress.Status
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	w := struct {
		Phase         Phase                     `json:"phase"`
		Result        *quiz.Result              `json:"result,omitempty"`
		Ack           *backend.SubmitAck        `json:"ack,omitempty"`
		Progress      training.Progress         `json:"progress"`
		Report        training.QuizStatusReport `json:"quizStatus"`
		Decision      training.Status           `json:"decision,omitempty"`
		DisplayStatus training.Status           `json:"displayStatus,omitempty"`
		UpdateIssued  bool                      `json:"updateIssued"`
		Error         string                    `json:"error,omitempty"`
	}{
		Phase:         o.Phase,
		Result:        o.Result,
		Ack:           o.Ack,
		Progress:      o.Progress,
		Report:        o.Report,
		Decision:      o.Decision,
		DisplayStatus: o.DisplayStatus(),
		UpdateIssued:  o.UpdateIssued,
	}
	if o.Err != nil {
		w.Error = o.Err.Error()
	}
	return json.Marshal(w)
}

type Orchestrator struct {
	Backend Backend
	Tracker ProgressTracker
	Journal Journal // optional
	Now     Clock
}

func New(be Backend, tr ProgressTracker, j Journal, now Clock) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{Backend: be, Tracker: tr, Journal: j, Now: now}
}

// Reconcile decides the training status from current progress and the quiz
// report. Only a COMPLETED decision over a not-yet-completed training writes
// to the backend, exactly once, followed by a re-fetch. There is no retry.
func (o *Orchestrator) Reconcile(ctx context.Context, trainingID, userID string, current training.Progress) Outcome {
	out := Outcome{Phase: PhaseConfirmed, Progress: current}
	if current.Status.IsFault() {
		out.Phase = PhaseFailed
		out.Err = fmt.Errorf("%w: %s", ErrProgressUnknown, current.Status)
		return out
	}
	report, err := o.Backend.GetQuizStatus(ctx, trainingID)
	if err != nil {
		out.Phase = PhaseFailed
		out.Err = fmt.Errorf("quiz status: %w", err)
		return out
	}
	out.Report = report.Reconciled()
	out.Decision = Decide(current.IsContentCompleted(), out.Report)
	key := journal.Key(trainingID, userID)

	switch out.Decision {
	case training.StatusQuizzesPending:
		o.record(ctx, journal.QuizzesPending, key, map[string]any{
			"totalQuizzes": out.Report.TotalQuizzes,
		})
	case training.StatusCompleted:
		if current.Status == training.StatusCompleted {
			return out
		}
		out.UpdateIssued = true
		updated, err := o.Tracker.Update(ctx, trainingID, userID, backend.CompletionUpdate())
		if err != nil {
			out.Phase = PhaseFailed
			out.Err = fmt.Errorf("mark training complete: %w", err)
			o.record(ctx, journal.CompletionFailed, key, map[string]any{"error": err.Error()})
			return out
		}
		out.Progress = updated
		if refetched := o.Tracker.Fetch(ctx, trainingID, userID); !refetched.Status.IsFault() {
			out.Progress = refetched
		}
		o.record(ctx, journal.CompletionConfirmed, key, map[string]any{
			"status":   out.Progress.Status,
			"progress": out.Progress.ProgressPercentage,
		})
	}
	return out
}

// CompleteAttempt posts a finished attempt and, once the server confirms it,
// reconciles training completion. A failed submission keeps the local result
// and never triggers a completion update.
func (o *Orchestrator) CompleteAttempt(ctx context.Context, trainingID, userID, quizID string, answers map[string]training.Answer, result quiz.Result) Outcome {
	res := result
	out := Outcome{Phase: PhaseOptimistic, Result: &res}
	key := journal.Key(trainingID, userID)
	o.record(ctx, journal.QuizSubmitted, key, map[string]any{
		"quizId":        quizID,
		"score":         res.Score,
		"passed":        res.Passed,
		"autoSubmitted": res.AutoSubmitted,
		"submittedAt":   res.SubmittedAt,
	})

	ack, err := o.Backend.SubmitQuiz(ctx, trainingID, quizID, answers)
	if err != nil {
		out.Phase = PhaseFailed
		out.Err = fmt.Errorf("submit quiz: %w", err)
		o.record(ctx, journal.AttemptFailed, key, map[string]any{"quizId": quizID, "error": err.Error()})
		return out
	}
	out.Phase = PhaseConfirmed
	out.Ack = &ack
	o.record(ctx, journal.AttemptConfirmed, key, map[string]any{"quizId": quizID, "attemptId": ack.AttemptID})

	rec := o.Reconcile(ctx, trainingID, userID, o.Tracker.Fetch(ctx, trainingID, userID))
	out.Progress = rec.Progress
	out.Report = rec.Report
	out.Decision = rec.Decision
	out.UpdateIssued = rec.UpdateIssued
	if rec.Phase == PhaseFailed {
		out.Phase = PhaseFailed
		out.Err = rec.Err
	}
	return out
}

func (o *Orchestrator) record(ctx context.Context, typ, key string, payload map[string]any) {
	if o.Journal == nil {
		return
	}
	payload["at"] = o.Now().UTC()
	if err := o.Journal.Record(ctx, typ, key, payload); err != nil {
		log.Printf("completion: journal %s: %v", typ, err)
	}
}
