package progress

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/mind-engage/mindengage-learner/internal/backend"
	"github.com/mind-engage/mindengage-learner/internal/training"
)

var (
	ErrInvalidParams = errors.New("training id required")
	ErrNoUser        = errors.New("no user")
)

// Backend is the subset of the LMS API the tracker reads and writes.
// *backend.Client satisfies it.
type Backend interface {
	GetTraining(ctx context.Context, trainingID string) (training.Training, error)
	GetProgress(ctx context.Context, trainingID, userID string) (map[string]any, error)
	UpdateProgress(ctx context.Context, trainingID, userID string, upd backend.ProgressUpdate) (map[string]any, error)
	GetQuizStatus(ctx context.Context, trainingID string) (training.QuizStatusReport, error)
}

// UserSource resolves the signed-in user when callers pass no explicit id.
type UserSource interface {
	UserID() string
}

type Tracker struct {
	Backend Backend
	Session UserSource // optional
}

func (t *Tracker) resolve(trainingID, userID string) (string, string, training.Status) {
	trainingID = strings.TrimSpace(trainingID)
	if trainingID == "" {
		return "", "", training.StatusInvalidParams
	}
	userID = strings.TrimSpace(userID)
	if userID == "" && t.Session != nil {
		userID = t.Session.UserID()
	}
	if userID == "" {
		return "", "", training.StatusNoUser
	}
	return trainingID, userID, ""
}

// Fetch never fails. When progress cannot be determined the returned value
// carries a fault status and zero percentage.
func (t *Tracker) Fetch(ctx context.Context, trainingID, userID string) training.Progress {
	tid, uid, fault := t.resolve(trainingID, userID)
	if fault != "" {
		return training.Fault(fault)
	}
	raw, err := t.Backend.GetProgress(ctx, tid, uid)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			return training.Fault(training.StatusNoUser)
		}
		log.Printf("progress: fetch %s/%s: %v", tid, uid, err)
		return training.Fault(training.StatusError)
	}
	return Normalize(raw)
}

// Update sends upd and returns the normalized response. Unlike Fetch it
// reports failures so callers can surface which write went wrong.
func (t *Tracker) Update(ctx context.Context, trainingID, userID string, upd backend.ProgressUpdate) (training.Progress, error) {
	tid, uid, fault := t.resolve(trainingID, userID)
	switch fault {
	case training.StatusInvalidParams:
		return training.Progress{}, ErrInvalidParams
	case training.StatusNoUser:
		return training.Progress{}, ErrNoUser
	}
	raw, err := t.Backend.UpdateProgress(ctx, tid, uid, upd)
	if err != nil {
		return training.Progress{}, err
	}
	return Normalize(raw), nil
}

// MarkContentComplete records one content item as done. The backend owns
// the resulting percentage.
func (t *Tracker) MarkContentComplete(ctx context.Context, trainingID, userID, contentID string) (training.Progress, error) {
	contentID = strings.TrimSpace(contentID)
	if contentID == "" {
		return training.Progress{}, errors.New("content id required")
	}
	return t.Update(ctx, trainingID, userID, backend.ProgressUpdate{ContentID: contentID})
}
