package progress

import (
	"context"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-learner/internal/training"
)

// View is everything the training page shows. Each fetch fills its own
// field; only a failed training fetch fails the whole view.
type View struct {
	Training      training.Training         `json:"training"`
	Progress      training.Progress         `json:"progress"`
	QuizStatus    training.QuizStatusReport `json:"quizStatus"`
	QuizStatusErr string                    `json:"quizStatusError,omitempty"`
}

// ContentCompleted reports per content item whether the user finished it,
// in training order.
func (v View) ContentCompleted() map[string]bool {
	out := make(map[string]bool, len(v.Training.Content))
	for _, c := range v.Training.Content {
		out[c.ID] = v.Progress.HasCompletedContent(c.ID)
	}
	return out
}

func (t *Tracker) LoadView(ctx context.Context, trainingID, userID string) (View, error) {
	if strings.TrimSpace(trainingID) == "" {
		return View{}, ErrInvalidParams
	}
	var v View
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tr, err := t.Backend.GetTraining(gctx, trainingID)
		if err != nil {
			return err
		}
		v.Training = tr
		return nil
	})
	g.Go(func() error {
		v.Progress = t.Fetch(gctx, trainingID, userID)
		return nil
	})
	g.Go(func() error {
		rep, err := t.Backend.GetQuizStatus(gctx, trainingID)
		if err != nil {
			log.Printf("progress: quiz status %s: %v", trainingID, err)
			v.QuizStatusErr = err.Error()
			return nil
		}
		v.QuizStatus = rep.Reconciled()
		return nil
	})
	if err := g.Wait(); err != nil {
		return View{}, err
	}
	if v.QuizStatus.QuizStatuses == nil {
		v.QuizStatus.QuizStatuses = []training.QuizStatus{}
	}
	return v, nil
}
