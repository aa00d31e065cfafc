package bootcamp

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-learner/internal/training"
)

// Summary aggregates a learner's progress over an ordered set of trainings.
type Summary struct {
	Percentage int  `json:"percentage"`
	Completed  bool `json:"completed"`
	Total      int  `json:"total"`
	Done       int  `json:"done"`
	Unknown    int  `json:"unknown"` // trainings whose progress could not be determined
}

// Aggregate averages the known percentages. Fault progresses are counted as
// Unknown and excluded from the average; a bootcamp with any unknown
// training is never reported as completed.
func Aggregate(progresses []training.Progress) Summary {
	s := Summary{Total: len(progresses)}
	sum, known := 0, 0
	for _, p := range progresses {
		if p.Status.IsFault() {
			s.Unknown++
			continue
		}
		known++
		pct := p.ProgressPercentage
		if p.Completed {
			pct = 100
			s.Done++
		}
		sum += pct
	}
	if known > 0 {
		s.Percentage = int(math.Round(float64(sum) / float64(known)))
	}
	s.Completed = s.Total > 0 && s.Done == s.Total
	return s
}

type Backend interface {
	GetBootcamp(ctx context.Context, bootcampID string) (training.Bootcamp, error)
}

type ProgressFetcher interface {
	Fetch(ctx context.Context, trainingID, userID string) training.Progress
}

// Entry is one training's row in the bootcamp view, in bootcamp order.
type Entry struct {
	TrainingID string            `json:"trainingId"`
	Progress   training.Progress `json:"progress"`
}

type View struct {
	Bootcamp training.Bootcamp `json:"bootcamp"`
	Entries  []Entry           `json:"entries"`
	Summary  Summary           `json:"summary"`
}

// Load fetches the bootcamp and then every training's progress concurrently.
// Per-training failures surface as fault entries, not as an error.
func Load(ctx context.Context, be Backend, tracker ProgressFetcher, bootcampID, userID string) (View, error) {
	bc, err := be.GetBootcamp(ctx, bootcampID)
	if err != nil {
		return View{}, err
	}
	entries := make([]Entry, len(bc.TrainingIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, id := range bc.TrainingIDs {
		g.Go(func() error {
			entries[i] = Entry{TrainingID: id, Progress: tracker.Fetch(gctx, id, userID)}
			return nil
		})
	}
	_ = g.Wait()

	ps := make([]training.Progress, len(entries))
	for i, e := range entries {
		ps[i] = e.Progress
	}
	return View{Bootcamp: bc, Entries: entries, Summary: Aggregate(ps)}, nil
}
