package progress

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mind-engage/mindengage-learner/internal/backend"
	"github.com/mind-engage/mindengage-learner/internal/training"
)

type fakeBackend struct {
	mu sync.Mutex

	training    training.Training
	trainingErr error
	progress    map[string]any
	progressErr error
	status      training.QuizStatusReport
	statusErr   error
	updateErr   error

	progressCalls int
	updates       []backend.ProgressUpdate
}

func (f *fakeBackend) GetTraining(ctx context.Context, id string) (training.Training, error) {
	return f.training, f.trainingErr
}

func (f *fakeBackend) GetProgress(ctx context.Context, tid, uid string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progressCalls++
	return f.progress, f.progressErr
}

func (f *fakeBackend) UpdateProgress(ctx context.Context, tid, uid string, upd backend.ProgressUpdate) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, upd)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.progress, nil
}

func (f *fakeBackend) GetQuizStatus(ctx context.Context, tid string) (training.QuizStatusReport, error) {
	return f.status, f.statusErr
}

type fixedUser string

func (u fixedUser) UserID() string { return string(u) }

func TestFetch_Sentinels(t *testing.T) {
	ctx := context.Background()
	fb := &fakeBackend{progress: map[string]any{"progress": 10.0}}

	tr := &Tracker{Backend: fb}
	if got := tr.Fetch(ctx, "", "u1").Status; got != training.StatusInvalidParams {
		t.Fatalf("empty training: %q", got)
	}
	if got := tr.Fetch(ctx, "t1", "").Status; got != training.StatusNoUser {
		t.Fatalf("no user: %q", got)
	}
	if fb.progressCalls != 0 {
		t.Fatalf("no backend call expected before validation passes")
	}

	tr.Session = fixedUser("u-from-session")
	if got := tr.Fetch(ctx, "t1", ""); got.ProgressPercentage != 10 {
		t.Fatalf("session user fallback: %+v", got)
	}

	fb.progressErr = backend.ErrUnauthorized
	if got := tr.Fetch(ctx, "t1", "u1").Status; got != training.StatusNoUser {
		t.Fatalf("401: %q", got)
	}

	fb.progressErr = &backend.StatusError{Code: 500}
	got := tr.Fetch(ctx, "t1", "u1")
	if got.Status != training.StatusError || got.ProgressPercentage != 0 || got.Completed {
		t.Fatalf("500: %+v", got)
	}
	if !got.Status.IsFault() {
		t.Fatalf("ERROR must be a fault")
	}
}

func TestUpdate_ReportsErrors(t *testing.T) {
	ctx := context.Background()
	fb := &fakeBackend{updateErr: errors.New("boom")}
	tr := &Tracker{Backend: fb}

	if _, err := tr.Update(ctx, "", "u", backend.ProgressUpdate{}); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("want ErrInvalidParams, got %v", err)
	}
	if _, err := tr.Update(ctx, "t", "", backend.ProgressUpdate{}); !errors.Is(err, ErrNoUser) {
		t.Fatalf("want ErrNoUser, got %v", err)
	}
	if _, err := tr.MarkContentComplete(ctx, "t", "u", "c1"); err == nil {
		t.Fatalf("backend failure must surface")
	}
	if len(fb.updates) != 1 || fb.updates[0].ContentID != "c1" {
		t.Fatalf("updates = %+v", fb.updates)
	}
	if _, err := tr.MarkContentComplete(ctx, "t", "u", " "); err == nil {
		t.Fatalf("empty content id must fail")
	}
}

func TestLoadView_QuizStatusFailureIsIsolated(t *testing.T) {
	fb := &fakeBackend{
		training:  training.Training{ID: "t1", Content: []training.ContentItem{{ID: "a"}, {ID: "b"}}},
		progress:  map[string]any{"progress": 50.0, "completedItems": []any{"a"}},
		statusErr: &backend.StatusError{Code: 503},
	}
	tr := &Tracker{Backend: fb}
	v, err := tr.LoadView(context.Background(), "t1", "u1")
	if err != nil {
		t.Fatalf("LoadView: %v", err)
	}
	if v.Training.ID != "t1" || v.Progress.ProgressPercentage != 50 {
		t.Fatalf("view = %+v", v)
	}
	if v.QuizStatusErr == "" || len(v.QuizStatus.QuizStatuses) != 0 {
		t.Fatalf("quiz status must be empty with error recorded: %+v", v.QuizStatus)
	}
	done := v.ContentCompleted()
	if !done["a"] || done["b"] {
		t.Fatalf("content completed = %v", done)
	}
}

func TestLoadView_TrainingFailureFailsView(t *testing.T) {
	fb := &fakeBackend{trainingErr: &backend.StatusError{Code: 404}}
	tr := &Tracker{Backend: fb}
	if _, err := tr.LoadView(context.Background(), "t1", "u1"); backend.StatusCode(err) != 404 {
		t.Fatalf("want 404, got %v", err)
	}
	if _, err := tr.LoadView(context.Background(), "", "u1"); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("want ErrInvalidParams, got %v", err)
	}
}

func TestLoadView_ReconcilesQuizAggregate(t *testing.T) {
	fb := &fakeBackend{
		training: training.Training{ID: "t1"},
		status: training.QuizStatusReport{
			QuizStatuses: []training.QuizStatus{{QuizID: "q1", Passed: true}, {QuizID: "q2"}},
			AllPassed:    true,
		},
	}
	v, err := (&Tracker{Backend: fb}).LoadView(context.Background(), "t1", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if v.QuizStatus.AllPassed || v.QuizStatus.TotalQuizzes != 2 {
		t.Fatalf("report = %+v", v.QuizStatus)
	}
}
