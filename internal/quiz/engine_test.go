package quiz

import (
	"context"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-learner/internal/training"
)

func intp(v int) *int { return &v }

func twoQuestionQuiz() training.Quiz {
	return training.Quiz{
		ID:    "quiz-1",
		Title: "Security basics",
		Questions: []training.Question{
			{ID: "q1", Text: "Pick B", Points: 10, Body: training.MultipleChoice{Options: []string{"A", "B"}, Correct: training.Single("B")}},
			{ID: "q2", Text: "Sky is blue", Points: 10, Body: training.TrueFalse{Correct: training.Single("true")}},
		},
	}
}

func TestSubmit_ScoresSingleSelect(t *testing.T) {
	e := New(twoQuestionQuiz())
	e.SetAnswer("q1", training.Single("B"))
	e.SetAnswer("q2", training.Single("false"))

	res := e.Submit()
	if res.Score != 50 {
		t.Fatalf("Score = %d, want 50", res.Score)
	}
	if res.Passed {
		t.Fatalf("expected 50 < 70 to fail")
	}
	if res.CorrectAnswersCount != 1 || res.TotalQuestions != 2 || res.TotalPoints != 20 {
		t.Fatalf("unexpected totals: %+v", res)
	}
	if e.State() != StateCompleted {
		t.Fatalf("expected completed state")
	}
}

func TestSubmit_PassingScoreOverride(t *testing.T) {
	q := twoQuestionQuiz()
	q.PassingScore = intp(50)
	e := New(q)
	e.SetAnswer("q1", training.Single("B"))

	if res := e.Submit(); !res.Passed || res.PassingScore != 50 {
		t.Fatalf("expected pass at threshold 50, got %+v", res)
	}
}

func TestSubmit_RoundsScore(t *testing.T) {
	q := training.Quiz{Questions: []training.Question{
		{ID: "a", Points: 1, Body: training.ShortAnswer{Correct: training.Single("x")}},
		{ID: "b", Points: 1, Body: training.ShortAnswer{Correct: training.Single("y")}},
		{ID: "c", Points: 1, Body: training.ShortAnswer{Correct: training.Single("z")}},
	}}
	e := New(q)
	e.SetAnswer("a", training.Single("x"))
	e.SetAnswer("b", training.Single("y"))
	if res := e.Submit(); res.Score != 67 {
		t.Fatalf("Score = %d, want 67", res.Score)
	}
}

func TestSetAnswer_MultiSelectToggles(t *testing.T) {
	q := training.Quiz{Questions: []training.Question{
		{ID: "m", Points: 4, Body: training.MultipleChoice{Options: []string{"A", "B", "C"}, Correct: training.Multi("B", "A")}},
	}}
	e := New(q)
	e.SetAnswer("m", training.Single("A"))
	e.SetAnswer("m", training.Single("C"))
	e.SetAnswer("m", training.Single("B"))
	e.SetAnswer("m", training.Single("C")) // toggles C back off

	got := e.Answers()["m"]
	if !got.IsMulti() || len(got.Values()) != 2 {
		t.Fatalf("answer = %v, want two selected options", got)
	}
	if res := e.Submit(); res.Score != 100 {
		t.Fatalf("expected {A,B} to be correct, got score %d", res.Score)
	}
}

func TestSetAnswer_SubsetIsIncorrect(t *testing.T) {
	q := training.Quiz{Questions: []training.Question{
		{ID: "m", Points: 4, Body: training.MultipleChoice{Options: []string{"A", "B"}, Correct: training.Multi("A", "B")}},
	}}
	e := New(q)
	e.SetAnswer("m", training.Single("A"))
	if res := e.Submit(); res.Score != 0 || res.CorrectAnswersCount != 0 {
		t.Fatalf("expected {A} vs {A,B} to be incorrect, got %+v", res)
	}
}

func TestSetAnswer_UnknownQuestionIsNoop(t *testing.T) {
	e := New(twoQuestionQuiz())
	e.SetAnswer("nope", training.Single("A"))
	if len(e.Answers()) != 0 {
		t.Fatalf("expected no answers recorded")
	}
}

func TestZeroQuestionQuiz(t *testing.T) {
	e := New(training.Quiz{ID: "empty"})
	e.Next()
	e.Previous()
	if e.CurrentIndex() != 0 {
		t.Fatalf("CurrentIndex = %d, want 0", e.CurrentIndex())
	}
	res := e.Submit()
	if res.TotalQuestions != 0 || res.Score != 0 || res.Passed {
		t.Fatalf("unexpected result for empty quiz: %+v", res)
	}

	e2 := New(training.Quiz{ID: "empty", PassingScore: intp(0)})
	if res := e2.Submit(); !res.Passed {
		t.Fatalf("expected pass when passing score is 0")
	}
}

func TestNavigation_Clamps(t *testing.T) {
	e := New(twoQuestionQuiz())
	e.Previous()
	if e.CurrentIndex() != 0 {
		t.Fatalf("Previous at start moved to %d", e.CurrentIndex())
	}
	e.Next()
	e.Next()
	if e.CurrentIndex() != 1 {
		t.Fatalf("Next past end moved to %d", e.CurrentIndex())
	}
	e.GoTo(-5)
	if e.CurrentIndex() != 0 {
		t.Fatalf("GoTo(-5) = %d, want 0", e.CurrentIndex())
	}
	e.GoTo(99)
	if e.CurrentIndex() != 1 {
		t.Fatalf("GoTo(99) = %d, want 1", e.CurrentIndex())
	}
}

func TestTick_AutoSubmitsOnceAtZero(t *testing.T) {
	q := twoQuestionQuiz()
	q.TimeLimit = 1
	completions := 0
	e := New(q, OnComplete(func(Result, map[string]training.Answer) { completions++ }))
	e.SetAnswer("q1", training.Single("B"))

	for i := 0; i < 59; i++ {
		e.Tick()
	}
	if e.State() != StateInProgress {
		t.Fatalf("completed early after 59 ticks")
	}
	if left, limited := e.TimeRemaining(); !limited || left != 1 {
		t.Fatalf("TimeRemaining = %d/%v, want 1/true", left, limited)
	}
	e.Tick()
	if e.State() != StateCompleted {
		t.Fatalf("expected completion after 60 ticks")
	}
	for i := 0; i < 5; i++ {
		e.Tick()
	}
	e.Submit()
	if completions != 1 {
		t.Fatalf("completions = %d, want 1", completions)
	}
	res, _ := e.Result()
	if !res.AutoSubmitted || res.CorrectAnswersCount != 1 {
		t.Fatalf("unexpected auto-submit result: %+v", res)
	}
}

func TestTick_UntimedIsNoop(t *testing.T) {
	e := New(twoQuestionQuiz())
	for i := 0; i < 1000; i++ {
		e.Tick()
	}
	if e.State() != StateInProgress {
		t.Fatalf("untimed quiz must never auto-submit")
	}
	if _, limited := e.TimeRemaining(); limited {
		t.Fatalf("expected no limit")
	}
}

func TestMutationsAfterCompletionAreIgnored(t *testing.T) {
	e := New(twoQuestionQuiz())
	e.SetAnswer("q1", training.Single("B"))
	first := e.Submit()
	e.SetAnswer("q2", training.Single("true"))
	e.Next()
	second := e.Submit()
	if second.Score != first.Score || e.CurrentIndex() != 0 {
		t.Fatalf("attempt changed after completion")
	}
}

func TestReset_OnlyAfterFailure(t *testing.T) {
	q := twoQuestionQuiz()
	q.TimeLimit = 2

	failed := New(q)
	failed.SetAnswer("q2", training.Single("false"))
	failed.Tick()
	failed.Submit()
	if !failed.Reset() {
		t.Fatalf("expected reset after a failed attempt")
	}
	if failed.State() != StateInProgress || len(failed.Answers()) != 0 {
		t.Fatalf("reset should restore the initial state")
	}
	if left, _ := failed.TimeRemaining(); left != 120 {
		t.Fatalf("TimeRemaining after reset = %d, want 120", left)
	}

	passed := New(q)
	passed.SetAnswer("q1", training.Single("B"))
	passed.SetAnswer("q2", training.Single("true"))
	passed.Submit()
	if passed.Reset() {
		t.Fatalf("reset after a passing attempt must be a no-op")
	}
	if passed.State() != StateCompleted {
		t.Fatalf("passing attempt should stay completed")
	}

	inProgress := New(q)
	if inProgress.Reset() {
		t.Fatalf("reset while in progress must be a no-op")
	}
}

func TestRetake_FreshEngineStartsClean(t *testing.T) {
	q := twoQuestionQuiz()
	q.TimeLimit = 3
	e := New(q)
	left, limited := e.TimeRemaining()
	if !limited || left != 180 {
		t.Fatalf("TimeRemaining = %d/%v, want 180/true", left, limited)
	}
	if len(e.Answers()) != 0 || e.CurrentIndex() != 0 {
		t.Fatalf("fresh engine should have no answers and index 0")
	}
}

func TestSnapshot_HidesAnswerKeyUntilCompleted(t *testing.T) {
	e := New(twoQuestionQuiz())
	s := e.Snapshot()
	if s.Question == nil || s.Question.ID != "q1" {
		t.Fatalf("expected first question in snapshot")
	}
	if s.Result != nil {
		t.Fatalf("no result expected before submit")
	}
	e.Submit()
	if s := e.Snapshot(); s.Result == nil || s.State != "completed" {
		t.Fatalf("expected result after submit")
	}
}

func TestSubmittedAtUsesClock(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	e := New(twoQuestionQuiz(), WithClock(func() time.Time { return fixed }))
	if res := e.Submit(); !res.SubmittedAt.Equal(fixed) {
		t.Fatalf("SubmittedAt = %v, want %v", res.SubmittedAt, fixed)
	}
}

func TestRunTimer_StopsOnSubmit(t *testing.T) {
	q := twoQuestionQuiz()
	q.TimeLimit = 10
	e := New(q)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		e.RunTimer(ctx)
		close(stopped)
	}()
	e.Submit()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("timer did not stop after submit")
	}
}

func TestOnComplete_ReceivesScoredAnswers(t *testing.T) {
	var got map[string]training.Answer
	var e *Engine
	e = New(twoQuestionQuiz(), OnComplete(func(_ Result, answers map[string]training.Answer) {
		// a retake racing the callback must not change what it was handed
		e.Reset()
		got = answers
	}))
	e.SetAnswer("q1", training.Single("A"))
	e.Submit()

	if len(got) != 1 || got["q1"].Value() != "A" {
		t.Fatalf("callback answers = %v", got)
	}
	if len(e.Answers()) != 0 {
		t.Fatalf("reset should have cleared the engine")
	}
}
