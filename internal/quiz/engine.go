package quiz

import (
	"math"
	"sync"
	"time"

	"github.com/mind-engage/mindengage-learner/internal/grading"
	"github.com/mind-engage/mindengage-learner/internal/training"
)

// State is the phase of one attempt.
type State int

const (
	StateInProgress State = iota
	StateCompleted
)

func (s State) String() string {
	if s == StateCompleted {
		return "completed"
	}
	return "in_progress"
}

// Engine runs exactly one quiz attempt in memory. Nothing is persisted until
// the attempt completes; the caller decides what to do with the Result.
//
// All operations are state guarded: anything that does not apply to the
// current state is a silent no-op, so a timer firing after a manual submit
// cannot submit twice.
type Engine struct {
	mu sync.Mutex

	quiz      training.Quiz
	index     int
	answers   map[string]training.Answer
	remaining int // seconds
	limited   bool
	state     State
	result    Result
	done      chan struct{}

	now        func() time.Time
	onComplete func(Result, map[string]training.Answer)
}

type Option func(*Engine)

// WithClock overrides the clock used to stamp SubmittedAt.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// OnComplete registers a callback run after every transition to Completed,
// including timer auto-submits. It receives the answers the result was
// scored from and runs without the engine lock held.
func OnComplete(fn func(Result, map[string]training.Answer)) Option {
	return func(e *Engine) { e.onComplete = fn }
}

func New(q training.Quiz, opts ...Option) *Engine {
	e := &Engine{quiz: q, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	e.init()
	return e
}

func (e *Engine) init() {
	e.index = 0
	e.answers = map[string]training.Answer{}
	e.limited = e.quiz.TimeLimit > 0
	e.remaining = 0
	if e.limited {
		e.remaining = e.quiz.TimeLimit * 60
	}
	e.state = StateInProgress
	e.result = Result{}
	e.done = make(chan struct{})
}

func (e *Engine) Quiz() training.Quiz { return e.quiz }

// SetAnswer records or overwrites the answer for a question. For a
// multi-select question a scalar value toggles membership in the existing
// selection instead. Unknown ids are ignored.
func (e *Engine) SetAnswer(questionID string, value training.Answer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateInProgress {
		return
	}
	q, _, ok := e.quiz.Question(questionID)
	if !ok {
		return
	}
	if q.MultiSelect() && !value.IsMulti() {
		e.answers[questionID] = e.answers[questionID].Toggle(value.Value())
		return
	}
	e.answers[questionID] = value
}

// GoTo moves to index, clamped into [0, n-1].
func (e *Engine) GoTo(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateInProgress {
		return
	}
	e.index = e.clamp(index)
}

func (e *Engine) Next() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateInProgress {
		return
	}
	e.index = e.clamp(e.index + 1)
}

func (e *Engine) Previous() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateInProgress {
		return
	}
	e.index = e.clamp(e.index - 1)
}

func (e *Engine) clamp(i int) int {
	last := len(e.quiz.Questions) - 1
	if i > last {
		i = last
	}
	if i < 0 {
		i = 0
	}
	return i
}

// Tick counts down one second. When the limit runs out the attempt is
// submitted with whatever answers exist.
func (e *Engine) Tick() {
	e.mu.Lock()
	if e.state != StateInProgress || !e.limited {
		e.mu.Unlock()
		return
	}
	e.remaining--
	if e.remaining > 0 {
		e.mu.Unlock()
		return
	}
	e.remaining = 0
	res := e.submitLocked(true)
	answers := e.answersLocked()
	e.mu.Unlock()
	e.notify(res, answers)
}

// Submit completes the attempt and returns its result. Submitting an already
// completed attempt returns the existing result.
func (e *Engine) Submit() Result {
	e.mu.Lock()
	if e.state == StateCompleted {
		res := e.result
		e.mu.Unlock()
		return res
	}
	res := e.submitLocked(false)
	answers := e.answersLocked()
	e.mu.Unlock()
	e.notify(res, answers)
	return res
}

func (e *Engine) submitLocked(auto bool) Result {
	outcomes, earned, total := grading.Score(e.quiz.Questions, e.answers)
	res := Result{
		TotalQuestions: len(e.quiz.Questions),
		TotalPoints:    total,
		EarnedPoints:   earned,
		PassingScore:   e.quiz.EffectivePassingScore(),
		SubmittedAt:    e.now(),
		AutoSubmitted:  auto,
		Outcomes:       make([]QuestionOutcome, 0, len(outcomes)),
	}
	for i, o := range outcomes {
		q := e.quiz.Questions[i]
		ans, answered := e.answers[q.ID]
		if o.Correct {
			res.CorrectAnswersCount++
		}
		res.Outcomes = append(res.Outcomes, QuestionOutcome{
			QuestionID:    q.ID,
			Answer:        ans,
			Answered:      answered,
			Correct:       o.Correct,
			EarnedPoints:  o.EarnedPoints,
			Points:        o.MaxPoints,
			CorrectAnswer: correctAnswer(q),
		})
	}
	if total > 0 {
		res.Score = int(math.Round(float64(earned) / float64(total) * 100))
	}
	res.Passed = res.Score >= res.PassingScore
	e.result = res
	e.state = StateCompleted
	close(e.done)
	return res
}

func (e *Engine) notify(res Result, answers map[string]training.Answer) {
	if e.onComplete != nil {
		e.onComplete(res, answers)
	}
}

// Reset starts a retake. It only applies to a completed, failed attempt and
// reports whether the engine was reset.
func (e *Engine) Reset() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateCompleted || e.result.Passed {
		return false
	}
	e.init()
	return true
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) CurrentIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index
}

// Answers returns a copy of the collected answers.
func (e *Engine) Answers() map[string]training.Answer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.answersLocked()
}

func (e *Engine) answersLocked() map[string]training.Answer {
	out := make(map[string]training.Answer, len(e.answers))
	for k, v := range e.answers {
		out[k] = v
	}
	return out
}

// TimeRemaining returns the seconds left and whether the attempt is timed at all.
func (e *Engine) TimeRemaining() (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remaining, e.limited
}

func (e *Engine) Result() (Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result, e.state == StateCompleted
}

// Done is closed when the current attempt completes. A Reset installs a new channel.
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}

// Snapshot is a consistent, answer-key free view of the attempt for display.
type Snapshot struct {
	State          string                     `json:"state"`
	CurrentIndex   int                        `json:"currentIndex"`
	TotalQuestions int                        `json:"totalQuestions"`
	Question       *training.QuestionView     `json:"question,omitempty"`
	Answers        map[string]training.Answer `json:"answers"`
	TimeRemaining  *int                       `json:"timeRemaining,omitempty"`
	Result         *Result                    `json:"result,omitempty"`
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Snapshot{
		State:          e.state.String(),
		CurrentIndex:   e.index,
		TotalQuestions: len(e.quiz.Questions),
		Answers:        make(map[string]training.Answer, len(e.answers)),
	}
	for k, v := range e.answers {
		s.Answers[k] = v
	}
	if e.index < len(e.quiz.Questions) {
		v := e.quiz.Questions[e.index].PublicView()
		s.Question = &v
	}
	if e.limited {
		r := e.remaining
		s.TimeRemaining = &r
	}
	if e.state == StateCompleted {
		r := e.result
		s.Result = &r
	}
	return s
}

func correctAnswer(q training.Question) training.Answer {
	if q.Body == nil {
		return training.Answer{}
	}
	return q.Body.CorrectAnswer()
}
