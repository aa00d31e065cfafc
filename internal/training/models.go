package training

import (
	"encoding/json"
	"math"
)

// DefaultPassingScore is used when a quiz does not carry its own threshold.
const DefaultPassingScore = 70

type Quiz struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Questions    []Question `json:"questions"`
	PassingScore *int       `json:"passingScore,omitempty"`
	TimeLimit    int        `json:"timeLimit,omitempty"` // minutes, 0 = no limit
}

// EffectivePassingScore returns the configured threshold clamped to [0,100],
// or DefaultPassingScore when none is set.
func (q Quiz) EffectivePassingScore() int {
	if q.PassingScore == nil {
		return DefaultPassingScore
	}
	return clampPercent(*q.PassingScore)
}

func (q Quiz) TotalPoints() int {
	total := 0
	for _, qu := range q.Questions {
		total += qu.Points
	}
	return total
}

func (q Quiz) Question(id string) (Question, int, bool) {
	for i, qu := range q.Questions {
		if qu.ID == id {
			return qu, i, true
		}
	}
	return Question{}, -1, false
}

func (q *Quiz) UnmarshalJSON(b []byte) error {
	var w struct {
		ID           json.RawMessage `json:"id"`
		Title        string          `json:"title"`
		Questions    []Question      `json:"questions"`
		PassingScore *int            `json:"passingScore"`
		LegacyPass   *int            `json:"passing_score"`
		TimeLimit    *int            `json:"timeLimit"`
		LegacyLimit  *int            `json:"time_limit"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	q.ID = rawID(w.ID)
	q.Title = w.Title
	q.Questions = w.Questions
	q.PassingScore = w.PassingScore
	if q.PassingScore == nil {
		q.PassingScore = w.LegacyPass
	}
	q.TimeLimit = 0
	switch {
	case w.TimeLimit != nil:
		q.TimeLimit = *w.TimeLimit
	case w.LegacyLimit != nil:
		q.TimeLimit = *w.LegacyLimit
	}
	if q.TimeLimit < 0 {
		q.TimeLimit = 0
	}
	return nil
}

type ContentItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type,omitempty"` // video, document, link, ...
	URL   string `json:"url,omitempty"`
}

func (c *ContentItem) UnmarshalJSON(b []byte) error {
	var w struct {
		ID    json.RawMessage `json:"id"`
		Title string          `json:"title"`
		Type  string          `json:"type"`
		URL   string          `json:"url"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*c = ContentItem{ID: rawID(w.ID), Title: w.Title, Type: w.Type, URL: w.URL}
	return nil
}

type Training struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Content     []ContentItem `json:"content"`
	Quizzes     []Quiz        `json:"quizzes"`
}

func (t *Training) UnmarshalJSON(b []byte) error {
	var w struct {
		ID           json.RawMessage `json:"id"`
		Title        string          `json:"title"`
		Description  string          `json:"description"`
		Content      []ContentItem   `json:"content"`
		ContentItems []ContentItem   `json:"content_items"`
		Quizzes      []Quiz          `json:"quizzes"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	t.ID = rawID(w.ID)
	t.Title = w.Title
	t.Description = w.Description
	t.Content = w.Content
	if len(t.Content) == 0 {
		t.Content = w.ContentItems
	}
	t.Quizzes = w.Quizzes
	return nil
}

func (t Training) Quiz(id string) (Quiz, bool) {
	for _, q := range t.Quizzes {
		if q.ID == id {
			return q, true
		}
	}
	return Quiz{}, false
}

// Bootcamp is an ordered collection of trainings.
type Bootcamp struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	TrainingIDs []string `json:"trainingIds"`
}

func (bc *Bootcamp) UnmarshalJSON(b []byte) error {
	var w struct {
		ID          json.RawMessage   `json:"id"`
		Title       string            `json:"title"`
		TrainingIDs []json.RawMessage `json:"trainingIds"`
		Trainings   []struct {
			ID json.RawMessage `json:"id"`
		} `json:"trainings"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	bc.ID = rawID(w.ID)
	bc.Title = w.Title
	bc.TrainingIDs = bc.TrainingIDs[:0]
	for _, id := range w.TrainingIDs {
		bc.TrainingIDs = append(bc.TrainingIDs, rawID(id))
	}
	if len(bc.TrainingIDs) == 0 {
		for _, t := range w.Trainings {
			bc.TrainingIDs = append(bc.TrainingIDs, rawID(t.ID))
		}
	}
	return nil
}

// QuizStatus is the backend's per-quiz attempt summary for one user.
type QuizStatus struct {
	QuizID    string `json:"quizId"`
	Attempted bool   `json:"attempted"`
	Passed    bool   `json:"passed"`
	LastScore *int   `json:"lastScore,omitempty"`
}

func (s *QuizStatus) UnmarshalJSON(b []byte) error {
	var w struct {
		QuizID       json.RawMessage `json:"quizId"`
		LegacyQuizID json.RawMessage `json:"quiz_id"`
		Attempted    bool            `json:"attempted"`
		Passed       bool            `json:"passed"`
		LastScore    *float64        `json:"lastScore"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	s.QuizID = rawID(w.QuizID)
	if s.QuizID == "" {
		s.QuizID = rawID(w.LegacyQuizID)
	}
	s.Attempted = w.Attempted
	s.Passed = w.Passed
	s.LastScore = nil
	if w.LastScore != nil {
		v := int(math.Round(*w.LastScore))
		s.LastScore = &v
	}
	return nil
}

type QuizStatusReport struct {
	QuizStatuses []QuizStatus `json:"quizStatuses"`
	AllPassed    bool         `json:"allPassed"`
	TotalQuizzes int          `json:"totalQuizzes"`
}

// Reconciled recomputes the aggregate fields from the per-quiz entries when
// there are any, so a stale allPassed flag cannot contradict them.
func (r QuizStatusReport) Reconciled() QuizStatusReport {
	if len(r.QuizStatuses) == 0 {
		if r.TotalQuizzes < 0 {
			r.TotalQuizzes = 0
		}
		return r
	}
	r.TotalQuizzes = len(r.QuizStatuses)
	r.AllPassed = true
	for _, s := range r.QuizStatuses {
		if !s.Passed {
			r.AllPassed = false
			break
		}
	}
	return r
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
