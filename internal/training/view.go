package training

// QuizView is a quiz as shown before an attempt: no answer keys.
type QuizView struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	PassingScore   int            `json:"passingScore"`
	TimeLimit      int            `json:"timeLimit,omitempty"`
	TotalPoints    int            `json:"totalPoints"`
	TotalQuestions int            `json:"totalQuestions"`
	Questions      []QuestionView `json:"questions"`
}

func (q Quiz) PublicView() QuizView {
	v := QuizView{
		ID:             q.ID,
		Title:          q.Title,
		PassingScore:   q.EffectivePassingScore(),
		TimeLimit:      q.TimeLimit,
		TotalPoints:    q.TotalPoints(),
		TotalQuestions: len(q.Questions),
		Questions:      make([]QuestionView, 0, len(q.Questions)),
	}
	for _, qu := range q.Questions {
		v.Questions = append(v.Questions, qu.PublicView())
	}
	return v
}

type TrainingView struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Content     []ContentItem `json:"content"`
	Quizzes     []QuizView    `json:"quizzes"`
}

func (t Training) PublicView() TrainingView {
	v := TrainingView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Content:     t.Content,
		Quizzes:     make([]QuizView, 0, len(t.Quizzes)),
	}
	if v.Content == nil {
		v.Content = []ContentItem{}
	}
	for _, q := range t.Quizzes {
		v.Quizzes = append(v.Quizzes, q.PublicView())
	}
	return v
}
