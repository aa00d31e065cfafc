package training

import (
	"encoding/json"
	"strings"
)

// QuestionBody is the variant part of a question. The set of implementations
// is closed: MultipleChoice, TrueFalse and ShortAnswer.
type QuestionBody interface {
	Kind() Kind
	CorrectAnswer() Answer
	isQuestionBody()
}

type Kind string

const (
	KindMultipleChoice Kind = "multiple-choice"
	KindTrueFalse      Kind = "true-false"
	KindShortAnswer    Kind = "short-answer"
)

type MultipleChoice struct {
	Options []string
	Correct Answer
}

type TrueFalse struct {
	Correct Answer
}

type ShortAnswer struct {
	Correct Answer
}

func (MultipleChoice) Kind() Kind { return KindMultipleChoice }
func (TrueFalse) Kind() Kind      { return KindTrueFalse }
func (ShortAnswer) Kind() Kind    { return KindShortAnswer }

func (b MultipleChoice) CorrectAnswer() Answer { return b.Correct }
func (b TrueFalse) CorrectAnswer() Answer      { return b.Correct }
func (b ShortAnswer) CorrectAnswer() Answer    { return b.Correct }

func (MultipleChoice) isQuestionBody() {}
func (TrueFalse) isQuestionBody()      {}
func (ShortAnswer) isQuestionBody()    {}

type Question struct {
	ID     string
	Text   string
	Points int
	Body   QuestionBody
}

// MultiSelect is true for a multiple-choice question whose correct answer is
// a sequence of more than one option.
func (q Question) MultiSelect() bool {
	mc, ok := q.Body.(MultipleChoice)
	if !ok {
		return false
	}
	return mc.Correct.IsMulti() && len(mc.Correct.values) > 1
}

func (q Question) Kind() Kind {
	if q.Body == nil {
		return KindShortAnswer
	}
	return q.Body.Kind()
}

func (q Question) Options() []string {
	switch b := q.Body.(type) {
	case MultipleChoice:
		return b.Options
	case TrueFalse:
		return []string{"true", "false"}
	default:
		return nil
	}
}

// PublicView strips the correct answer so the question can be shown before
// the attempt is completed.
func (q Question) PublicView() QuestionView {
	return QuestionView{
		ID:          q.ID,
		Text:        q.Text,
		Type:        q.Kind(),
		Options:     q.Options(),
		Points:      q.Points,
		MultiSelect: q.MultiSelect(),
	}
}

type QuestionView struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	Type        Kind     `json:"type"`
	Options     []string `json:"options,omitempty"`
	Points      int      `json:"points"`
	MultiSelect bool     `json:"multiSelect"`
}

type questionWire struct {
	ID            json.RawMessage `json:"id"`
	Text          string          `json:"text"`
	Question      string          `json:"question,omitempty"`
	Type          string          `json:"type"`
	Options       []string        `json:"options,omitempty"`
	CorrectAnswer Answer          `json:"correctAnswer"`
	LegacyCorrect *Answer         `json:"correct_answer,omitempty"`
	Points        *int            `json:"points,omitempty"`
}

// ParseKind maps the backend's string tag to a Kind. Unknown tags fall back
// to short answer, which grades by exact match.
func ParseKind(s string) Kind {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer("_", "-", " ", "-").Replace(k)
	switch k {
	case "multiple-choice", "multiplechoice", "mcq", "choice":
		return KindMultipleChoice
	case "true-false", "truefalse", "boolean":
		return KindTrueFalse
	default:
		return KindShortAnswer
	}
}

func (q *Question) UnmarshalJSON(b []byte) error {
	var w questionWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	q.ID = rawID(w.ID)
	q.Text = w.Text
	if q.Text == "" {
		q.Text = w.Question
	}
	q.Points = 1
	if w.Points != nil {
		q.Points = *w.Points
		if q.Points < 0 {
			q.Points = 0
		}
	}
	correct := w.CorrectAnswer
	if correct.IsZero() && w.LegacyCorrect != nil {
		correct = *w.LegacyCorrect
	}
	switch ParseKind(w.Type) {
	case KindMultipleChoice:
		q.Body = MultipleChoice{Options: w.Options, Correct: correct}
	case KindTrueFalse:
		q.Body = TrueFalse{Correct: correct}
	default:
		q.Body = ShortAnswer{Correct: correct}
	}
	return nil
}

func (q Question) MarshalJSON() ([]byte, error) {
	var correct Answer
	if q.Body != nil {
		correct = q.Body.CorrectAnswer()
	}
	id, err := json.Marshal(q.ID)
	if err != nil {
		return nil, err
	}
	points := q.Points
	return json.Marshal(questionWire{
		ID:            id,
		Text:          q.Text,
		Type:          string(q.Kind()),
		Options:       q.Options(),
		CorrectAnswer: correct,
		Points:        &points,
	})
}

// rawID accepts ids encoded as JSON strings or numbers.
func rawID(b json.RawMessage) string {
	if len(b) == 0 || string(b) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(b))
}
