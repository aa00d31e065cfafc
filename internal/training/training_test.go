package training

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestAnswer_JSONShapes(t *testing.T) {
	var a Answer
	if err := json.Unmarshal([]byte(`"B"`), &a); err != nil {
		t.Fatal(err)
	}
	if a.IsMulti() || a.Value() != "B" {
		t.Fatalf("scalar decode = %+v", a)
	}
	if err := json.Unmarshal([]byte(`["A","C"]`), &a); err != nil {
		t.Fatal(err)
	}
	if !a.IsMulti() || len(a.Values()) != 2 {
		t.Fatalf("sequence decode = %+v", a)
	}
	if err := json.Unmarshal([]byte(`true`), &a); err != nil || a.Value() != "true" {
		t.Fatalf("bool decode = %+v, %v", a, err)
	}
	if err := json.Unmarshal([]byte(`{"x":1}`), &a); err == nil {
		t.Fatalf("expected object to be rejected")
	}

	b, _ := json.Marshal(Multi())
	if string(b) != "[]" {
		t.Fatalf("empty sequence marshals as %s", b)
	}
	b, _ = json.Marshal(Single("x"))
	if string(b) != `"x"` {
		t.Fatalf("scalar marshals as %s", b)
	}
}

func TestAnswer_Toggle(t *testing.T) {
	a := Answer{}.Toggle("A").Toggle("C")
	if !a.Equal(Multi("A", "C")) {
		t.Fatalf("toggle on = %v", a)
	}
	a = a.Toggle("A")
	if !a.Equal(Multi("C")) {
		t.Fatalf("toggle off = %v", a)
	}
	if got := Single("B").Toggle("C"); !got.Equal(Multi("B", "C")) {
		t.Fatalf("scalar promoted = %v", got)
	}
}

func TestAnswer_IsZero(t *testing.T) {
	if !(Answer{}).IsZero() {
		t.Fatal("zero answer")
	}
	if Multi().IsZero() {
		t.Fatal("an empty selection is still a selection")
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"multiple-choice": KindMultipleChoice,
		"Multiple_Choice": KindMultipleChoice,
		"mcq":             KindMultipleChoice,
		"true-false":      KindTrueFalse,
		"TRUE_FALSE":      KindTrueFalse,
		"short-answer":    KindShortAnswer,
		"essay":           KindShortAnswer,
		"":                KindShortAnswer,
	}
	for in, want := range cases {
		if got := ParseKind(in); got != want {
			t.Errorf("ParseKind(%q) = %s, want %s", in, got, want)
		}
	}
}

const trainingJSON = `{
  "id": 42,
  "title": "Security awareness",
  "content_items": [{"id": 1, "title": "Intro video", "type": "video"}],
  "quizzes": [{
    "id": "qz",
    "title": "Check",
    "passing_score": 80,
    "time_limit": 5,
    "questions": [
      {"id": 1, "question": "Pick all", "type": "multiple_choice", "options": ["A","B","C"], "correct_answer": ["A","C"], "points": 2},
      {"id": "q2", "text": "Phishing is bad", "type": "true-false", "correctAnswer": true},
      {"id": "q3", "text": "Port of HTTPS", "type": "short-answer", "correctAnswer": "443"}
    ]
  }]
}`

func TestTraining_UnmarshalLegacyFields(t *testing.T) {
	var tr Training
	if err := json.Unmarshal([]byte(trainingJSON), &tr); err != nil {
		t.Fatal(err)
	}
	if tr.ID != "42" || len(tr.Content) != 1 || tr.Content[0].ID != "1" {
		t.Fatalf("training = %+v", tr)
	}
	q, ok := tr.Quiz("qz")
	if !ok {
		t.Fatal("quiz not found")
	}
	if q.EffectivePassingScore() != 80 || q.TimeLimit != 5 || q.TotalPoints() != 4 {
		t.Fatalf("quiz = %+v", q)
	}
	first := q.Questions[0]
	if first.ID != "1" || first.Text != "Pick all" || first.Kind() != KindMultipleChoice || !first.MultiSelect() {
		t.Fatalf("first question = %+v", first)
	}
	if !first.Body.CorrectAnswer().Equal(Multi("A", "C")) {
		t.Fatalf("legacy correct answer = %v", first.Body.CorrectAnswer())
	}
	if q.Questions[1].Body.CorrectAnswer().Value() != "true" || q.Questions[1].Points != 1 {
		t.Fatalf("true-false = %+v", q.Questions[1])
	}
}

func TestQuiz_DefaultsAndClamp(t *testing.T) {
	if (Quiz{}).EffectivePassingScore() != DefaultPassingScore {
		t.Fatal("default passing score")
	}
	over := 140
	if (Quiz{PassingScore: &over}).EffectivePassingScore() != 100 {
		t.Fatal("passing score must clamp to 100")
	}
	var q Quiz
	if err := json.Unmarshal([]byte(`{"id":"x","timeLimit":-3}`), &q); err != nil {
		t.Fatal(err)
	}
	if q.TimeLimit != 0 {
		t.Fatalf("negative limit = %d", q.TimeLimit)
	}
}

func TestPublicView_HidesAnswerKeys(t *testing.T) {
	var tr Training
	if err := json.Unmarshal([]byte(trainingJSON), &tr); err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(tr.PublicView())
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	if strings.Contains(s, "correctAnswer") || strings.Contains(s, "443") {
		t.Fatalf("answer key leaked: %s", s)
	}
	if !strings.Contains(s, `"multiSelect":true`) || !strings.Contains(s, `"passingScore":80`) {
		t.Fatalf("view = %s", s)
	}

	full, _ := json.Marshal(tr.Quizzes[0].Questions[2])
	if !strings.Contains(string(full), `"correctAnswer":"443"`) {
		t.Fatalf("full question = %s", full)
	}
}

func TestBootcamp_AcceptsTrainingObjects(t *testing.T) {
	var bc Bootcamp
	if err := json.Unmarshal([]byte(`{"id":"b1","title":"Onboarding","trainings":[{"id":1},{"id":"t2"}]}`), &bc); err != nil {
		t.Fatal(err)
	}
	if len(bc.TrainingIDs) != 2 || bc.TrainingIDs[0] != "1" || bc.TrainingIDs[1] != "t2" {
		t.Fatalf("ids = %v", bc.TrainingIDs)
	}
}

func TestQuizStatusReport_Reconciled(t *testing.T) {
	var rep QuizStatusReport
	raw := `{"quizStatuses":[{"quiz_id":1,"attempted":true,"passed":true,"lastScore":89.6},{"quizId":"2","attempted":true,"passed":false}],"allPassed":true,"totalQuizzes":7}`
	if err := json.Unmarshal([]byte(raw), &rep); err != nil {
		t.Fatal(err)
	}
	r := rep.Reconciled()
	if r.AllPassed || r.TotalQuizzes != 2 {
		t.Fatalf("reconciled = %+v", r)
	}
	if r.QuizStatuses[0].QuizID != "1" || *r.QuizStatuses[0].LastScore != 90 {
		t.Fatalf("status = %+v", r.QuizStatuses[0])
	}

	empty := QuizStatusReport{AllPassed: true, TotalQuizzes: -1}.Reconciled()
	if empty.TotalQuizzes != 0 || !empty.AllPassed {
		t.Fatalf("empty = %+v", empty)
	}
}

func TestStatus_FaultsAreNotLifecycle(t *testing.T) {
	for _, s := range []Status{StatusError, StatusNoUser, StatusInvalidParams} {
		if !s.IsFault() || s.IsLifecycle() {
			t.Errorf("%s misclassified", s)
		}
	}
	if StatusNotStarted.IsFault() {
		t.Error("NOT_STARTED is not a fault")
	}
	if p := Fault(StatusError); p.HasStarted() || p.IsContentCompleted() {
		t.Errorf("fault progress = %+v", p)
	}
}
