package grading

import (
	"github.com/mind-engage/mindengage-learner/internal/training"
)

// Result is the outcome of grading a single question response.
type Result struct {
	Correct      bool
	EarnedPoints int // points awarded
	MaxPoints    int // the question's points
}

// Grade scores one response. There is no partial credit: a question either
// earns all of its points or none. A missing response is simply incorrect.
func Grade(q training.Question, response training.Answer, answered bool) Result {
	res := Result{MaxPoints: q.Points}
	if !answered || q.Body == nil {
		return res
	}
	var ok bool
	switch b := q.Body.(type) {
	case training.MultipleChoice:
		ok = matchKey(b.Correct, response)
	case training.TrueFalse:
		ok = matchKey(b.Correct, response)
	case training.ShortAnswer:
		ok = matchKey(b.Correct, response)
	}
	if ok {
		res.Correct = true
		res.EarnedPoints = q.Points
	}
	return res
}

// matchKey compares a response against an answer key. A sequence key is
// compared as a set (order irrelevant, exact membership); a scalar key needs
// an exact string match from a scalar response.
func matchKey(key, resp training.Answer) bool {
	if key.IsMulti() {
		return setEqual(key.Set(), resp.Set())
	}
	if resp.IsMulti() {
		return false
	}
	return resp.Value() == key.Value()
}

// Score grades every question of a quiz against the supplied responses.
func Score(questions []training.Question, responses map[string]training.Answer) (results []Result, earned, total int) {
	results = make([]Result, 0, len(questions))
	for _, q := range questions {
		resp, has := responses[q.ID]
		r := Grade(q, resp, has)
		earned += r.EarnedPoints
		total += r.MaxPoints
		results = append(results, r)
	}
	return results, earned, total
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
