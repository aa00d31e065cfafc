package training

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Answer is either a single string or a sequence of strings. It is used for
// both a learner's response and a question's correct answer.
type Answer struct {
	value  string
	values []string
	multi  bool
}

func Single(s string) Answer { return Answer{value: s} }

func Multi(v ...string) Answer {
	out := make([]string, len(v))
	copy(out, v)
	return Answer{values: out, multi: true}
}

// IsMulti reports whether the answer is a sequence (possibly empty).
func (a Answer) IsMulti() bool { return a.multi }

// IsZero reports whether nothing was set at all.
func (a Answer) IsZero() bool { return !a.multi && a.value == "" }

func (a Answer) Value() string { return a.value }

func (a Answer) Values() []string {
	if !a.multi {
		return nil
	}
	out := make([]string, len(a.values))
	copy(out, a.values)
	return out
}

// Set returns the answer as a set; a scalar becomes a one-element set.
func (a Answer) Set() map[string]struct{} {
	if !a.multi {
		return map[string]struct{}{a.value: {}}
	}
	m := make(map[string]struct{}, len(a.values))
	for _, s := range a.values {
		m[s] = struct{}{}
	}
	return m
}

// Toggle flips membership of v in a sequence answer. A scalar answer is
// treated as a one-element sequence first.
func (a Answer) Toggle(v string) Answer {
	cur := a.values
	if !a.multi && a.value != "" {
		cur = []string{a.value}
	}
	out := make([]string, 0, len(cur)+1)
	found := false
	for _, s := range cur {
		if s == v {
			found = true
			continue
		}
		out = append(out, s)
	}
	if !found {
		out = append(out, v)
	}
	return Answer{values: out, multi: true}
}

func (a Answer) Equal(b Answer) bool {
	if a.multi != b.multi {
		return false
	}
	if !a.multi {
		return a.value == b.value
	}
	if len(a.values) != len(b.values) {
		return false
	}
	for i := range a.values {
		if a.values[i] != b.values[i] {
			return false
		}
	}
	return true
}

func (a Answer) String() string {
	if a.multi {
		return fmt.Sprintf("%v", a.values)
	}
	return a.value
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.multi {
		if a.values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.values)
	}
	return json.Marshal(a.value)
}

func (a *Answer) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v, ok := AnswerFromAny(raw)
	if !ok {
		return errors.New("answer must be a string or an array of strings")
	}
	*a = v
	return nil
}

// AnswerFromAny converts a decoded JSON value into an Answer. Numbers and
// booleans are accepted as their string form since true/false questions are
// sometimes keyed with JSON booleans.
func AnswerFromAny(v any) (Answer, bool) {
	switch t := v.(type) {
	case nil:
		return Answer{}, true
	case string:
		return Single(t), true
	case bool, float64, json.Number:
		return Single(fmt.Sprint(t)), true
	case []string:
		return Multi(t...), true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			switch s := e.(type) {
			case string:
				out = append(out, s)
			case bool, float64, json.Number:
				out = append(out, fmt.Sprint(s))
			default:
				return Answer{}, false
			}
		}
		return Multi(out...), true
	default:
		return Answer{}, false
	}
}
