package progress

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-learner/internal/training"
)

// Field names in resolution order. Different backend endpoints disagree on
// naming; the first key that holds a usable value wins.
var (
	percentKeys   = []string{"progress_percentage", "progress", "progressPercentage"}
	itemsKeys     = []string{"completed_content_items", "completedItems", "completedContentItemIds"}
	quizKeys      = []string{"quiz_results", "quizResults", "quizResultsByQuizId"}
	statusKeys    = []string{"status"}
	completedKeys = []string{"completed"}
)

// Normalize maps a raw backend progress payload onto training.Progress.
// It is total: every input, including nil and {}, yields a fully defaulted
// value. Fault statuses are never produced here.
func Normalize(raw map[string]any) training.Progress {
	p := training.Progress{
		Status:                  training.StatusNotStarted,
		CompletedContentItemIDs: []string{},
		QuizResultsByQuizID:     map[string]training.QuizSummary{},
	}
	if raw == nil {
		return p
	}
	// some endpoints wrap the record: {"progress": {...}}
	if inner, ok := raw["progress"].(map[string]any); ok {
		return Normalize(inner)
	}

	for _, k := range percentKeys {
		if v, ok := toFloat(raw[k]); ok {
			p.ProgressPercentage = clamp(int(math.Round(v)))
			break
		}
	}
	for _, k := range itemsKeys {
		if items, ok := raw[k].([]any); ok {
			p.CompletedContentItemIDs = itemIDs(items)
			break
		}
	}
	for _, k := range statusKeys {
		if s, ok := raw[k].(string); ok {
			p.Status = parseStatus(s)
			break
		}
	}
	for _, k := range quizKeys {
		if v, ok := raw[k]; ok && v != nil {
			p.QuizResultsByQuizID = quizResults(v)
			break
		}
	}

	explicit := false
	for _, k := range completedKeys {
		if b, ok := toBool(raw[k]); ok {
			explicit = b
			break
		}
	}
	if explicit {
		p.Status = training.StatusCompleted
	}
	p.Completed = p.Status == training.StatusCompleted
	return p
}

// Canonical re-shapes p using the primary field names Normalize reads first.
// Normalize(Canonical(Normalize(raw))) equals Normalize(raw).
func Canonical(p training.Progress) map[string]any {
	items := make([]any, 0, len(p.CompletedContentItemIDs))
	for _, id := range p.CompletedContentItemIDs {
		items = append(items, id)
	}
	quizzes := make(map[string]any, len(p.QuizResultsByQuizID))
	for id, s := range p.QuizResultsByQuizID {
		quizzes[id] = map[string]any{
			"score":     s.Score,
			"passed":    s.Passed,
			"attempted": s.Attempted,
		}
	}
	return map[string]any{
		"progress_percentage":     p.ProgressPercentage,
		"completed_content_items": items,
		"status":                  string(p.Status),
		"completed":               p.Completed,
		"quiz_results":            quizzes,
	}
}

func parseStatus(s string) training.Status {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	st := training.Status(s)
	if !st.IsLifecycle() {
		return training.StatusNotStarted
	}
	return st
}

func itemIDs(items []any) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		id := idOf(it)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func idOf(v any) string {
	switch x := v.(type) {
	case map[string]any:
		for _, k := range []string{"id", "contentId", "content_id", "_id"} {
			if s := scalarString(x[k]); s != "" {
				return s
			}
		}
		return ""
	default:
		return scalarString(v)
	}
}

func quizResults(v any) map[string]training.QuizSummary {
	out := map[string]training.QuizSummary{}
	switch x := v.(type) {
	case map[string]any:
		for id, r := range x {
			if id == "" {
				continue
			}
			out[id] = quizSummary(r)
		}
	case []any:
		for _, r := range x {
			m, ok := r.(map[string]any)
			if !ok {
				continue
			}
			id := ""
			for _, k := range []string{"quizId", "quiz_id", "id"} {
				if id = scalarString(m[k]); id != "" {
					break
				}
			}
			if id == "" {
				continue
			}
			out[id] = quizSummary(m)
		}
	}
	return out
}

func quizSummary(v any) training.QuizSummary {
	var s training.QuizSummary
	m, ok := v.(map[string]any)
	if !ok {
		// bare score
		if f, ok := toFloat(v); ok {
			s.Score = clamp(int(math.Round(f)))
			s.Attempted = true
		}
		return s
	}
	for _, k := range []string{"score", "lastScore", "last_score"} {
		if f, ok := toFloat(m[k]); ok {
			s.Score = clamp(int(math.Round(f)))
			break
		}
	}
	s.Passed, _ = toBool(m["passed"])
	if b, ok := toBool(m["attempted"]); ok {
		s.Attempted = b
	} else {
		s.Attempted = s.Passed || s.Score > 0
	}
	if s.Passed {
		s.Attempted = true
	}
	return s
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x) && !math.IsInf(x, 0)
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(x), "%"), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return 0, false
}

func toBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return b, err == nil
	}
	return false, false
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case json.Number:
		return x.String()
	}
	return ""
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
