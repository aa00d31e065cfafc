package training

// Status is the lifecycle label of a user's relationship to a training, or
// a fault code when progress could not be determined.
type Status string

const (
	StatusNotStarted     Status = "NOT_STARTED"
	StatusInProgress     Status = "IN_PROGRESS"
	StatusQuizzesPending Status = "QUIZZES_PENDING"
	StatusCompleted      Status = "COMPLETED"

	// Fault codes. These mean "cannot determine progress", never "not started".
	StatusError         Status = "ERROR"
	StatusNoUser        Status = "NO_USER"
	StatusInvalidParams Status = "INVALID_PARAMS"
)

func (s Status) IsFault() bool {
	switch s {
	case StatusError, StatusNoUser, StatusInvalidParams:
		return true
	}
	return false
}

func (s Status) IsLifecycle() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusQuizzesPending, StatusCompleted:
		return true
	}
	return false
}

// QuizSummary is the last known result for one quiz inside a progress payload.
type QuizSummary struct {
	Score     int  `json:"score"`
	Passed    bool `json:"passed"`
	Attempted bool `json:"attempted"`
}

// Progress is the client-side normalized view of one (user, training) pair.
type Progress struct {
	ProgressPercentage      int                    `json:"progressPercentage"`
	Status                  Status                 `json:"status"`
	CompletedContentItemIDs []string               `json:"completedContentItemIds"`
	Completed               bool                   `json:"completed"`
	QuizResultsByQuizID     map[string]QuizSummary `json:"quizResultsByQuizId"`
}

// Fault returns a sentinel progress for status s.
func Fault(s Status) Progress {
	return Progress{
		Status:                  s,
		CompletedContentItemIDs: []string{},
		QuizResultsByQuizID:     map[string]QuizSummary{},
	}
}

func (p Progress) HasStarted() bool {
	return p.Status == StatusInProgress || p.Status == StatusCompleted || p.ProgressPercentage > 0
}

func (p Progress) IsContentCompleted() bool {
	return p.ProgressPercentage >= 100
}

func (p Progress) HasCompletedContent(id string) bool {
	for _, c := range p.CompletedContentItemIDs {
		if c == id {
			return true
		}
	}
	return false
}
