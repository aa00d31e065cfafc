package completion

import "github.com/mind-engage/mindengage-learner/internal/training"

// Decide maps content completion and the quiz report onto a training status:
//
//	content incomplete                  -> IN_PROGRESS
//	content complete, no quizzes        -> COMPLETED
//	content complete, every quiz passed -> COMPLETED
//	content complete, any quiz unpassed -> QUIZZES_PENDING
func Decide(contentComplete bool, report training.QuizStatusReport) training.Status {
	if !contentComplete {
		return training.StatusInProgress
	}
	report = report.Reconciled()
	if report.TotalQuizzes == 0 || report.AllPassed {
		return training.StatusCompleted
	}
	return training.StatusQuizzesPending
}
