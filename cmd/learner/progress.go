package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-learner/internal/bootcamp"
	"github.com/mind-engage/mindengage-learner/internal/completion"
	"github.com/mind-engage/mindengage-learner/internal/journal"
	"github.com/mind-engage/mindengage-learner/internal/training"
)

var progressCmd = &cobra.Command{
	Use:   "progress <training-id>",
	Short: "Show a training with your progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		uid, err := a.requireUser()
		if err != nil {
			return err
		}
		v, err := a.tracker.LoadView(cmd.Context(), args[0], uid)
		if err != nil {
			return fmt.Errorf("load training: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n%s\n", v.Training.Title, strings.Repeat("─", 60))
		printProgress(out, v.Progress)

		fmt.Fprintln(out, "\nContent:")
		done := v.ContentCompleted()
		for _, c := range v.Training.Content {
			fmt.Fprintf(out, "  %s  %-10s %s\n", mark(done[c.ID]), c.ID, c.Title)
		}
		if len(v.Training.Quizzes) > 0 {
			fmt.Fprintln(out, "\nQuizzes:")
			for _, q := range v.Training.Quizzes {
				fmt.Fprintf(out, "  %-10s %s (pass %d%%, %s)\n", q.ID, q.Title, q.EffectivePassingScore(), limitLabel(q.TimeLimit))
			}
		}
		if v.QuizStatusErr != "" {
			fmt.Fprintf(out, "\nQuiz status unavailable: %s\n", v.QuizStatusErr)
		}
		return nil
	},
}

var quizStatusCmd = &cobra.Command{
	Use:   "quiz-status <training-id>",
	Short: "Show attempts and results per quiz",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		rep, err := a.client.GetQuizStatus(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("quiz status: %w", err)
		}
		printQuizStatus(cmd.OutOrStdout(), rep.Reconciled())
		return nil
	},
}

var bootcampCmd = &cobra.Command{
	Use:   "bootcamp <bootcamp-id>",
	Short: "Show aggregate progress over a bootcamp",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		uid, err := a.requireUser()
		if err != nil {
			return err
		}
		v, err := bootcamp.Load(cmd.Context(), a.client, a.tracker, args[0], uid)
		if err != nil {
			return fmt.Errorf("load bootcamp: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n%s\n", v.Bootcamp.Title, strings.Repeat("─", 60))
		for i, e := range v.Entries {
			fmt.Fprintf(out, "%2d. %-12s %-16s %3d%%\n", i+1, e.TrainingID, e.Progress.Status, e.Progress.ProgressPercentage)
		}
		s := v.Summary
		fmt.Fprintf(out, "\nOverall: %d%% (%d/%d completed", s.Percentage, s.Done, s.Total)
		if s.Unknown > 0 {
			fmt.Fprintf(out, ", %d unavailable", s.Unknown)
		}
		fmt.Fprintln(out, ")")
		return nil
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete <training-id> <content-id>",
	Short: "Mark a content item as done",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		uid, err := a.requireUser()
		if err != nil {
			return err
		}
		p, err := a.tracker.MarkContentComplete(cmd.Context(), args[0], uid, args[1])
		if err != nil {
			return fmt.Errorf("mark content: %w", err)
		}
		out := cmd.OutOrStdout()
		if !p.IsContentCompleted() {
			printProgress(out, p)
			return nil
		}
		printOutcome(out, a.orch.Reconcile(cmd.Context(), args[0], uid, p))
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <training-id>",
	Short: "Re-check whether a training is complete and record it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		uid, err := a.requireUser()
		if err != nil {
			return err
		}
		cur := a.tracker.Fetch(cmd.Context(), args[0], uid)
		out := a.orch.Reconcile(cmd.Context(), args[0], uid, cur)
		printOutcome(cmd.OutOrStdout(), out)
		return out.Err
	},
}

var journalCmd = &cobra.Command{
	Use:   "journal [training-id]",
	Short: "List recorded attempt and completion events",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		if a.journal == nil {
			return errors.New("journal is disabled (ENABLE_JOURNAL=false)")
		}
		key := ""
		if len(args) == 1 {
			uid, err := a.requireUser()
			if err != nil {
				return err
			}
			key = journal.Key(args[0], uid)
		}
		limit, _ := cmd.Flags().GetInt("limit")
		evs, err := a.journal.List(cmd.Context(), key, limit)
		if err != nil {
			return fmt.Errorf("query journal: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(evs) == 0 {
			fmt.Fprintln(out, "No events found.")
			return nil
		}
		fmt.Fprintf(out, "%-6s  %-19s  %-20s  %s\n", "Offset", "Time", "Type", "Data")
		fmt.Fprintln(out, strings.Repeat("─", 90))
		for _, e := range evs {
			fmt.Fprintf(out, "%-6d  %-19s  %-20s  %s\n",
				e.Offset, time.Unix(e.CreatedAt, 0).Local().Format("2006-01-02 15:04:05"), e.Type, string(e.Data))
		}
		return nil
	},
}

func init() {
	journalCmd.Flags().Int("limit", 20, "maximum number of events")
}

func printProgress(out io.Writer, p training.Progress) {
	if p.Status.IsFault() {
		fmt.Fprintf(out, "Progress: unavailable (%s)\n", p.Status)
		return
	}
	fmt.Fprintf(out, "Progress: %d%%  %s\n", p.ProgressPercentage, p.Status)
}

func printQuizStatus(out io.Writer, rep training.QuizStatusReport) {
	if rep.TotalQuizzes == 0 {
		fmt.Fprintln(out, "This training has no quizzes.")
		return
	}
	fmt.Fprintf(out, "%-12s  %-9s  %-6s  %s\n", "Quiz", "Attempted", "Passed", "Last score")
	for _, s := range rep.QuizStatuses {
		score := "-"
		if s.LastScore != nil {
			score = fmt.Sprintf("%d%%", *s.LastScore)
		}
		fmt.Fprintf(out, "%-12s  %-9s  %-6s  %s\n", s.QuizID, mark(s.Attempted), mark(s.Passed), score)
	}
	fmt.Fprintf(out, "\nAll passed: %v\n", rep.AllPassed)
}

func printOutcome(out io.Writer, o completion.Outcome) {
	if o.Result != nil {
		r := o.Result
		verdict := "not passed"
		if r.Passed {
			verdict = "passed"
		}
		fmt.Fprintf(out, "Score: %d%% (%d/%d correct, pass mark %d%%), %s\n",
			r.Score, r.CorrectAnswersCount, r.TotalQuestions, r.PassingScore, verdict)
		if r.AutoSubmitted {
			fmt.Fprintln(out, "Time ran out; the attempt was submitted automatically.")
		}
	}
	switch o.Phase {
	case completion.PhaseFailed:
		fmt.Fprintf(out, "The LMS did not confirm: %v\n", o.Err)
		if o.Result != nil {
			fmt.Fprintln(out, "Your local result is shown above. Revisit the quiz to try again.")
		}
		return
	case completion.PhaseOptimistic:
		fmt.Fprintln(out, "Waiting for the LMS to confirm.")
		return
	}
	switch o.DisplayStatus() {
	case training.StatusCompleted:
		if o.UpdateIssued {
			fmt.Fprintln(out, "Training completed.")
		} else {
			fmt.Fprintln(out, "Training already completed.")
		}
	case training.StatusQuizzesPending:
		fmt.Fprintln(out, "Content done. Pass the remaining quizzes to complete the training.")
	default:
		printProgress(out, o.Progress)
	}
}

func mark(b bool) string {
	if b {
		return "✓"
	}
	return "·"
}

func limitLabel(minutes int) string {
	if minutes <= 0 {
		return "untimed"
	}
	return fmt.Sprintf("%d min", minutes)
}
