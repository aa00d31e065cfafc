package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-learner/internal/quiz"
	"github.com/mind-engage/mindengage-learner/internal/training"
)

var takeCmd = &cobra.Command{
	Use:   "take <training-id> <quiz-id>",
	Short: "Take a quiz in the terminal",
	Long: "take runs one quiz attempt. Answer with an option number (1,3 for several),\n" +
		"t/f for true-false or free text. n/p move between questions, g N jumps,\n" +
		"s submits. Timed quizzes submit themselves when the time runs out.",
	Args: cobra.ExactArgs(2),
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
		trainingID, quizID := args[0], args[1]

		t, err := a.client.GetTraining(cmd.Context(), trainingID)
		if err != nil {
			return fmt.Errorf("load training: %w", err)
		}
		q, ok := t.Quiz(quizID)
		if !ok {
			return fmt.Errorf("quiz %s not found in training %s", quizID, trainingID)
		}
		if len(q.Questions) == 0 {
			return errors.New("quiz has no questions")
		}

		out := cmd.OutOrStdout()
		lines := readLines(cmd.Context(), cmd.InOrStdin())
		eng := quiz.New(q)
		fmt.Fprintf(out, "%s: %d questions, pass mark %d%%, %s\n",
			q.Title, len(q.Questions), q.EffectivePassingScore(), limitLabel(q.TimeLimit))

		for {
			if err := runAttempt(cmd.Context(), eng, lines, out); err != nil {
				return err
			}
			res, _ := eng.Result()
			o := a.orch.CompleteAttempt(cmd.Context(), trainingID, uid, q.ID, eng.Answers(), res)
			printOutcome(out, o)
			if res.Passed {
				return nil
			}
			fmt.Fprint(out, "Retake? [y/N] ")
			line, ok := <-lines
			if !ok || !strings.EqualFold(strings.TrimSpace(line), "y") || !eng.Reset() {
				return nil
			}
		}
	},
}

// readLines feeds input lines to a channel so the quiz loop can wait on the
// timer and the keyboard at once. The channel closes at EOF.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// runAttempt drives one attempt until it is submitted by the user, by the
// timer, or because input ended.
func runAttempt(ctx context.Context, eng *quiz.Engine, lines <-chan string, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go eng.RunTimer(ctx)

	done := eng.Done()
	printQuestion(out, eng.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			if res, _ := eng.Result(); res.AutoSubmitted {
				fmt.Fprintln(out, "\nTime is up.")
			}
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(out, "\nInput closed, submitting.")
				eng.Submit()
				return nil
			}
			if handleLine(eng, strings.TrimSpace(line), out) {
				return nil
			}
		}
	}
}

// handleLine applies one command or answer and reports whether the attempt
// was submitted.
func handleLine(eng *quiz.Engine, line string, out io.Writer) bool {
	snap := eng.Snapshot()
	switch strings.ToLower(line) {
	case "":
		printQuestion(out, snap)
		return false
	case "n", "next":
		eng.Next()
		printQuestion(out, eng.Snapshot())
		return false
	case "p", "prev", "previous":
		eng.Previous()
		printQuestion(out, eng.Snapshot())
		return false
	case "s", "submit":
		if missing := snap.TotalQuestions - len(snap.Answers); missing > 0 {
			fmt.Fprintf(out, "Submitting with %d unanswered.\n", missing)
		}
		eng.Submit()
		return true
	case "?", "h", "help":
		fmt.Fprintln(out, "answer: 2 | 1,3 | t | f | text   move: n p g N   submit: s")
		return false
	}
	if rest, ok := strings.CutPrefix(strings.ToLower(line), "g "); ok {
		n, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			fmt.Fprintln(out, "usage: g <question number>")
			return false
		}
		eng.GoTo(n - 1)
		printQuestion(out, eng.Snapshot())
		return false
	}
	if snap.Question == nil {
		return false
	}
	ans, err := parseAnswer(*snap.Question, line)
	if err != nil {
		fmt.Fprintln(out, err)
		return false
	}
	eng.SetAnswer(snap.Question.ID, ans)
	fmt.Fprintf(out, "Answer: %s\n", eng.Answers()[snap.Question.ID])
	return false
}

// parseAnswer turns terminal input into an answer for q. Option numbers are
// 1-based; several comma separated options form a multi-select answer.
func parseAnswer(q training.QuestionView, in string) (training.Answer, error) {
	in = strings.TrimSpace(in)
	switch q.Type {
	case training.KindTrueFalse:
		switch strings.ToLower(in) {
		case "t", "true", "1":
			return training.Single("true"), nil
		case "f", "false", "2":
			return training.Single("false"), nil
		}
		return training.Answer{}, errors.New("answer t or f")
	case training.KindMultipleChoice:
		parts := strings.Split(in, ",")
		picked := make([]string, 0, len(parts))
		for _, p := range parts {
			opt, ok := pickOption(q.Options, strings.TrimSpace(p))
			if !ok {
				return training.Answer{}, fmt.Errorf("pick an option between 1 and %d", len(q.Options))
			}
			picked = append(picked, opt)
		}
		if len(picked) == 1 {
			return training.Single(picked[0]), nil
		}
		return training.Multi(picked...), nil
	default:
		if in == "" {
			return training.Answer{}, errors.New("empty answer")
		}
		return training.Single(in), nil
	}
}

func pickOption(options []string, s string) (string, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1], true
		}
		return "", false
	}
	for _, o := range options {
		if strings.EqualFold(o, s) {
			return o, true
		}
	}
	return "", false
}

func printQuestion(out io.Writer, s quiz.Snapshot) {
	if s.Question == nil {
		return
	}
	q := s.Question
	fmt.Fprintf(out, "\nQuestion %d/%d (%d pts)", s.CurrentIndex+1, s.TotalQuestions, q.Points)
	if s.TimeRemaining != nil {
		fmt.Fprintf(out, "  [%d:%02d left]", *s.TimeRemaining/60, *s.TimeRemaining%60)
	}
	fmt.Fprintf(out, "\n%s\n", q.Text)
	if q.MultiSelect {
		fmt.Fprintln(out, "(select all that apply)")
	}
	chosen := s.Answers[q.ID].Set()
	for i, o := range q.Options {
		_, sel := chosen[o]
		box := "[ ]"
		if sel {
			box = "[x]"
		}
		fmt.Fprintf(out, "  %s %d. %s\n", box, i+1, o)
	}
	if q.Type == training.KindShortAnswer {
		if cur := s.Answers[q.ID]; !cur.IsZero() {
			fmt.Fprintf(out, "  current: %s\n", cur)
		}
	}
}
