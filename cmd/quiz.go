package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/studycast/internal/docstore"
	"github.com/abhisek/studycast/internal/evaluation"
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Take the current assessment in the terminal",
	Long: `Answer the current assessment interactively, then get tutor feedback.

With --podcasts, an audio explanation is generated for every missed question
before the command exits. The files show up in the podcast feed.`,
	RunE: runQuiz,
}

func init() {
	quizCmd.Flags().Bool("podcasts", false, "Generate podcasts for missed questions")
	quizCmd.Flags().Bool("no-feedback", false, "Skip the tutor feedback")
}

func runQuiz(cmd *cobra.Command, args []string) error {
	podcasts, _ := cmd.Flags().GetBool("podcasts")
	noFeedback, _ := cmd.Flags().GetBool("no-feedback")
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	quiz, err := a.Assessment()
	if errors.Is(err, docstore.ErrNotFound) {
		fmt.Fprintln(out, "No assessment yet. Run `studycast ingest <file>` first.")
		return nil
	}
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	answers := evaluation.AnswerSet{}
	total := len(quiz.Questions)

	for i, q := range quiz.Questions {
		fmt.Fprintf(out, "── Question %d/%d (%s) ──\n", i+1, total, q.Skill)
		fmt.Fprintln(out, q.Prompt)
		for j, ans := range q.Answers {
			fmt.Fprintf(out, "  %d) %s\n", j+1, ans.Text)
		}

		fmt.Fprint(out, "\nYour answer: ")
		if !scanner.Scan() {
			fmt.Fprintln(out, "\n(input closed)")
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			fmt.Fprintln(out, "(skipped)")
			fmt.Fprintln(out)
			continue
		}
		choice, err := strconv.Atoi(input)
		if err != nil || choice < 1 || choice > len(q.Answers) {
			fmt.Fprintf(out, "(%q is not a choice, skipped)\n\n", input)
			continue
		}
		answers[q.Skill] = strconv.Itoa(choice - 1)

		if q.Answers[choice-1].IsCorrect {
			fmt.Fprintln(out, "\033[32m✓ Correct!\033[0m")
		} else {
			correct, _ := q.CorrectAnswer()
			fmt.Fprintf(out, "\033[31m✗ Wrong.\033[0m Answer: %s\n", correct)
		}
		fmt.Fprintln(out)
	}

	if len(answers) == 0 {
		fmt.Fprintln(out, "No answers given.")
		return nil
	}

	res, err := a.Evaluate(ctx, answers)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "── Summary: %d/%d correct ──\n", res.Correct, res.Total)
	for _, r := range res.Records {
		fmt.Fprintf(out, "  review %s (source: %s)\n", r.Skill, r.Source)
	}

	if !noFeedback {
		fmt.Fprintln(out)
		for frag, err := range a.Tutor.Feedback(ctx, res.Records, res.Correct, res.Total) {
			if err != nil {
				fmt.Fprintf(out, "\n(feedback unavailable: %v)\n", err)
				break
			}
			fmt.Fprint(out, frag)
		}
		fmt.Fprintln(out)
	}

	if podcasts && len(res.Records) > 0 {
		fmt.Fprintf(out, "\nGenerating %d podcasts...\n", len(res.Records))
		if !a.Queue.Submit(res.Records) {
			return errors.New("podcast queue is full")
		}
		// Close drains the queue.
		a.Queue.Close()
		fmt.Fprintf(out, "Podcasts are in %s\n", a.Artifacts.Dir())
	}
	return nil
}
