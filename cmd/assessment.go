package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/studycast/internal/assessment"
	"github.com/abhisek/studycast/internal/docstore"
)

var assessmentCmd = &cobra.Command{
	Use:   "assessment",
	Short: "Inspect the current assessment",
}

var assessmentShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every question with its answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		docs, err := openDocs(cmd)
		if err != nil {
			return err
		}
		quiz, err := assessment.Load(docs)
		if errors.Is(err, docstore.ErrNotFound) {
			fmt.Println("No assessment yet. Run `studycast ingest <file>` first.")
			return nil
		}
		if err != nil {
			return err
		}

		if skillsOnly, _ := cmd.Flags().GetBool("skills"); skillsOnly {
			for _, skill := range quiz.Skills() {
				fmt.Println(skill)
			}
			return nil
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(quiz)
		}

		for i, q := range quiz.Questions {
			fmt.Printf("── %d. %s ──\n", i+1, q.Skill)
			fmt.Println(q.Prompt)
			for j, a := range q.Answers {
				mark := " "
				if a.IsCorrect {
					mark = "✓"
				}
				fmt.Printf("  %s %d) %s\n", mark, j, a.Text)
			}
			fmt.Printf("  source: %s\n\n", q.Source)
		}
		fmt.Printf("%d questions\n", len(quiz.Questions))
		return nil
	},
}

// openDocs opens the document store from the configured data directory.
func openDocs(cmd *cobra.Command) (*docstore.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return docstore.New(cfg.DocsDir())
}

func init() {
	assessmentShowCmd.Flags().Bool("json", false, "Print the raw JSON document")
	assessmentShowCmd.Flags().Bool("skills", false, "Print only the assessed skills, one per line")

	assessmentCmd.AddCommand(assessmentShowCmd)
}
