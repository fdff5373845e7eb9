package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abhisek/studycast/internal/app"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Index documents and rebuild the skill tree and assessment",
	Long: `Index one or more documents (txt, md, html, pdf, docx) into the corpus.

Every document triggers a fresh skill tree and assessment built from the
whole corpus. A failed run leaves the previous skill tree and assessment
untouched.

With --list, print the documents already in the corpus instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, _ := cmd.Flags().GetBool("list")
		if !list && len(args) == 0 {
			return fmt.Errorf("requires at least 1 file, or --list")
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if list {
			return listUploads(cmd, a)
		}

		for _, path := range args {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			res, err := a.Ingest.Ingest(cmd.Context(), filepath.Base(path), f)
			f.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Printf("%s (%d chunks, %d skills, %d questions)\n",
				res.Message, res.Chunks, res.SkillCount, res.QuestionCount)
		}
		return nil
	},
}

func listUploads(cmd *cobra.Command, a *app.App) error {
	ups, err := a.Corpus.Uploads(cmd.Context())
	if err != nil {
		return err
	}
	if len(ups) == 0 {
		fmt.Println("No documents indexed yet.")
		return nil
	}
	for _, u := range ups {
		fmt.Printf("%s  %-40s %4d chunks  %s\n",
			u.CreatedAt.Local().Format("2006-01-02 15:04"), u.Source, u.ChunkCount, u.Hash[:12])
	}
	fmt.Printf("%d documents\n", len(ups))
	return nil
}

func init() {
	ingestCmd.Flags().Bool("list", false, "List indexed documents instead of ingesting")
}
