package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/studycast/internal/docstore"
	"github.com/abhisek/studycast/internal/skilltree"
)

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Browse the synthesized skill tree",
}

var skillListCmd = &cobra.Command{
	Use:   "list",
	Short: "List skills as a tree (or only the leaf skills)",
	RunE: func(cmd *cobra.Command, args []string) error {
		leavesOnly, _ := cmd.Flags().GetBool("leaves")

		docs, err := openDocs(cmd)
		if err != nil {
			return err
		}
		tree, err := skilltree.Load(docs)
		if errors.Is(err, docstore.ErrNotFound) {
			fmt.Println("No skill tree yet. Run `studycast ingest <file>` first.")
			return nil
		}
		if err != nil {
			return err
		}

		if leavesOnly {
			leaves := tree.Leaves()
			fmt.Printf("%-40s  %s\n", "Skill", "Description")
			fmt.Println(strings.Repeat("─", 100))
			for _, s := range leaves {
				name := s.Name
				if len(name) > 40 {
					name = name[:37] + "..."
				}
				fmt.Printf("%-40s  %s\n", name, s.Description)
			}
			fmt.Printf("\n%d skills\n", len(leaves))
			return nil
		}

		var walk func(s skilltree.Skill, depth int)
		walk = func(s skilltree.Skill, depth int) {
			fmt.Printf("%s%s", indent(depth), s.Name)
			if s.Description != "" {
				fmt.Printf(": %s", s.Description)
			}
			fmt.Println()
			for _, c := range s.Children {
				walk(c, depth+1)
			}
		}
		walk(tree.Root, 0)
		fmt.Printf("\n%d leaf skills\n", len(tree.Leaves()))
		return nil
	},
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}

func init() {
	skillListCmd.Flags().Bool("leaves", false, "Only list leaf skills, the quiz targets")

	skillCmd.AddCommand(skillListCmd)
}
