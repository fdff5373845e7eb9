package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/studycast/internal/feed"
	"github.com/abhisek/studycast/internal/remediation"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Print the podcast RSS feed (or the HTML listing page)",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetBool("html")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		artifacts, err := remediation.NewArtifacts(cfg.AudioDir())
		if err != nil {
			return err
		}
		pub := feed.NewPublisher(artifacts, feed.DefaultConfig(cfg.BaseURL()))

		if page {
			return pub.Page(os.Stdout)
		}
		out, err := pub.RSS()
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

func init() {
	feedCmd.Flags().Bool("html", false, "Print the HTML listing page instead of RSS")
}
