package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/studycast/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the studycast tools over MCP on stdin/stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		return mcpserver.Serve(cmd.Context(), mcpserver.New(a, version))
	},
}
