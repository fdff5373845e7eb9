package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/abhisek/studycast/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, podcast feed and metrics endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		addr := a.Config.Addr
		if flagAddr, _ := cmd.Flags().GetString("addr"); flagAddr != "" {
			addr = flagAddr
		}

		slog.Info("starting studycast",
			"version", version,
			"data_dir", a.Config.DataDir,
			"db", a.Config.DBPath,
			"feed", a.Config.BaseURL()+"/rss_feed")
		return server.New(a).ListenAndServe(cmd.Context(), addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides addr from config)")
}
