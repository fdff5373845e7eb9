package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/studycast/internal/app"
	"github.com/abhisek/studycast/internal/config"
	"github.com/abhisek/studycast/internal/llm"
)

var rootCmd = &cobra.Command{
	Use:   "studycast",
	Short: "Turn study material into quizzes and podcasts",
	Long: `studycast indexes your documents, builds a skill tree and a quiz from them,
and turns every question you miss into a short spoken explanation published
as a podcast feed.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return setupLogging(cfg.LogLevel)
	},
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (overrides STUDYCAST_CONFIG env var)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides STUDYCAST_DB env var)")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory for documents, audio and uploads (overrides STUDYCAST_DATA_DIR env var)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(assessmentCmd)
	rootCmd.AddCommand(skillCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file and environment, then applies the
// command-line overrides, which take the highest priority.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("STUDYCAST_CONFIG")
	}
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		os.Setenv("STUDYCAST_DATA_DIR", dir)
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		os.Setenv("STUDYCAST_DB", db)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// resolveDBPath returns the database path from --db, STUDYCAST_DB, the
// config file, or the default data directory, in that order.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	return cfg.DBPath, nil
}

// openApp loads the configuration and builds the full pipeline.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg, llm.ConfigFromEnv(), nil)
}
