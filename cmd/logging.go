package cmd

import (
	"log/slog"
	"os"

	"github.com/abhisek/studycast/internal/config"
)

// setupLogging installs a JSON slog handler on stderr as the default
// logger. Stdout stays free for command output and the MCP transport.
func setupLogging(level string) error {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return nil
}
