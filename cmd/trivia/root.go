package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/terra-clan/trivia-engine/internal/config"
)

// cfg is loaded once before any subcommand runs
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "trivia",
	Short:        "Adaptive difficulty trivia quiz",
	Long:         "trivia runs an adaptive difficulty quiz as an HTTP API or as a console game.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}

		if db, _ := cmd.Flags().GetString("db"); db != "" {
			loaded.Database.DSN = db
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			loaded.Log.Level = level
		}

		if err := setupLogging(os.Stdout, loaded.Log.Level); err != nil {
			return err
		}

		cfg = loaded
		return nil
	},
}

// Execute runs the command line
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "PostgreSQL DSN or SQLite file path (overrides DATABASE_DSN)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(migrateCmd)
}

// setupLogging installs a JSON slog handler as the default logger
func setupLogging(w io.Writer, level string) error {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
	return nil
}
