package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/trivia-engine/internal/console"
	"github.com/terra-clan/trivia-engine/internal/quiz"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the quiz in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		pause, _ := cmd.Flags().GetDuration("pause")

		// Logs go to stderr so they do not interleave with the game
		level := cfg.Log.Level
		if !cmd.Flags().Changed("log-level") {
			level = "warn"
		}
		if err := setupLogging(os.Stderr, level); err != nil {
			return err
		}

		repo, err := openRepository(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer repo.Close()

		game := &console.Game{
			Engine: quiz.NewEngine(repo, repo, quiz.WithTarget(cfg.Quiz.Target)),
			In:     cmd.InOrStdin(),
			Out:    cmd.OutOrStdout(),
			Pause:  pause,
		}

		if _, err := game.Run(cmd.Context()); err != nil {
			return fmt.Errorf("game failed: %w", err)
		}
		return nil
	},
}

func init() {
	playCmd.Flags().Duration("pause", 1500*time.Millisecond, "How long each result stays on screen")
}
