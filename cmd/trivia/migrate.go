package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terra-clan/trivia-engine/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending PostgreSQL migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isPostgresDSN(cfg.Database.DSN) {
			return errors.New("migrate needs a PostgreSQL DSN; SQLite databases create their schema on open")
		}

		applied, err := storage.MigrateFromDSN(cmd.Context(), cfg.Database.DSN, migrationsFS(cfg.Database))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(applied) == 0 {
			fmt.Fprintln(out, "database is up to date")
			return nil
		}
		for _, name := range applied {
			fmt.Fprintf(out, "applied %s\n", name)
		}
		return nil
	},
}
