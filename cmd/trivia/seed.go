package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/terra-clan/trivia-engine/internal/cache"
	"github.com/terra-clan/trivia-engine/internal/catalog"
	"github.com/terra-clan/trivia-engine/internal/storage"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Import a YAML question catalog",
	Long: "seed imports a YAML catalog file or directory (default: the built-in catalog). " +
		"Questions are matched by prompt, so seeding twice updates instead of duplicating.",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Catalog.Path
		if p, _ := cmd.Flags().GetString("path"); p != "" {
			path = p
		}

		n, err := runSeed(cmd.Context(), path)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d questions imported\n", n)
		return nil
	},
}

func init() {
	seedCmd.Flags().String("path", "", "Catalog file or directory (overrides CATALOG_PATH)")
}

func runSeed(ctx context.Context, path string) (int, error) {
	loader, err := loadCatalog(path)
	if err != nil {
		return 0, err
	}

	var importer catalog.Importer

	if isPostgresDSN(cfg.Database.DSN) {
		if _, err := storage.MigrateFromDSN(ctx, cfg.Database.DSN, migrationsFS(cfg.Database)); err != nil {
			return 0, fmt.Errorf("run migrations: %w", err)
		}

		pg, err := catalog.NewPostgresImporter(ctx, cfg.Database.DSN)
		if err != nil {
			return 0, err
		}
		defer pg.Close()
		importer = pg
	} else {
		repo, err := openStore(ctx, cfg.Database)
		if err != nil {
			return 0, err
		}
		defer repo.Close()
		importer = catalog.NewSeeder(repo)
	}

	n, err := importer.Import(ctx, loader.Questions())
	if err != nil {
		return 0, fmt.Errorf("import catalog: %w", err)
	}
	slog.Info("catalog imported", "questions", n)

	if cfg.Redis.Enabled {
		invalidateQuestionCache(ctx)
	}

	return n, nil
}

// invalidateQuestionCache drops cached question pools so servers pick up
// the new catalog
func invalidateQuestionCache(ctx context.Context) {
	client, err := cache.Connect(ctx, cache.Options{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		slog.Warn("question cache not invalidated", "error", err)
		return
	}
	defer client.Close()

	if err := cache.InvalidateQuestions(ctx, client); err != nil {
		slog.Warn("question cache not invalidated", "error", err)
	}
}
