package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/terra-clan/trivia-engine/internal/catalog"
	"github.com/terra-clan/trivia-engine/internal/config"
	"github.com/terra-clan/trivia-engine/internal/storage"
	"github.com/terra-clan/trivia-engine/migrations"
)

// isPostgresDSN tells a PostgreSQL DSN apart from a SQLite file path
func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

// migrationsFS returns the migrations directory override, or the
// migrations built into the binary
func migrationsFS(c config.DatabaseConfig) fs.FS {
	if c.MigrationsDir != "" {
		return os.DirFS(c.MigrationsDir)
	}
	return migrations.FS
}

// openStore opens the repository named by the database config. An empty
// DSN opens an in-memory SQLite database.
func openStore(ctx context.Context, c config.DatabaseConfig) (storage.Repository, error) {
	if !isPostgresDSN(c.DSN) {
		path := c.DSN
		if path == "" {
			path = ":memory:"
		}
		repo, err := storage.NewSQLiteRepository(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		slog.Info("sqlite repository opened", "path", path)
		return repo, nil
	}

	applied, err := storage.MigrateFromDSN(ctx, c.DSN, migrationsFS(c))
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if len(applied) > 0 {
		slog.Info("database migrations applied", "migrations", applied)
	}

	repo, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{
		DSN:            c.DSN,
		MaxOpenConns:   int32(c.MaxConns),
		MaxIdleConns:   int32(c.MinConns),
		ConnectRetries: c.ConnectRetries,
		RetryInterval:  c.RetryInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	slog.Info("database connected successfully")
	return repo, nil
}

// openRepository opens the repository and seeds it from the catalog when
// it holds no questions yet
func openRepository(ctx context.Context, c *config.Config) (storage.Repository, error) {
	repo, err := openStore(ctx, c.Database)
	if err != nil {
		return nil, err
	}

	counts, err := repo.CountByTier(ctx)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("count questions: %w", err)
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	if total > 0 {
		return repo, nil
	}

	loader, err := loadCatalog(c.Catalog.Path)
	if err != nil {
		repo.Close()
		return nil, err
	}

	n, err := catalog.NewSeeder(repo).Import(ctx, loader.Questions())
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("seed catalog: %w", err)
	}
	slog.Info("empty catalog seeded", "questions", n)

	return repo, nil
}

// loadCatalog loads the catalog at path, or the built-in one
func loadCatalog(path string) (*catalog.Loader, error) {
	loader := catalog.NewLoader()

	if path == "" {
		if err := loader.LoadDefault(); err != nil {
			return nil, fmt.Errorf("load built-in catalog: %w", err)
		}
		return loader, nil
	}

	if err := loader.LoadPath(path); err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return loader, nil
}
