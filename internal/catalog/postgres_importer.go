package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/terra-clan/trivia-engine/internal/models"
)

// PostgresImporter bulk loads a catalog with COPY. It needs the schema
// created by the migrations.
type PostgresImporter struct {
	db *sql.DB
}

// NewPostgresImporter connects to PostgreSQL
func NewPostgresImporter(ctx context.Context, dsn string) (*PostgresImporter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresImporter{db: db}, nil
}

// Close closes the connection
func (p *PostgresImporter) Close() error {
	return p.db.Close()
}

// Import implements Importer. Questions are copied into a temporary table
// and merged into questions, updating rows that share a prompt.
func (p *PostgresImporter) Import(ctx context.Context, questions []models.Question) (int, error) {
	if len(questions) == 0 {
		return 0, nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		CREATE TEMP TABLE catalog_import (
			prompt         TEXT,
			options        TEXT[],
			correct_option TEXT,
			difficulty     VARCHAR(16)
		) ON COMMIT DROP
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to create import table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("catalog_import", "prompt", "options", "correct_option", "difficulty"))
	if err != nil {
		return 0, fmt.Errorf("failed to start copy: %w", err)
	}

	for _, q := range questions {
		if _, err := stmt.ExecContext(ctx, q.Prompt, pq.Array(q.Options), q.CorrectOption, string(q.Tier)); err != nil {
			stmt.Close()
			return 0, fmt.Errorf("failed to copy %q: %w", q.Prompt, err)
		}
	}

	// Flush buffered rows
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return 0, fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return 0, fmt.Errorf("failed to finish copy: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO questions (prompt, options, correct_option, difficulty)
		SELECT DISTINCT ON (prompt) prompt, options, correct_option, difficulty
		FROM catalog_import
		ORDER BY prompt
		ON CONFLICT (prompt) DO UPDATE
		SET options = EXCLUDED.options, correct_option = EXCLUDED.correct_option, difficulty = EXCLUDED.difficulty
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to merge catalog: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}

	n, _ := result.RowsAffected()
	slog.Info("catalog imported", "questions", n, "driver", "postgres")

	return int(n), nil
}
