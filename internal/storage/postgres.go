package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/trivia-engine/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN            string
	MaxOpenConns   int32
	MaxIdleConns   int32
	MaxLifetime    time.Duration
	ConnectRetries int
	RetryInterval  time.Duration
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPostgresRepository creates a new PostgreSQL repository. The first
// ping is retried ConnectRetries times so the service can start before
// the database accepts connections.
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	// Set pool configuration
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25 // default
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 2 // default
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pingWithRetry(ctx, pool, cfg.ConnectRetries, cfg.RetryInterval); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresRepository{pool: pool}, nil
}

func pingWithRetry(ctx context.Context, pool *pgxpool.Pool, retries int, interval time.Duration) error {
	if retries < 1 {
		retries = 1
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}

	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		if err = pool.Ping(ctx); err == nil {
			return nil
		}

		slog.Warn("database not reachable",
			"attempt", attempt,
			"max_attempts", retries,
			"error", err,
		)

		if attempt == retries {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to ping database: %w", ctx.Err())
		case <-time.After(interval):
		}
	}

	return fmt.Errorf("failed to ping database after %d attempts: %w", retries, err)
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Pool exposes the underlying pool for migrations
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// --- Questions ---

// ListByTier returns all questions of a difficulty tier
func (r *PostgresRepository) ListByTier(ctx context.Context, tier models.Tier) ([]models.Question, error) {
	query := `
		SELECT id, prompt, options, correct_option, difficulty, created_at
		FROM questions
		WHERE difficulty = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, string(tier))
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	questions := make([]models.Question, 0)

	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}

	return questions, nil
}

// CreateQuestion inserts a question or refreshes the one with the same prompt
func (r *PostgresRepository) CreateQuestion(ctx context.Context, q *models.Question) error {
	query := `
		INSERT INTO questions (prompt, options, correct_option, difficulty)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (prompt) DO UPDATE
		SET options = EXCLUDED.options, correct_option = EXCLUDED.correct_option, difficulty = EXCLUDED.difficulty
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		q.Prompt,
		q.Options,
		q.CorrectOption,
		string(q.Tier),
	).Scan(&q.ID, &q.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}

	return nil
}

// CountByTier returns the number of questions per tier
func (r *PostgresRepository) CountByTier(ctx context.Context) (map[models.Tier]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT difficulty, COUNT(*) FROM questions GROUP BY difficulty`)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Tier]int)
	for rows.Next() {
		var tier string
		var n int
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[models.Tier(tier)] = n
	}

	return counts, rows.Err()
}

// --- Sessions ---

// CreateSession creates a new session record with its assigned questions
func (r *PostgresRepository) CreateSession(ctx context.Context, s *models.Session) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO quiz_sessions (id, difficulty, cursor_pos, correct_count, incorrect_count, streak, status, created_at, updated_at, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`

		_, err := tx.Exec(ctx, query,
			s.ID,
			string(s.Tier),
			s.Cursor,
			s.CorrectCount,
			s.IncorrectCount,
			s.Streak,
			string(s.Status),
			s.CreatedAt,
			s.UpdatedAt,
			nullTime(s.CompletedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}

		return replaceAssigned(ctx, tx, s)
	})
}

// GetSession retrieves a session and its assigned questions by ID
func (r *PostgresRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, difficulty, cursor_pos, correct_count, incorrect_count, streak, status, created_at, updated_at, completed_at
		FROM quiz_sessions
		WHERE id = $1
	`

	s, err := scanSession(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	questions, err := r.assignedQuestions(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	s.Questions = questions

	return s, nil
}

// UpdateSession updates an existing session
func (r *PostgresRepository) UpdateSession(ctx context.Context, s *models.Session) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := updateSession(ctx, tx, s); err != nil {
			return err
		}
		return replaceAssigned(ctx, tx, s)
	})
}

// SaveAnswer locks the session row, stores the new state and the answer
// in one transaction
func (r *PostgresRepository) SaveAnswer(ctx context.Context, s *models.Session, answer *models.AnswerRecord) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx, `SELECT id FROM quiz_sessions WHERE id = $1 FOR UPDATE`, s.ID).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock session: %w", err)
		}

		if err := updateSession(ctx, tx, s); err != nil {
			return err
		}

		if err := replaceAssigned(ctx, tx, s); err != nil {
			return err
		}

		query := `
			INSERT INTO quiz_answers (session_id, question_id, answer, is_correct, difficulty, answered_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err = tx.Exec(ctx, query,
			answer.SessionID,
			answer.QuestionID,
			answer.Answer,
			answer.IsCorrect,
			string(answer.Tier),
			answer.AnsweredAt,
		)
		if err != nil {
			return fmt.Errorf("failed to record answer: %w", err)
		}

		return nil
	})
}

// CompleteSession marks a session as completed
func (r *PostgresRepository) CompleteSession(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE quiz_sessions
		SET status = $2, completed_at = $3, updated_at = $3
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, string(models.SessionCompleted), at)
	if err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}

	return nil
}

// ListAnswers returns the answers of a session in submission order
func (r *PostgresRepository) ListAnswers(ctx context.Context, sessionID string) ([]*models.AnswerRecord, error) {
	query := `
		SELECT session_id, question_id, answer, is_correct, difficulty, answered_at
		FROM quiz_answers
		WHERE session_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	defer rows.Close()

	var answers []*models.AnswerRecord

	for rows.Next() {
		var a models.AnswerRecord
		var tier string

		if err := rows.Scan(&a.SessionID, &a.QuestionID, &a.Answer, &a.IsCorrect, &tier, &a.AnsweredAt); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}

		a.Tier = models.Tier(tier)
		answers = append(answers, &a)
	}

	return answers, rows.Err()
}

// ListStaleSessions returns unarchived sessions idle since olderThan
func (r *PostgresRepository) ListStaleSessions(ctx context.Context, olderThan time.Time, limit int) ([]*models.Session, error) {
	query := `
		SELECT id, difficulty, cursor_pos, correct_count, incorrect_count, streak, status, created_at, updated_at, completed_at
		FROM quiz_sessions
		WHERE status <> 'completed'
		  AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2
	`

	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get stale sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session

	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

func (r *PostgresRepository) assignedQuestions(ctx context.Context, q querier, sessionID string) ([]models.Question, error) {
	query := `
		SELECT q.id, q.prompt, q.options, q.correct_option, q.difficulty, q.created_at
		FROM quiz_session_questions sq
		JOIN questions q ON q.id = sq.question_id
		WHERE sq.session_id = $1
		ORDER BY sq.position
	`

	rows, err := q.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assigned questions: %w", err)
	}
	defer rows.Close()

	questions := make([]models.Question, 0)
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *question)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assigned questions: %w", err)
	}

	return questions, nil
}

func updateSession(ctx context.Context, q querier, s *models.Session) error {
	query := `
		UPDATE quiz_sessions
		SET difficulty = $2, cursor_pos = $3, correct_count = $4, incorrect_count = $5, streak = $6, status = $7, updated_at = $8, completed_at = $9
		WHERE id = $1
	`

	result, err := q.Exec(ctx, query,
		s.ID,
		string(s.Tier),
		s.Cursor,
		s.CorrectCount,
		s.IncorrectCount,
		s.Streak,
		string(s.Status),
		s.UpdatedAt,
		nullTime(s.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", s.ID, ErrNotFound)
	}

	return nil
}

// replaceAssigned rewrites the assigned question set of a session
func replaceAssigned(ctx context.Context, q querier, s *models.Session) error {
	if _, err := q.Exec(ctx, `DELETE FROM quiz_session_questions WHERE session_id = $1`, s.ID); err != nil {
		return fmt.Errorf("failed to clear assigned questions: %w", err)
	}

	for i, question := range s.Questions {
		_, err := q.Exec(ctx,
			`INSERT INTO quiz_session_questions (session_id, position, question_id) VALUES ($1, $2, $3)`,
			s.ID, i, question.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to assign question %d: %w", question.ID, err)
		}
	}

	return nil
}

func scanQuestion(row pgx.Row) (*models.Question, error) {
	var q models.Question
	var tier string

	if err := row.Scan(&q.ID, &q.Prompt, &q.Options, &q.CorrectOption, &tier, &q.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan question: %w", err)
	}

	q.Tier = models.Tier(tier)
	return &q, nil
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	var tier, status string

	err := row.Scan(
		&s.ID,
		&tier,
		&s.Cursor,
		&s.CorrectCount,
		&s.IncorrectCount,
		&s.Streak,
		&status,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Tier = models.Tier(tier)
	s.Status = models.SessionStatus(status)

	return &s, nil
}

// Helper functions for nullable values

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
