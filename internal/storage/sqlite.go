package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"

	"github.com/terra-clan/trivia-engine/internal/models"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

// SQLiteRepository implements Repository on an embedded SQLite database.
// It is used by the console game and by tests.
type SQLiteRepository struct {
	db *sql.DB
}

// sqlQuerier is satisfied by both *sql.DB and *sql.Tx
type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewSQLiteRepository opens the SQLite database at dsn, applies pragmas
// and creates the schema. Use ":memory:" for a throwaway database.
func NewSQLiteRepository(ctx context.Context, dsn string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection keeps in-memory databases alive and serializes writers
	db.SetMaxOpenConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DB returns the underlying *sql.DB for raw queries
func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

// Ping checks database connectivity
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// --- Questions ---

// ListByTier returns all questions of a difficulty tier
func (r *SQLiteRepository) ListByTier(ctx context.Context, tier models.Tier) ([]models.Question, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, prompt, options, correct_option, difficulty, created_at
		FROM questions
		WHERE difficulty = ?
		ORDER BY id
	`, string(tier))
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	questions := make([]models.Question, 0)
	for rows.Next() {
		q, err := scanSQLiteQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}

	return questions, rows.Err()
}

// CreateQuestion inserts a question or refreshes the one with the same prompt
func (r *SQLiteRepository) CreateQuestion(ctx context.Context, q *models.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}

	var createdAt int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO questions (prompt, options, correct_option, difficulty, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (prompt) DO UPDATE
		SET options = excluded.options, correct_option = excluded.correct_option, difficulty = excluded.difficulty
		RETURNING id, created_at
	`, q.Prompt, string(options), q.CorrectOption, string(q.Tier), time.Now().UTC().UnixNano()).Scan(&q.ID, &createdAt)
	if err != nil {
		return fmt.Errorf("create question: %w", err)
	}

	q.CreatedAt = fromUnixNano(createdAt)
	return nil
}

// CountByTier returns the number of questions per tier
func (r *SQLiteRepository) CountByTier(ctx context.Context) (map[models.Tier]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT difficulty, COUNT(*) FROM questions GROUP BY difficulty`)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Tier]int)
	for rows.Next() {
		var tier string
		var n int
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[models.Tier(tier)] = n
	}

	return counts, rows.Err()
}

// --- Sessions ---

// CreateSession creates a new session record with its assigned questions
func (r *SQLiteRepository) CreateSession(ctx context.Context, s *models.Session) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO quiz_sessions (id, difficulty, cursor_pos, correct_count, incorrect_count, streak, status, created_at, updated_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			s.ID,
			string(s.Tier),
			s.Cursor,
			s.CorrectCount,
			s.IncorrectCount,
			s.Streak,
			string(s.Status),
			s.CreatedAt.UnixNano(),
			s.UpdatedAt.UnixNano(),
			nullUnixNano(s.CompletedAt),
		)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}

		return replaceAssignedSQLite(ctx, tx, s)
	})
}

// GetSession retrieves a session and its assigned questions by ID
func (r *SQLiteRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	s, err := scanSQLiteSession(r.db.QueryRowContext(ctx, `
		SELECT id, difficulty, cursor_pos, correct_count, incorrect_count, streak, status, created_at, updated_at, completed_at
		FROM quiz_sessions
		WHERE id = ?
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT q.id, q.prompt, q.options, q.correct_option, q.difficulty, q.created_at
		FROM quiz_session_questions sq
		JOIN questions q ON q.id = sq.question_id
		WHERE sq.session_id = ?
		ORDER BY sq.position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get assigned questions: %w", err)
	}
	defer rows.Close()

	s.Questions = make([]models.Question, 0)
	for rows.Next() {
		q, err := scanSQLiteQuestion(rows)
		if err != nil {
			return nil, err
		}
		s.Questions = append(s.Questions, *q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assigned questions: %w", err)
	}

	return s, nil
}

// UpdateSession updates an existing session
func (r *SQLiteRepository) UpdateSession(ctx context.Context, s *models.Session) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := updateSQLiteSession(ctx, tx, s); err != nil {
			return err
		}
		return replaceAssignedSQLite(ctx, tx, s)
	})
}

// SaveAnswer stores the new session state and the answer in one transaction
func (r *SQLiteRepository) SaveAnswer(ctx context.Context, s *models.Session, answer *models.AnswerRecord) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := updateSQLiteSession(ctx, tx, s); err != nil {
			return err
		}

		if err := replaceAssignedSQLite(ctx, tx, s); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO quiz_answers (session_id, question_id, answer, is_correct, difficulty, answered_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			answer.SessionID,
			answer.QuestionID,
			answer.Answer,
			answer.IsCorrect,
			string(answer.Tier),
			answer.AnsweredAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("record answer: %w", err)
		}

		return nil
	})
}

// CompleteSession marks a session as completed
func (r *SQLiteRepository) CompleteSession(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE quiz_sessions
		SET status = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`, string(models.SessionCompleted), at.UnixNano(), at.UnixNano(), id)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}

	return nil
}

// ListAnswers returns the answers of a session in submission order
func (r *SQLiteRepository) ListAnswers(ctx context.Context, sessionID string) ([]*models.AnswerRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, question_id, answer, is_correct, difficulty, answered_at
		FROM quiz_answers
		WHERE session_id = ?
		ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	var answers []*models.AnswerRecord
	for rows.Next() {
		var a models.AnswerRecord
		var tier string
		var answeredAt int64

		if err := rows.Scan(&a.SessionID, &a.QuestionID, &a.Answer, &a.IsCorrect, &tier, &answeredAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}

		a.Tier = models.Tier(tier)
		a.AnsweredAt = fromUnixNano(answeredAt)
		answers = append(answers, &a)
	}

	return answers, rows.Err()
}

// ListStaleSessions returns unarchived sessions idle since olderThan
func (r *SQLiteRepository) ListStaleSessions(ctx context.Context, olderThan time.Time, limit int) ([]*models.Session, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, difficulty, cursor_pos, correct_count, incorrect_count, streak, status, created_at, updated_at, completed_at
		FROM quiz_sessions
		WHERE status <> 'completed'
		  AND updated_at < ?
		ORDER BY updated_at ASC
		LIMIT ?
	`, olderThan.UnixNano(), limit)
	if err != nil {
		return nil, fmt.Errorf("get stale sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s, err := scanSQLiteSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func updateSQLiteSession(ctx context.Context, q sqlQuerier, s *models.Session) error {
	result, err := q.ExecContext(ctx, `
		UPDATE quiz_sessions
		SET difficulty = ?, cursor_pos = ?, correct_count = ?, incorrect_count = ?, streak = ?, status = ?, updated_at = ?, completed_at = ?
		WHERE id = ?
	`,
		string(s.Tier),
		s.Cursor,
		s.CorrectCount,
		s.IncorrectCount,
		s.Streak,
		string(s.Status),
		s.UpdatedAt.UnixNano(),
		nullUnixNano(s.CompletedAt),
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", s.ID, ErrNotFound)
	}

	return nil
}

func replaceAssignedSQLite(ctx context.Context, q sqlQuerier, s *models.Session) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM quiz_session_questions WHERE session_id = ?`, s.ID); err != nil {
		return fmt.Errorf("clear assigned questions: %w", err)
	}

	for i, question := range s.Questions {
		_, err := q.ExecContext(ctx,
			`INSERT INTO quiz_session_questions (session_id, position, question_id) VALUES (?, ?, ?)`,
			s.ID, i, question.ID,
		)
		if err != nil {
			return fmt.Errorf("assign question %d: %w", question.ID, err)
		}
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteQuestion(row rowScanner) (*models.Question, error) {
	var q models.Question
	var options, tier string
	var createdAt int64

	if err := row.Scan(&q.ID, &q.Prompt, &options, &q.CorrectOption, &tier, &createdAt); err != nil {
		return nil, fmt.Errorf("scan question: %w", err)
	}

	if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
		return nil, fmt.Errorf("decode options of question %d: %w", q.ID, err)
	}

	q.Tier = models.Tier(tier)
	q.CreatedAt = fromUnixNano(createdAt)
	return &q, nil
}

func scanSQLiteSession(row rowScanner) (*models.Session, error) {
	var s models.Session
	var tier, status string
	var createdAt, updatedAt int64
	var completedAt sql.NullInt64

	err := row.Scan(
		&s.ID,
		&tier,
		&s.Cursor,
		&s.CorrectCount,
		&s.IncorrectCount,
		&s.Streak,
		&status,
		&createdAt,
		&updatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Tier = models.Tier(tier)
	s.Status = models.SessionStatus(status)
	s.CreatedAt = fromUnixNano(createdAt)
	s.UpdatedAt = fromUnixNano(updatedAt)
	if completedAt.Valid {
		t := fromUnixNano(completedAt.Int64)
		s.CompletedAt = &t
	}

	return &s, nil
}

func nullUnixNano(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
