package storage

import (
	"context"
	"errors"
	"time"

	"github.com/terra-clan/trivia-engine/internal/models"
)

// ErrNotFound is returned by write operations that target a missing record
var ErrNotFound = errors.New("record not found")

// QuestionRepository stores the question catalog
type QuestionRepository interface {
	// ListByTier returns every question of the tier; an empty tier is not an error
	ListByTier(ctx context.Context, tier models.Tier) ([]models.Question, error)
	// CreateQuestion inserts a question, updating an existing one with the same prompt
	CreateQuestion(ctx context.Context, q *models.Question) error
	CountByTier(ctx context.Context) (map[models.Tier]int, error)
}

// SessionRepository stores quiz sessions and their answers
type SessionRepository interface {
	CreateSession(ctx context.Context, s *models.Session) error
	// GetSession returns nil, nil when the session does not exist
	GetSession(ctx context.Context, id string) (*models.Session, error)
	UpdateSession(ctx context.Context, s *models.Session) error
	// SaveAnswer stores the session state and the answer atomically
	SaveAnswer(ctx context.Context, s *models.Session, answer *models.AnswerRecord) error
	CompleteSession(ctx context.Context, id string, at time.Time) error
	ListAnswers(ctx context.Context, sessionID string) ([]*models.AnswerRecord, error)
	// ListStaleSessions returns unarchived sessions not updated since olderThan.
	// The assigned question sets are not loaded.
	ListStaleSessions(ctx context.Context, olderThan time.Time, limit int) ([]*models.Session, error)
}

// Repository defines the interface for trivia persistence
type Repository interface {
	QuestionRepository
	SessionRepository

	// Health
	Ping(ctx context.Context) error
	Close() error
}
