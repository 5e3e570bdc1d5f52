package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/terra-clan/trivia-engine/internal/models"
	"github.com/terra-clan/trivia-engine/internal/storage"
)

// Importer writes catalog questions to a store
type Importer interface {
	Import(ctx context.Context, questions []models.Question) (int, error)
}

// Seeder imports questions one by one through any QuestionRepository
type Seeder struct {
	repo storage.QuestionRepository
}

// NewSeeder creates a Seeder
func NewSeeder(repo storage.QuestionRepository) *Seeder {
	return &Seeder{repo: repo}
}

// Import implements Importer
func (s *Seeder) Import(ctx context.Context, questions []models.Question) (int, error) {
	for i := range questions {
		q := questions[i].Clone()
		if err := s.repo.CreateQuestion(ctx, &q); err != nil {
			return i, fmt.Errorf("failed to import %q: %w", q.Prompt, err)
		}
	}

	slog.Info("catalog imported", "questions", len(questions))
	return len(questions), nil
}
