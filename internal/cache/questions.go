package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/trivia-engine/internal/models"
	"github.com/terra-clan/trivia-engine/internal/storage"
)

// DefaultQuestionTTL bounds how long a cached tier pool may be stale
const DefaultQuestionTTL = 10 * time.Minute

// QuestionCache is a read-through cache of the per-tier question pools.
// Redis failures are logged and served from the repository.
type QuestionCache struct {
	repo   storage.QuestionRepository
	client Client
	ttl    time.Duration
}

// NewQuestionCache wraps repo with a Redis cache
func NewQuestionCache(repo storage.QuestionRepository, client Client, ttl time.Duration) *QuestionCache {
	if ttl <= 0 {
		ttl = DefaultQuestionTTL
	}
	return &QuestionCache{repo: repo, client: client, ttl: ttl}
}

func questionsKey(tier models.Tier) string {
	return KeyPrefix + "questions:" + string(tier)
}

// cachedQuestion keeps the correct option, which Question hides from JSON
type cachedQuestion struct {
	ID            int64       `json:"id"`
	Prompt        string      `json:"prompt"`
	Options       []string    `json:"options"`
	CorrectOption string      `json:"correct_option"`
	Tier          models.Tier `json:"tier"`
	CreatedAt     time.Time   `json:"created_at"`
}

// ListByTier returns the pool of a tier, from Redis when possible
func (c *QuestionCache) ListByTier(ctx context.Context, tier models.Tier) ([]models.Question, error) {
	key := questionsKey(tier)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		questions, decodeErr := decodeQuestions(raw)
		if decodeErr == nil {
			return questions, nil
		}
		slog.Warn("discarding corrupt question cache entry", "tier", tier, "error", decodeErr)
	case errors.Is(err, redis.Nil):
		// miss
	default:
		slog.Warn("question cache unavailable", "tier", tier, "error", err)
	}

	questions, err := c.repo.ListByTier(ctx, tier)
	if err != nil {
		return nil, err
	}

	if encoded, err := encodeQuestions(questions); err == nil {
		if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			slog.Warn("failed to fill question cache", "tier", tier, "error", err)
		}
	}

	return questions, nil
}

// CreateQuestion stores the question and drops the cached pool of its tier
func (c *QuestionCache) CreateQuestion(ctx context.Context, q *models.Question) error {
	if err := c.repo.CreateQuestion(ctx, q); err != nil {
		return err
	}
	// An upsert may have moved the prompt between tiers
	if err := c.Invalidate(ctx); err != nil {
		slog.Warn("failed to invalidate question cache", "error", err)
	}
	return nil
}

// CountByTier is not cached
func (c *QuestionCache) CountByTier(ctx context.Context) (map[models.Tier]int, error) {
	return c.repo.CountByTier(ctx)
}

// Invalidate drops the cached pools of the given tiers, or of every tier
// when none is given
func (c *QuestionCache) Invalidate(ctx context.Context, tiers ...models.Tier) error {
	return InvalidateQuestions(ctx, c.client, tiers...)
}

// InvalidateQuestions drops cached question pools without a QuestionCache,
// for processes that change the catalog but do not serve it
func InvalidateQuestions(ctx context.Context, client Client, tiers ...models.Tier) error {
	if len(tiers) == 0 {
		n, err := deleteByPattern(ctx, client, questionsKey("*"))
		if err != nil {
			return err
		}
		slog.Debug("question cache flushed", "keys_deleted", n)
		return nil
	}

	keys := make([]string, 0, len(tiers))
	for _, tier := range tiers {
		keys = append(keys, questionsKey(tier))
	}
	return client.Del(ctx, keys...).Err()
}

func encodeQuestions(questions []models.Question) ([]byte, error) {
	out := make([]cachedQuestion, len(questions))
	for i, q := range questions {
		out[i] = cachedQuestion{
			ID:            q.ID,
			Prompt:        q.Prompt,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
			Tier:          q.Tier,
			CreatedAt:     q.CreatedAt,
		}
	}
	return json.Marshal(out)
}

func decodeQuestions(raw []byte) ([]models.Question, error) {
	var in []cachedQuestion
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, err
	}

	questions := make([]models.Question, len(in))
	for i, q := range in {
		questions[i] = models.Question{
			ID:            q.ID,
			Prompt:        q.Prompt,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
			Tier:          q.Tier,
			CreatedAt:     q.CreatedAt,
		}
	}
	return questions, nil
}
