package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/trivia-engine/internal/models"
	"github.com/terra-clan/trivia-engine/internal/storage"
)

func TestCleanupArchivesIdleSessions(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	sessions := []*models.Session{
		{ID: "idle-active", Status: models.SessionActive, UpdatedAt: now.Add(-3 * time.Hour)},
		{ID: "idle-exhausted", Status: models.SessionExhausted, UpdatedAt: now.Add(-5 * time.Hour)},
		{ID: "recent", Status: models.SessionActive, UpdatedAt: now.Add(-10 * time.Minute)},
	}
	for _, s := range sessions {
		s.Tier = models.TierEasy
		s.CreatedAt = s.UpdatedAt
		require.NoError(t, repo.CreateSession(ctx, s))
	}

	c := NewCleaner(repo, time.Minute, time.Hour, 10)
	c.now = func() time.Time { return now }

	assert.Equal(t, 2, c.Cleanup(ctx))

	for id, want := range map[string]models.SessionStatus{
		"idle-active":    models.SessionCompleted,
		"idle-exhausted": models.SessionCompleted,
		"recent":         models.SessionActive,
	} {
		got, err := repo.GetSession(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status, id)
	}

	// Archived sessions are not picked up again
	assert.Zero(t, c.Cleanup(ctx))
}

func TestStartStopsWithContext(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c := NewCleaner(repo, 10*time.Millisecond, time.Hour, 0)
	go func() {
		c.run(runCtx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup worker did not stop")
	}
}
