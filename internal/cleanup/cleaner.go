package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/terra-clan/trivia-engine/internal/models"
)

// SessionStore lists and archives sessions
type SessionStore interface {
	ListStaleSessions(ctx context.Context, olderThan time.Time, limit int) ([]*models.Session, error)
	CompleteSession(ctx context.Context, id string, at time.Time) error
}

// Cleaner periodically archives sessions nobody has touched for a while
type Cleaner struct {
	store    SessionStore
	interval time.Duration
	idleTTL  time.Duration
	limit    int
	now      func() time.Time
}

// NewCleaner creates a new cleanup worker
func NewCleaner(store SessionStore, interval, idleTTL time.Duration, limit int) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if idleTTL <= 0 {
		idleTTL = 24 * time.Hour
	}
	if limit <= 0 {
		limit = 100
	}

	return &Cleaner{
		store:    store,
		interval: interval,
		idleTTL:  idleTTL,
		limit:    limit,
		now:      time.Now,
	}
}

// Start begins the cleanup worker in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

// run is the main loop for the cleanup worker
func (c *Cleaner) run(ctx context.Context) {
	slog.Info("cleanup worker started", "interval", c.interval, "idle_ttl", c.idleTTL)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Run immediately on start
	c.Cleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.Cleanup(ctx)
		}
	}
}

// Cleanup runs one cycle and returns how many sessions were archived
func (c *Cleaner) Cleanup(ctx context.Context) int {
	slog.Debug("running cleanup cycle")

	now := c.now().UTC()
	stale, err := c.store.ListStaleSessions(ctx, now.Add(-c.idleTTL), c.limit)
	if err != nil {
		slog.Error("failed to get stale sessions", "error", err)
		return 0
	}

	if len(stale) == 0 {
		slog.Debug("no stale sessions found")
		return 0
	}

	slog.Info("found stale sessions", "count", len(stale))

	archived := 0
	for _, s := range stale {
		if err := c.store.CompleteSession(ctx, s.ID, now); err != nil {
			slog.Error("failed to archive stale session",
				"error", err,
				"session_id", s.ID,
			)
			continue
		}

		slog.Info("stale session archived",
			"session_id", s.ID,
			"tier", s.Tier,
			"answered", s.Answered(),
			"last_update", s.UpdatedAt,
		)
		archived++
	}

	return archived
}
