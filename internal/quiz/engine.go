package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/trivia-engine/internal/models"
	"github.com/terra-clan/trivia-engine/internal/storage"
)

const (
	// DefaultTarget is the number of answers that ends a session
	DefaultTarget = 10
	// DefaultBatchSize is the maximum size of an assigned question set
	DefaultBatchSize = 10
)

// QuestionSource lists catalog questions for a tier
type QuestionSource interface {
	ListByTier(ctx context.Context, tier models.Tier) ([]models.Question, error)
}

// SessionStore persists session state
type SessionStore interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	SaveAnswer(ctx context.Context, s *models.Session, answer *models.AnswerRecord) error
	CompleteSession(ctx context.Context, id string, at time.Time) error
}

// AnswerResult describes the outcome of a submitted answer
type AnswerResult struct {
	IsCorrect     bool
	CorrectOption string
	Tier          models.Tier
	TierChanged   bool
	Streak        int
	Score         models.Score
}

// Option configures an Engine
type Option func(*Engine)

// WithRand sets the randomness source used to draw questions
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		e.rng = r
	}
}

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithTarget sets how many answers end a session
func WithTarget(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.target = n
		}
	}
}

// WithBatchSize sets how many questions are drawn per tier
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// Engine runs the adaptive quiz: it draws questions per tier, evaluates
// answers and promotes sessions after streaks of correct answers.
// Engine holds no session state of its own; every call receives the
// session it operates on.
type Engine struct {
	questions QuestionSource
	sessions  SessionStore

	mu  sync.Mutex // guards rng
	rng *rand.Rand

	now       func() time.Time
	target    int
	batchSize int
}

// NewEngine creates a new Engine
func NewEngine(questions QuestionSource, sessions SessionStore, opts ...Option) *Engine {
	e := &Engine{
		questions: questions,
		sessions:  sessions,
		now:       time.Now,
		target:    DefaultTarget,
		batchSize: DefaultBatchSize,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return e
}

// Target returns the number of answers that ends a session
func (e *Engine) Target() int {
	return e.target
}

// Start creates and persists a new session at the easiest tier
func (e *Engine) Start(ctx context.Context) (*models.Session, error) {
	questions, err := e.draw(ctx, models.TierEasy)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	s := &models.Session{
		ID:        uuid.New().String(),
		Tier:      models.TierEasy,
		Questions: questions,
		Status:    models.SessionActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// An empty catalog tier yields a valid session that is over at once
	if !e.HasNext(s) {
		s.Status = models.SessionExhausted
	}

	if err := e.sessions.CreateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("%w: create session: %w", ErrRepositoryUnavailable, err)
	}

	slog.Info("quiz session started",
		"session_id", s.ID,
		"tier", s.Tier,
		"questions", len(s.Questions),
	)

	return s, nil
}

// Get loads a session by ID
func (e *Engine) Get(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}

	s, err := e.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: get session: %w", ErrRepositoryUnavailable, err)
	}
	if s == nil {
		return nil, ErrSessionNotFound
	}

	return s, nil
}

// HasNext reports whether the session can deliver another question
func (e *Engine) HasNext(s *models.Session) bool {
	if s == nil || s.IsTerminal() {
		return false
	}
	return s.Cursor < len(s.Questions) && s.Answered() < e.target
}

// NextQuestion returns the question at the cursor, or nil when the
// session has nothing left to ask. It does not move the cursor: repeated
// calls return the same question until it is answered.
func (e *Engine) NextQuestion(s *models.Session) *models.Question {
	if !e.HasNext(s) {
		return nil
	}
	q := s.Questions[s.Cursor].Clone()
	return &q
}

// SubmitAnswer evaluates an answer for the question at the cursor. Other
// questions of the assigned set, whether already answered or not yet
// asked, are rejected. The session is only modified when the new state
// has been stored.
func (e *Engine) SubmitAnswer(ctx context.Context, s *models.Session, questionID int64, answer string) (*AnswerResult, error) {
	if questionID <= 0 || answer == "" {
		return nil, ErrInvalidAnswerInput
	}

	if !e.HasNext(s) {
		return nil, ErrSessionExhausted
	}

	idx := s.IndexOf(questionID)
	if idx < 0 {
		return nil, ErrQuestionNotInSession
	}
	if idx != s.Cursor {
		return nil, ErrQuestionNotCurrent
	}

	next := s.Clone()
	question := next.Questions[idx]
	correct := question.IsCorrect(answer)

	if correct {
		next.CorrectCount++
		next.Streak++
	} else {
		next.IncorrectCount++
		next.Streak = 0
	}
	next.Cursor++

	tierChanged := false
	tier, promoted := NextTier(next.Tier, next.Streak, correct)
	if promoted {
		next.Streak = 0
		if tier != next.Tier {
			questions, err := e.draw(ctx, tier)
			if err != nil {
				return nil, err
			}
			next.Tier = tier
			next.Questions = questions
			next.Cursor = 0
			tierChanged = true
		}
	}

	now := e.now().UTC()
	next.UpdatedAt = now
	if !e.HasNext(next) {
		next.Status = models.SessionExhausted
	}

	record := &models.AnswerRecord{
		SessionID:  next.ID,
		QuestionID: question.ID,
		Answer:     answer,
		IsCorrect:  correct,
		Tier:       question.Tier,
		AnsweredAt: now,
	}

	if err := e.sessions.SaveAnswer(ctx, next, record); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: save answer: %w", ErrRepositoryUnavailable, err)
	}

	*s = *next

	if tierChanged {
		slog.Info("quiz session promoted",
			"session_id", s.ID,
			"tier", s.Tier,
			"questions", len(s.Questions),
		)
	}

	return &AnswerResult{
		IsCorrect:     correct,
		CorrectOption: question.CorrectOption,
		Tier:          s.Tier,
		TierChanged:   tierChanged,
		Streak:        s.Streak,
		Score:         e.Score(s),
	}, nil
}

// Score summarises the session. Accuracy is the percentage of correct
// answers over the answers actually submitted, rounded to two decimals.
func (e *Engine) Score(s *models.Session) models.Score {
	score := models.Score{
		TotalAnswered:  s.Answered(),
		CorrectCount:   s.CorrectCount,
		IncorrectCount: s.IncorrectCount,
		Tier:           s.Tier,
	}

	if score.TotalAnswered > 0 {
		pct := float64(score.CorrectCount) / float64(score.TotalAnswered) * 100
		score.Accuracy = math.Round(pct*100) / 100
	}

	return score
}

// Reset archives the session and starts a fresh one. An archived session
// is never stamped again.
func (e *Engine) Reset(ctx context.Context, s *models.Session) (*models.Session, error) {
	if s.Status == models.SessionCompleted {
		return nil, ErrSessionCompleted
	}

	now := e.now().UTC()

	if err := e.sessions.CompleteSession(ctx, s.ID, now); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: complete session: %w", ErrRepositoryUnavailable, err)
	}

	s.Status = models.SessionCompleted
	s.CompletedAt = &now
	s.UpdatedAt = now

	slog.Info("quiz session completed", "session_id", s.ID, "answered", s.Answered())

	return e.Start(ctx)
}

// draw picks up to batchSize questions of the tier at random, without
// replacement
func (e *Engine) draw(ctx context.Context, tier models.Tier) ([]models.Question, error) {
	pool, err := e.questions.ListByTier(ctx, tier)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s questions: %w", ErrRepositoryUnavailable, tier, err)
	}

	picked := make([]models.Question, len(pool))
	copy(picked, pool)

	n := min(e.batchSize, len(picked))

	// Partial Fisher-Yates: only the first n slots need to be settled
	e.mu.Lock()
	for i := 0; i < n; i++ {
		j := i + e.rng.IntN(len(picked)-i)
		picked[i], picked[j] = picked[j], picked[i]
	}
	e.mu.Unlock()

	selected := make([]models.Question, n)
	for i := range selected {
		selected[i] = picked[i].Clone()
	}

	return selected, nil
}
