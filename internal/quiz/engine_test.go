package quiz

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/trivia-engine/internal/models"
	"github.com/terra-clan/trivia-engine/internal/storage"
)

// memStore is an in-memory QuestionSource and SessionStore with
// injectable failures
type memStore struct {
	questions map[models.Tier][]models.Question
	sessions  map[string]*models.Session
	answers   []*models.AnswerRecord

	listErr   error
	createErr error
	saveErr   error
}

func newMemStore() *memStore {
	return &memStore{
		questions: make(map[models.Tier][]models.Question),
		sessions:  make(map[string]*models.Session),
	}
}

func (m *memStore) add(tier models.Tier, n int) {
	base := int64(len(m.questions[models.TierEasy]) + len(m.questions[models.TierNormal]) + len(m.questions[models.TierHard]))
	for i := 0; i < n; i++ {
		id := base + int64(i) + 1
		m.questions[tier] = append(m.questions[tier], models.Question{
			ID:            id,
			Prompt:        fmt.Sprintf("%s question %d", tier, id),
			Options:       []string{"right", "wrong", "other"},
			CorrectOption: "right",
			Tier:          tier,
		})
	}
}

func (m *memStore) ListByTier(_ context.Context, tier models.Tier) ([]models.Question, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.questions[tier], nil
}

func (m *memStore) CreateSession(_ context.Context, s *models.Session) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *memStore) GetSession(_ context.Context, id string) (*models.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

func (m *memStore) SaveAnswer(_ context.Context, s *models.Session, answer *models.AnswerRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.sessions[s.ID]; !ok {
		return storage.ErrNotFound
	}
	m.sessions[s.ID] = s.Clone()
	m.answers = append(m.answers, answer)
	return nil
}

func (m *memStore) CompleteSession(_ context.Context, id string, at time.Time) error {
	s, ok := m.sessions[id]
	if !ok {
		return storage.ErrNotFound
	}
	s.Status = models.SessionCompleted
	s.CompletedAt = &at
	return nil
}

func newTestEngine(store *memStore, opts ...Option) *Engine {
	opts = append([]Option{WithRand(rand.New(rand.NewPCG(1, 2)))}, opts...)
	return NewEngine(store, store, opts...)
}

func fullStore() *memStore {
	store := newMemStore()
	store.add(models.TierEasy, 15)
	store.add(models.TierNormal, 15)
	store.add(models.TierHard, 15)
	return store
}

func answerRight(t *testing.T, e *Engine, s *models.Session) *AnswerResult {
	t.Helper()
	q := e.NextQuestion(s)
	require.NotNil(t, q)
	res, err := e.SubmitAnswer(context.Background(), s, q.ID, q.CorrectOption)
	require.NoError(t, err)
	return res
}

func answerWrong(t *testing.T, e *Engine, s *models.Session) *AnswerResult {
	t.Helper()
	q := e.NextQuestion(s)
	require.NotNil(t, q)
	res, err := e.SubmitAnswer(context.Background(), s, q.ID, "wrong")
	require.NoError(t, err)
	return res
}

func TestStartDrawsDistinctEasyQuestions(t *testing.T) {
	store := fullStore()
	e := newTestEngine(store)

	s, err := e.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.TierEasy, s.Tier)
	assert.Equal(t, models.SessionActive, s.Status)
	assert.Zero(t, s.Cursor)
	require.Len(t, s.Questions, DefaultBatchSize)

	seen := make(map[int64]bool)
	for _, q := range s.Questions {
		assert.Equal(t, models.TierEasy, q.Tier)
		assert.False(t, seen[q.ID], "question %d drawn twice", q.ID)
		seen[q.ID] = true
	}

	assert.Contains(t, store.sessions, s.ID)
	assert.True(t, e.HasNext(s))
}

func TestStartWithSmallTierUsesAllQuestions(t *testing.T) {
	store := newMemStore()
	store.add(models.TierEasy, 4)
	e := newTestEngine(store)

	s, err := e.Start(context.Background())
	require.NoError(t, err)
	assert.Len(t, s.Questions, 4)
}

func TestStartWithEmptyEasyTier(t *testing.T) {
	store := newMemStore()
	store.add(models.TierNormal, 5)
	e := newTestEngine(store)

	s, err := e.Start(context.Background())
	require.NoError(t, err)

	assert.Empty(t, s.Questions)
	assert.False(t, e.HasNext(s))
	assert.Nil(t, e.NextQuestion(s))
	assert.Equal(t, models.SessionExhausted, s.Status)
	assert.Equal(t, models.Score{Tier: models.TierEasy}, e.Score(s))
}

func TestStartRepositoryFailure(t *testing.T) {
	store := fullStore()
	store.listErr = errors.New("connection refused")
	e := newTestEngine(store)

	_, err := e.Start(context.Background())
	assert.ErrorIs(t, err, ErrRepositoryUnavailable)

	store.listErr = nil
	store.createErr = errors.New("disk full")
	_, err = e.Start(context.Background())
	assert.ErrorIs(t, err, ErrRepositoryUnavailable)
}

func TestNextQuestionIsIdempotent(t *testing.T) {
	e := newTestEngine(fullStore())
	s, err := e.Start(context.Background())
	require.NoError(t, err)

	first := e.NextQuestion(s)
	second := e.NextQuestion(s)
	require.NotNil(t, first)
	assert.Equal(t, first.ID, second.ID)
	assert.Zero(t, s.Cursor)

	answerWrong(t, e, s)
	third := e.NextQuestion(s)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestThreeCorrectAnswersPromote(t *testing.T) {
	store := fullStore()
	e := newTestEngine(store)
	ctx := context.Background()

	s, err := e.Start(ctx)
	require.NoError(t, err)

	answerRight(t, e, s)
	res := answerRight(t, e, s)
	assert.Equal(t, 2, res.Streak)
	assert.False(t, res.TierChanged)

	res = answerRight(t, e, s)
	assert.True(t, res.TierChanged)
	assert.Equal(t, models.TierNormal, res.Tier)
	assert.Zero(t, res.Streak)

	assert.Equal(t, models.TierNormal, s.Tier)
	assert.Zero(t, s.Streak)
	assert.Zero(t, s.Cursor)
	assert.Equal(t, 3, s.CorrectCount)
	assert.Equal(t, 3, s.Answered())
	require.NotEmpty(t, s.Questions)
	for _, q := range s.Questions {
		assert.Equal(t, models.TierNormal, q.Tier)
	}

	stored, err := e.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TierNormal, stored.Tier)
	assert.Len(t, store.answers, 3)
}

func TestHardTierStreakResetsWithoutRedraw(t *testing.T) {
	e := newTestEngine(fullStore(), WithTarget(20))
	s, err := e.Start(context.Background())
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		answerRight(t, e, s)
	}
	require.Equal(t, models.TierHard, s.Tier)
	hardSet := s.Questions

	answerRight(t, e, s)
	answerRight(t, e, s)
	res := answerRight(t, e, s)

	assert.False(t, res.TierChanged)
	assert.Equal(t, models.TierHard, s.Tier)
	assert.Zero(t, s.Streak)
	assert.Equal(t, 3, s.Cursor)
	assert.Equal(t, hardSet[0].ID, s.Questions[0].ID)
}

func TestWrongAnswerResetsStreak(t *testing.T) {
	e := newTestEngine(fullStore())
	s, err := e.Start(context.Background())
	require.NoError(t, err)

	answerRight(t, e, s)
	answerRight(t, e, s)
	res := answerWrong(t, e, s)

	assert.False(t, res.IsCorrect)
	assert.Equal(t, "right", res.CorrectOption)
	assert.Zero(t, s.Streak)
	assert.Equal(t, models.TierEasy, s.Tier)
	assert.Equal(t, 2, s.CorrectCount)
	assert.Equal(t, 1, s.IncorrectCount)
}

func TestAnswerFromPreviousTierIsRejected(t *testing.T) {
	e := newTestEngine(fullStore())
	ctx := context.Background()
	s, err := e.Start(ctx)
	require.NoError(t, err)

	old := s.Questions[len(s.Questions)-1]
	for i := 0; i < 3; i++ {
		answerRight(t, e, s)
	}
	require.Equal(t, models.TierNormal, s.Tier)

	before := s.Clone()
	_, err = e.SubmitAnswer(ctx, s, old.ID, old.CorrectOption)
	assert.ErrorIs(t, err, ErrQuestionNotInSession)
	assert.Equal(t, before, s)
}

func TestSubmitAnswerValidatesInput(t *testing.T) {
	e := newTestEngine(fullStore())
	ctx := context.Background()
	s, err := e.Start(ctx)
	require.NoError(t, err)

	_, err = e.SubmitAnswer(ctx, s, 0, "right")
	assert.ErrorIs(t, err, ErrInvalidAnswerInput)

	_, err = e.SubmitAnswer(ctx, s, s.Questions[0].ID, "")
	assert.ErrorIs(t, err, ErrInvalidAnswerInput)

	_, err = e.SubmitAnswer(ctx, s, 99999, "right")
	assert.ErrorIs(t, err, ErrQuestionNotInSession)

	assert.Zero(t, s.Answered())
}

func TestWhitespaceAnswerIsEvaluatedAsWrong(t *testing.T) {
	e := newTestEngine(fullStore())
	ctx := context.Background()
	s, err := e.Start(ctx)
	require.NoError(t, err)

	q := e.NextQuestion(s)
	res, err := e.SubmitAnswer(ctx, s, q.ID, "  ")
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)
	assert.Equal(t, 1, s.IncorrectCount)

	// No trimming either: padded correct text is still wrong
	q = e.NextQuestion(s)
	res, err = e.SubmitAnswer(ctx, s, q.ID, " "+q.CorrectOption)
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)
}

func TestAnsweredQuestionCannotBeReplayed(t *testing.T) {
	store := fullStore()
	e := newTestEngine(store)
	ctx := context.Background()
	s, err := e.Start(ctx)
	require.NoError(t, err)

	first := answerRight(t, e, s)
	require.Equal(t, 1, first.Streak)
	replayed := s.Questions[0]
	before := s.Clone()

	for i := 0; i < 2; i++ {
		_, err = e.SubmitAnswer(ctx, s, replayed.ID, replayed.CorrectOption)
		assert.ErrorIs(t, err, ErrQuestionNotCurrent)
	}

	assert.Equal(t, before, s)
	assert.Equal(t, models.TierEasy, s.Tier)
	assert.Equal(t, 1, s.Streak)
	assert.Equal(t, 1, s.Cursor)
	assert.Len(t, store.answers, 1)
}

func TestAnswerAheadOfCursorIsRejected(t *testing.T) {
	store := fullStore()
	e := newTestEngine(store)
	ctx := context.Background()
	s, err := e.Start(ctx)
	require.NoError(t, err)
	require.Greater(t, len(s.Questions), 2)

	ahead := s.Questions[2]
	before := s.Clone()

	_, err = e.SubmitAnswer(ctx, s, ahead.ID, ahead.CorrectOption)
	assert.ErrorIs(t, err, ErrQuestionNotCurrent)
	assert.Equal(t, before, s)
	assert.Empty(t, store.answers)

	// The delivered question is still the one waiting for an answer
	assert.Equal(t, before.Questions[0].ID, e.NextQuestion(s).ID)
}

func TestSubmitAnswerStorageFailureLeavesSessionUntouched(t *testing.T) {
	store := fullStore()
	e := newTestEngine(store)
	ctx := context.Background()
	s, err := e.Start(ctx)
	require.NoError(t, err)

	answerRight(t, e, s)
	answerRight(t, e, s)
	before := s.Clone()

	store.saveErr = errors.New("connection reset")
	q := e.NextQuestion(s)
	_, err = e.SubmitAnswer(ctx, s, q.ID, q.CorrectOption)
	assert.ErrorIs(t, err, ErrRepositoryUnavailable)
	assert.Equal(t, before, s)

	// A failed redraw on promotion must not leak either
	store.saveErr = nil
	store.listErr = errors.New("timeout")
	_, err = e.SubmitAnswer(ctx, s, q.ID, q.CorrectOption)
	assert.ErrorIs(t, err, ErrRepositoryUnavailable)
	assert.Equal(t, before, s)
}

func TestSubmitAnswerUnknownSession(t *testing.T) {
	store := fullStore()
	e := newTestEngine(store)
	s, err := e.Start(context.Background())
	require.NoError(t, err)

	delete(store.sessions, s.ID)
	q := e.NextQuestion(s)
	_, err = e.SubmitAnswer(context.Background(), s, q.ID, q.CorrectOption)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStopsAtTarget(t *testing.T) {
	e := newTestEngine(fullStore())
	ctx := context.Background()
	s, err := e.Start(ctx)
	require.NoError(t, err)

	for i := 0; e.HasNext(s); i++ {
		require.Less(t, i, 50)
		if i%2 == 0 {
			answerRight(t, e, s)
		} else {
			answerWrong(t, e, s)
		}
	}

	assert.Equal(t, DefaultTarget, s.Answered())
	assert.Equal(t, models.SessionExhausted, s.Status)
	assert.Nil(t, e.NextQuestion(s))

	_, err = e.SubmitAnswer(ctx, s, s.Questions[0].ID, "right")
	assert.ErrorIs(t, err, ErrSessionExhausted)

	score := e.Score(s)
	assert.Equal(t, 10, score.TotalAnswered)
	assert.Equal(t, 5, score.CorrectCount)
	assert.Equal(t, 5, score.IncorrectCount)
	assert.Equal(t, 50.0, score.Accuracy)
}

func TestSessionExhaustsSmallSet(t *testing.T) {
	store := newMemStore()
	store.add(models.TierEasy, 3)
	e := newTestEngine(store)
	s, err := e.Start(context.Background())
	require.NoError(t, err)

	answerWrong(t, e, s)
	answerWrong(t, e, s)
	answerWrong(t, e, s)

	assert.False(t, e.HasNext(s))
	assert.Equal(t, models.SessionExhausted, s.Status)
	assert.Equal(t, 0.0, e.Score(s).Accuracy)
}

func TestPromotionToEmptyTierExhausts(t *testing.T) {
	store := newMemStore()
	store.add(models.TierEasy, 5)
	e := newTestEngine(store)
	s, err := e.Start(context.Background())
	require.NoError(t, err)

	answerRight(t, e, s)
	answerRight(t, e, s)
	res := answerRight(t, e, s)

	assert.True(t, res.TierChanged)
	assert.Equal(t, models.TierNormal, s.Tier)
	assert.Empty(t, s.Questions)
	assert.False(t, e.HasNext(s))
	assert.Equal(t, models.SessionExhausted, s.Status)
}

func TestScoreRounding(t *testing.T) {
	e := newTestEngine(fullStore())
	s := &models.Session{Tier: models.TierNormal, CorrectCount: 2, IncorrectCount: 1}

	score := e.Score(s)
	assert.Equal(t, 66.67, score.Accuracy)
	assert.Equal(t, 3, score.TotalAnswered)
	assert.Equal(t, models.TierNormal, score.Tier)
}

func TestTierNeverDecreases(t *testing.T) {
	e := newTestEngine(fullStore(), WithRand(rand.New(rand.NewPCG(7, 7))))
	s, err := e.Start(context.Background())
	require.NoError(t, err)

	r := rand.New(rand.NewPCG(3, 4))
	prev := s.Tier
	for e.HasNext(s) {
		if r.IntN(3) > 0 {
			answerRight(t, e, s)
		} else {
			answerWrong(t, e, s)
		}
		assert.False(t, s.Tier.Less(prev))
		prev = s.Tier
		assert.LessOrEqual(t, s.Answered(), DefaultTarget)
	}
}

func TestReset(t *testing.T) {
	store := fullStore()
	e := newTestEngine(store)
	ctx := context.Background()

	s, err := e.Start(ctx)
	require.NoError(t, err)
	answerRight(t, e, s)

	fresh, err := e.Reset(ctx, s)
	require.NoError(t, err)

	assert.NotEqual(t, s.ID, fresh.ID)
	assert.Equal(t, models.SessionCompleted, s.Status)
	require.NotNil(t, s.CompletedAt)
	assert.Equal(t, models.SessionCompleted, store.sessions[s.ID].Status)

	assert.Equal(t, models.TierEasy, fresh.Tier)
	assert.Zero(t, fresh.Answered())
	assert.True(t, e.HasNext(fresh))

	// Completed sessions accept no more answers
	assert.False(t, e.HasNext(s))

	ghost := &models.Session{ID: "ghost"}
	_, err = e.Reset(ctx, ghost)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestResetTwiceKeepsArchivedSession(t *testing.T) {
	store := fullStore()
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := newTestEngine(store, WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	s, err := e.Start(ctx)
	require.NoError(t, err)
	_, err = e.Reset(ctx, s)
	require.NoError(t, err)
	stamped := *store.sessions[s.ID].CompletedAt

	clock = clock.Add(time.Hour)
	sessionsBefore := len(store.sessions)

	// Reload as a request would
	archived, err := e.Get(ctx, s.ID)
	require.NoError(t, err)
	_, err = e.Reset(ctx, archived)
	assert.ErrorIs(t, err, ErrSessionCompleted)

	assert.Equal(t, stamped, *store.sessions[s.ID].CompletedAt)
	assert.Len(t, store.sessions, sessionsBefore)
}

func TestGet(t *testing.T) {
	e := newTestEngine(fullStore())
	ctx := context.Background()

	_, err := e.Get(ctx, "")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = e.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	s, err := e.Start(ctx)
	require.NoError(t, err)

	got, err := e.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Len(t, got.Questions, len(s.Questions))
}

func TestEngineWithSQLiteRepository(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	for _, tier := range models.AllTiers() {
		for i := 0; i < 12; i++ {
			q := &models.Question{
				Prompt:        fmt.Sprintf("%s #%d", tier, i),
				Options:       []string{"yes", "no"},
				CorrectOption: "yes",
				Tier:          tier,
			}
			require.NoError(t, repo.CreateQuestion(ctx, q))
		}
	}

	e := NewEngine(repo, repo, WithRand(rand.New(rand.NewPCG(9, 9))))
	s, err := e.Start(ctx)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		q := e.NextQuestion(s)
		require.NotNil(t, q)
		_, err := e.SubmitAnswer(ctx, s, q.ID, "yes")
		require.NoError(t, err)
	}

	stored, err := e.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TierNormal, stored.Tier)
	assert.Equal(t, 1, stored.Cursor)
	assert.Equal(t, 1, stored.Streak)
	assert.Equal(t, 4, stored.CorrectCount)
	assert.Equal(t, s.Questions[0].ID, stored.Questions[0].ID)

	answers, err := repo.ListAnswers(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, answers, 4)
}
