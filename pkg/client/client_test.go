package client

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/trivia-engine/internal/api"
	"github.com/terra-clan/trivia-engine/internal/config"
	"github.com/terra-clan/trivia-engine/internal/models"
	"github.com/terra-clan/trivia-engine/internal/quiz"
	"github.com/terra-clan/trivia-engine/internal/storage"
)

func newTestClient(t *testing.T, perTier int) *Client {
	t.Helper()
	ctx := context.Background()

	repo, err := storage.NewSQLiteRepository(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	for _, tier := range models.AllTiers() {
		for i := 0; i < perTier; i++ {
			require.NoError(t, repo.CreateQuestion(ctx, &models.Question{
				Prompt:        fmt.Sprintf("%s client question %d", tier, i),
				Options:       []string{"a", "b"},
				CorrectOption: "a",
				Tier:          tier,
			}))
		}
	}

	engine := quiz.NewEngine(repo, repo, quiz.WithRand(rand.New(rand.NewPCG(3, 4))))
	srv := api.NewServer(config.ServerConfig{}, api.Dependencies{Engine: engine, Catalog: repo})

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return NewClient(ts.URL)
}

func TestClientGameFlow(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, 12)

	require.NoError(t, c.Health(ctx))
	require.NoError(t, c.Ready(ctx))

	session, err := c.StartSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TierEasy, session.Tier)
	assert.True(t, session.HasNext)

	for i := 0; i < 3; i++ {
		q, err := c.NextQuestion(ctx, session.ID)
		require.NoError(t, err)
		require.False(t, q.Done)
		assert.Equal(t, i+1, q.QuestionNumber)

		res, err := c.SubmitAnswer(ctx, session.ID, q.ID, "a")
		require.NoError(t, err)
		assert.True(t, res.IsCorrect)
	}

	got, err := c.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TierNormal, got.Tier)
	assert.Equal(t, 3, got.Answered)

	score, err := c.Score(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, score.CorrectCount)
	assert.Equal(t, 100.0, score.Accuracy)

	fresh, err := c.Reset(ctx, session.ID)
	require.NoError(t, err)
	assert.NotEqual(t, session.ID, fresh.ID)
	assert.Equal(t, models.TierEasy, fresh.Tier)

	catalog, err := c.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 36, catalog.Total)
}

func TestClientNextQuestionDone(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, 0)

	session, err := c.StartSession(ctx)
	require.NoError(t, err)
	assert.False(t, session.HasNext)

	q, err := c.NextQuestion(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, q.Done)
	assert.NotEmpty(t, q.Message)
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, 2)

	_, err := c.GetSession(ctx, "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	session, err := c.StartSession(ctx)
	require.NoError(t, err)

	_, err = c.SubmitAnswer(ctx, session.ID, 999999, "a")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "question_not_in_session", apiErr.Code)
	assert.False(t, IsNotFound(err))
}

func TestClientPlay(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, 2)

	session, err := c.StartSession(ctx)
	require.NoError(t, err)

	conn, err := c.Play(ctx, session.ID)
	require.NoError(t, err)
	defer conn.Close()

	msg, err := conn.Receive()
	require.NoError(t, err)
	require.Equal(t, models.PlayQuestion, msg.Type)

	// Two wrong answers use up the easy set
	for i := 0; i < 2; i++ {
		require.Equal(t, models.PlayQuestion, msg.Type)
		require.NoError(t, conn.Answer(msg.Question.ID, "b"))

		result, err := conn.Receive()
		require.NoError(t, err)
		require.Equal(t, models.PlayResult, result.Type)
		assert.False(t, result.Result.IsCorrect)
		assert.Equal(t, "a", result.Result.CorrectAnswer)

		msg, err = conn.Receive()
		require.NoError(t, err)
	}

	require.Equal(t, models.PlayScore, msg.Type)
	assert.Equal(t, 2, msg.Score.TotalAnswered)
	assert.Equal(t, 0.0, msg.Score.Accuracy)

	_, err = c.Play(ctx, "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}
