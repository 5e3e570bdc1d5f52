package api

import (
	"encoding/json"
	"net/http"

	"github.com/terra-clan/trivia-engine/internal/cache"
	"github.com/terra-clan/trivia-engine/internal/models"
	"github.com/terra-clan/trivia-engine/internal/quiz"
)

const noMoreQuestionsMessage = "No more questions available"

func (s *Server) sessionResponse(session *models.Session) models.SessionResponse {
	return models.SessionResponse{
		ID:             session.ID,
		Tier:           session.Tier,
		Status:         session.Status,
		QuestionsCount: len(session.Questions),
		Answered:       session.Answered(),
		Target:         s.engine.Target(),
		HasNext:        s.engine.HasNext(session),
		CreatedAt:      session.CreatedAt,
		CompletedAt:    session.CompletedAt,
	}
}

func questionResponse(session *models.Session, q *models.Question) models.QuestionResponse {
	return models.QuestionResponse{
		QuestionNumber: session.Answered() + 1,
		ID:             q.ID,
		Prompt:         q.Prompt,
		Options:        q.Options,
		Tier:           q.Tier,
	}
}

func answerResponse(res *quiz.AnswerResult) models.AnswerResponse {
	return models.AnswerResponse{
		IsCorrect:     res.IsCorrect,
		CorrectAnswer: res.CorrectOption,
		Tier:          res.Tier,
		TierChanged:   res.TierChanged,
		Streak:        res.Streak,
		Answered:      res.Score.TotalAnswered,
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.engine.Start(r.Context())
	if err != nil {
		respondEngineError(w, err, "start session", "")
		return
	}

	s.publish(r.Context(), cache.Event{
		Type:      cache.EventSessionStarted,
		SessionID: session.ID,
		Tier:      session.Tier,
	})

	respondJSON(w, http.StatusCreated, s.sessionResponse(session))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	respondJSON(w, http.StatusOK, s.sessionResponse(session))
}

func (s *Server) handleNextQuestion(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())

	q := s.engine.NextQuestion(session)
	if q == nil {
		respondJSON(w, http.StatusOK, models.NoMoreQuestionsResponse{
			Done:    true,
			Message: noMoreQuestionsMessage,
		})
		return
	}

	respondJSON(w, http.StatusOK, questionResponse(session, q))
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())

	var req models.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	previous := session.Tier
	res, err := s.engine.SubmitAnswer(r.Context(), session, req.QuestionID, req.Answer)
	if err != nil {
		respondEngineError(w, err, "submit answer", session.ID)
		return
	}

	s.publishAnswer(r, session, previous, res)

	respondJSON(w, http.StatusOK, answerResponse(res))
}

func (s *Server) publishAnswer(r *http.Request, session *models.Session, previous models.Tier, res *quiz.AnswerResult) {
	correct := res.IsCorrect
	s.publish(r.Context(), answerEvent(session, previous, res.Score.TotalAnswered, &correct))

	if res.TierChanged {
		s.publish(r.Context(), promotedEvent(session, res.Score.TotalAnswered))
	}
}

// answerEvent is tagged with the tier the question was asked at
func answerEvent(session *models.Session, tier models.Tier, answered int, correct *bool) cache.Event {
	return cache.Event{
		Type:      cache.EventAnswerSubmitted,
		SessionID: session.ID,
		Tier:      tier,
		Answered:  answered,
		Correct:   correct,
	}
}

func promotedEvent(session *models.Session, answered int) cache.Event {
	return cache.Event{
		Type:      cache.EventTierPromoted,
		SessionID: session.ID,
		Tier:      session.Tier,
		Answered:  answered,
	}
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	respondJSON(w, http.StatusOK, s.engine.Score(session))
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())

	fresh, err := s.engine.Reset(r.Context(), session)
	if err != nil {
		respondEngineError(w, err, "reset session", session.ID)
		return
	}

	s.publish(r.Context(), cache.Event{
		Type:      cache.EventSessionCompleted,
		SessionID: session.ID,
		Tier:      session.Tier,
		Answered:  session.Answered(),
	})
	s.publish(r.Context(), cache.Event{
		Type:      cache.EventSessionStarted,
		SessionID: fresh.ID,
		Tier:      fresh.Tier,
	})

	respondJSON(w, http.StatusCreated, s.sessionResponse(fresh))
}
