package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/trivia-engine/internal/models"
)

// playOpTimeout bounds each engine call made on behalf of the socket
const playOpTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handlePlayWS runs a whole game over a WebSocket: the server pushes a
// question, the client answers it, the server replies with the result
// and the next question, and finally the score.
func (s *Server) handlePlayWS(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("play websocket connected", "session_id", session.ID)

	if err := s.sendQuestionOrScore(conn, session); err != nil {
		return
	}

	for s.engine.HasNext(session) {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "error", err)
			}
			break
		}

		var msg models.PlayMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.sendPlayError(conn, "invalid message format")
			continue
		}

		switch msg.Type {
		case models.PlayAnswer:
			if msg.Answer == nil {
				s.sendPlayError(conn, "answer is required")
				continue
			}

			updated, err := s.playAnswer(conn, session.ID, msg.Answer)
			if err != nil {
				return
			}
			if updated != nil {
				session = updated
			}
		case models.PlayQuit:
			score := s.engine.Score(session)
			s.sendPlayMessage(conn, models.PlayMessage{Type: models.PlayScore, Score: &score})
			slog.Info("play websocket closed by client", "session_id", session.ID)
			return
		default:
			s.sendPlayError(conn, "unknown message type: "+msg.Type)
		}
	}

	slog.Info("play websocket disconnected", "session_id", session.ID)
}

// playAnswer locks and reloads the session, submits the answer and sends
// the result plus the next question. A nil session means the answer was
// rejected and reported to the client. A non-nil error means the
// connection is unusable.
func (s *Server) playAnswer(conn *websocket.Conn, id string, answer *models.AnswerRequest) (*models.Session, error) {
	// The request context belongs to the upgrade request and carries its timeout
	ctx, cancel := context.WithTimeout(context.Background(), playOpTimeout)
	defer cancel()

	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		_, _, message := errorStatus(err)
		return nil, s.sendPlayError(conn, message)
	}
	defer unlock()

	session, err := s.engine.Get(ctx, id)
	if err != nil {
		_, _, message := errorStatus(err)
		return nil, s.sendPlayError(conn, message)
	}

	previous := session.Tier
	res, err := s.engine.SubmitAnswer(ctx, session, answer.QuestionID, answer.Answer)
	if err != nil {
		_, _, message := errorStatus(err)
		return nil, s.sendPlayError(conn, message)
	}

	correct := res.IsCorrect
	event := answerEvent(session, previous, res.Score.TotalAnswered, &correct)
	s.publish(ctx, event)
	if res.TierChanged {
		s.publish(ctx, promotedEvent(session, res.Score.TotalAnswered))
	}

	result := answerResponse(res)
	if err := s.sendPlayMessage(conn, models.PlayMessage{Type: models.PlayResult, Result: &result}); err != nil {
		return nil, err
	}

	return session, s.sendQuestionOrScore(conn, session)
}

func (s *Server) sendQuestionOrScore(conn *websocket.Conn, session *models.Session) error {
	if q := s.engine.NextQuestion(session); q != nil {
		resp := questionResponse(session, q)
		return s.sendPlayMessage(conn, models.PlayMessage{Type: models.PlayQuestion, Question: &resp})
	}

	score := s.engine.Score(session)
	return s.sendPlayMessage(conn, models.PlayMessage{Type: models.PlayScore, Score: &score})
}

func (s *Server) sendPlayMessage(conn *websocket.Conn, msg models.PlayMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal play message", "error", err)
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send play message", "error", err)
		return err
	}
	return nil
}

func (s *Server) sendPlayError(conn *websocket.Conn, message string) error {
	return s.sendPlayMessage(conn, models.PlayMessage{
		Type:  models.PlayError,
		Error: message,
	})
}
