package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/trivia-engine/internal/models"
)

// PlayConn is an open play socket for one session
type PlayConn struct {
	conn *websocket.Conn
}

// Play opens the play socket of a session. The server sends the first
// question, or the score when the session is over, right away.
func (c *Client) Play(ctx context.Context, id string) (*PlayConn, error) {
	wsURL := c.baseURL + sessionPath(id, "/play")
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, &APIError{Status: resp.StatusCode, Code: "handshake_failed", Message: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	return &PlayConn{conn: conn}, nil
}

// Receive reads the next message from the server
func (p *PlayConn) Receive() (*models.PlayMessage, error) {
	var msg models.PlayMessage
	if err := p.conn.ReadJSON(&msg); err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	return &msg, nil
}

// Answer sends an answer for a question
func (p *PlayConn) Answer(questionID int64, answer string) error {
	return p.send(models.PlayMessage{
		Type:   models.PlayAnswer,
		Answer: &models.AnswerRequest{QuestionID: questionID, Answer: answer},
	})
}

// Quit asks the server for the final score and ends the game
func (p *PlayConn) Quit() error {
	return p.send(models.PlayMessage{Type: models.PlayQuit})
}

// Close closes the socket
func (p *PlayConn) Close() error {
	return p.conn.Close()
}

func (p *PlayConn) send(msg models.PlayMessage) error {
	if err := p.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
