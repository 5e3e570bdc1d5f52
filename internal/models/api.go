package models

import "time"

// SessionResponse is returned when a session is created, fetched or reset
type SessionResponse struct {
	ID             string        `json:"id"`
	Tier           Tier          `json:"tier"`
	Status         SessionStatus `json:"status"`
	QuestionsCount int           `json:"questions_count"`
	Answered       int           `json:"answered"`
	Target         int           `json:"target"`
	HasNext        bool          `json:"has_next"`
	CreatedAt      time.Time     `json:"created_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
}

// QuestionResponse is returned by the next-question endpoint
type QuestionResponse struct {
	QuestionNumber int      `json:"question_number"`
	ID             int64    `json:"id"`
	Prompt         string   `json:"prompt"`
	Options        []string `json:"options"`
	Tier           Tier     `json:"tier"`
}

// NoMoreQuestionsResponse is returned by the next-question endpoint once a
// session is exhausted
type NoMoreQuestionsResponse struct {
	Done    bool   `json:"done"`
	Message string `json:"message"`
}

// AnswerRequest represents a submitted answer
type AnswerRequest struct {
	QuestionID int64  `json:"question_id"`
	Answer     string `json:"answer"`
}

// AnswerResponse is returned after an answer has been evaluated
type AnswerResponse struct {
	IsCorrect     bool   `json:"is_correct"`
	CorrectAnswer string `json:"correct_answer"`
	Tier          Tier   `json:"tier"`
	TierChanged   bool   `json:"tier_changed"`
	Streak        int    `json:"streak"`
	Answered      int    `json:"answered"`
}

// CatalogResponse lists how many questions exist per tier
type CatalogResponse struct {
	Tiers map[Tier]int `json:"tiers"`
	Total int          `json:"total"`
}

// Play socket message types
const (
	PlayQuestion = "question"
	PlayAnswer   = "answer"
	PlayResult   = "result"
	PlayScore    = "score"
	PlayQuit     = "quit"
	PlayError    = "error"
)

// PlayMessage is exchanged over the play WebSocket. Type selects which
// of the other fields is set.
type PlayMessage struct {
	Type     string            `json:"type"`
	Question *QuestionResponse `json:"question,omitempty"`
	Answer   *AnswerRequest    `json:"answer,omitempty"`
	Result   *AnswerResponse   `json:"result,omitempty"`
	Score    *Score            `json:"score,omitempty"`
	Error    string            `json:"error,omitempty"`
}
