package models

import (
	"time"
)

// SessionStatus represents the current state of a quiz session
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"    // Questions left to answer
	SessionExhausted SessionStatus = "exhausted" // Target reached or no questions left
	SessionCompleted SessionStatus = "completed" // Archived by reset or cleanup
)

// Session is the mutable record of one quiz attempt.
// Questions is the assigned set for the current tier and is replaced
// wholesale on promotion; the answer counters survive the replacement.
type Session struct {
	ID             string        `json:"id"`
	Tier           Tier          `json:"tier"`
	Questions      []Question    `json:"-"`
	Cursor         int           `json:"cursor"`
	CorrectCount   int           `json:"correct_count"`
	IncorrectCount int           `json:"incorrect_count"`
	Streak         int           `json:"streak"`
	Status         SessionStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
}

// Answered returns the number of answers submitted over the session lifetime
func (s *Session) Answered() int {
	return s.CorrectCount + s.IncorrectCount
}

// IndexOf returns the position of the question in the assigned set, or -1
func (s *Session) IndexOf(questionID int64) int {
	for i := range s.Questions {
		if s.Questions[i].ID == questionID {
			return i
		}
	}
	return -1
}

// IsTerminal returns true if the session has been archived
func (s *Session) IsTerminal() bool {
	return s.Status == SessionCompleted
}

// Clone returns a deep copy so a pending mutation can be discarded
func (s *Session) Clone() *Session {
	c := *s
	c.Questions = make([]Question, len(s.Questions))
	for i, q := range s.Questions {
		c.Questions[i] = q.Clone()
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Score is the fixed-shape scoring summary of a session
type Score struct {
	TotalAnswered  int     `json:"total_answered"`
	CorrectCount   int     `json:"correct_count"`
	IncorrectCount int     `json:"incorrect_count"`
	Tier           Tier    `json:"tier"`
	Accuracy       float64 `json:"accuracy"`
}

// AnswerRecord is the audit row written for every submitted answer
type AnswerRecord struct {
	SessionID  string    `json:"session_id"`
	QuestionID int64     `json:"question_id"`
	Answer     string    `json:"answer"`
	IsCorrect  bool      `json:"is_correct"`
	Tier       Tier      `json:"tier"`
	AnsweredAt time.Time `json:"answered_at"`
}
