package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidQuestion is returned by Question.Validate
var ErrInvalidQuestion = errors.New("invalid question")

// Question is a single catalog entry. Questions are immutable once loaded.
type Question struct {
	ID            int64     `json:"id"`
	Prompt        string    `json:"prompt"`
	Options       []string  `json:"options"`
	CorrectOption string    `json:"-"` // Never sent to players
	Tier          Tier      `json:"tier"`
	CreatedAt     time.Time `json:"created_at"`
}

// Validate checks the question invariants: a prompt, at least two unique
// options, the correct option among them and a known tier.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("%w: prompt is required", ErrInvalidQuestion)
	}

	if len(q.Options) < 2 {
		return fmt.Errorf("%w: at least 2 options required, got %d", ErrInvalidQuestion, len(q.Options))
	}

	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if _, dup := seen[opt]; dup {
			return fmt.Errorf("%w: duplicate option %q", ErrInvalidQuestion, opt)
		}
		seen[opt] = struct{}{}
	}

	if _, ok := seen[q.CorrectOption]; !ok {
		return fmt.Errorf("%w: correct option %q is not among the options", ErrInvalidQuestion, q.CorrectOption)
	}

	if !q.Tier.Valid() {
		return fmt.Errorf("%w: unknown tier %q", ErrInvalidQuestion, q.Tier)
	}

	return nil
}

// IsCorrect compares the answer with the correct option using exact,
// case-sensitive equality
func (q *Question) IsCorrect(answer string) bool {
	return q.CorrectOption == answer
}

// Clone returns a copy that does not share the options slice
func (q Question) Clone() Question {
	q.Options = append([]string(nil), q.Options...)
	return q
}
