package quiz

import "errors"

// Common errors
var (
	ErrRepositoryUnavailable = errors.New("question repository unavailable")
	ErrSessionNotFound       = errors.New("session not found")
	ErrQuestionNotInSession  = errors.New("question is not part of the session")
	ErrInvalidAnswerInput    = errors.New("question id and answer are required")
	ErrSessionExhausted      = errors.New("session has no questions left")
	ErrQuestionNotCurrent    = errors.New("question is not the one being asked")
	ErrSessionCompleted      = errors.New("session is already completed")
)
