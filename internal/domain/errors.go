package domain

import "errors"

var (
	// ErrMatchNotFound is returned when no match exists for the given id or code.
	ErrMatchNotFound = errors.New("match not found")
	// ErrInvalidPin is returned when a host action carries the wrong pin.
	ErrInvalidPin = errors.New("invalid host pin")
	// ErrDuplicateCode is returned when a join code is already taken at creation.
	ErrDuplicateCode = errors.New("join code already in use")
	// ErrPackNotFound indicates the question pack could not be loaded.
	ErrPackNotFound = errors.New("question pack not found")
	// ErrPackDisabled indicates the pack exists but is switched off.
	ErrPackDisabled = errors.New("question pack disabled")
	// ErrPlayerNotFound is returned when a player acts before joining.
	ErrPlayerNotFound = errors.New("player not found in match")
	// ErrAlreadyAnswered is returned on a duplicate submission for a question.
	ErrAlreadyAnswered = errors.New("player already answered this question")
	// ErrStaleQuestion is returned when a submission targets a question index
	// that is no longer the current one.
	ErrStaleQuestion = errors.New("submission targets a stale question")
	// ErrMatchEnded is returned for any operation against an ended match.
	ErrMatchEnded = errors.New("match has ended")
	// ErrQuestionNotOpen is returned when submitting outside an open question.
	ErrQuestionNotOpen = errors.New("no question is open for answers")
	// ErrInvalidTransition is returned for host actions the state machine forbids.
	ErrInvalidTransition = errors.New("invalid match state transition")
	// ErrWriteConflict signals a concurrent commit invalidated a transaction
	// read. Stores retry on it internally; callers never see it on success.
	ErrWriteConflict = errors.New("write conflict")
	// ErrTransactionFailed is surfaced once a transaction exhausts its retry budget.
	ErrTransactionFailed = errors.New("transaction failed after retries")
)
