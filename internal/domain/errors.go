package domain

import "errors"

var (
	// Record errors
	ErrMissingRecordID    = errors.New("record id is required")
	ErrMissingSource      = errors.New("record source is required")
	ErrMissingDate        = errors.New("record date is required")
	ErrMissingDescription = errors.New("record description is required")
	ErrInvalidSide        = errors.New("record side must be debit or credit")

	// Session errors
	ErrSessionNotFound         = errors.New("reconciliation session not found")
	ErrSessionFinalized        = errors.New("reconciliation session already finalized")
	ErrInvalidStageTransition  = errors.New("session stage transitions must be strictly forward")
	ErrInvalidStatusTransition = errors.New("exception status transitions must be strictly forward")
	ErrExceptionNotFound       = errors.New("exception not found")
)
