package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrRecordTooLarge     = errors.New("single record exceeds the unit size bound")
	ErrEmptyDocument      = errors.New("document has no content")
	ErrJobInFlight        = errors.New("a generation job for this document is already running")
	ErrTooManyRequests    = errors.New("submission rate limit exceeded")
	ErrQueueSaturated     = errors.New("generation queue is saturated")
	ErrInvalidTransition  = errors.New("illegal job status transition")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid executor context")
)
