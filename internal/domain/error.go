package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrCancelled          = errors.New("job cancelled")
	ErrJobTerminal        = errors.New("job already in a terminal phase")
	ErrPersistence        = errors.New("persistence failure")
	ErrProvidersExhausted = errors.New("all content providers exhausted")
	ErrInvalidTransition  = errors.New("illegal phase transition")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
