package service

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrNotStarted          = errors.New("service not started")
	ErrInvalidIntake       = errors.New("invalid intake")
	ErrDuplicateSubmission = errors.New("duplicate submission")
	ErrQueueFull           = errors.New("submission queue full")
	ErrUnknownModule       = errors.New("unknown module")
)
