package matchmaking

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid_request")
	ErrAlreadyQueued       = errors.New("already_queued")
	ErrSessionInactive     = errors.New("session_inactive")
	ErrSessionMismatch     = errors.New("session_agent_mismatch")
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrEscrowFailed        = errors.New("escrow_failed")
	ErrNotInQueue          = errors.New("not_in_queue")
)
