package session

import "errors"

var (
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrSessionNotFound = errors.New("session_not_found")
	ErrSessionExists   = errors.New("session_exists")
	ErrUnknownStrategy = errors.New("unknown_strategy")
	ErrSessionBusy     = errors.New("session_busy")
)
