package settlement

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrMatchNotFound  = errors.New("match_not_found")
	ErrAlreadySettled = errors.New("already_settled")
	ErrResultMismatch = errors.New("result_mismatch")
)
