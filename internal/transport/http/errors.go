package httptransport

import (
	"errors"
	"net/http"

	"agent-arena/internal/app/matchmaking"
	"agent-arena/internal/app/public"
	"agent-arena/internal/app/session"
	"agent-arena/internal/app/settlement"

	"github.com/rs/zerolog/log"
)

type errorMapping struct {
	err    error
	status int
}

// domainErrors maps sentinel errors to HTTP statuses. The response code is
// the sentinel's own text, so wrapped errors still report a stable code.
var domainErrors = []errorMapping{
	{matchmaking.ErrInvalidRequest, http.StatusBadRequest},
	{matchmaking.ErrSessionInactive, http.StatusBadRequest},
	{matchmaking.ErrSessionMismatch, http.StatusBadRequest},
	{matchmaking.ErrInsufficientBalance, http.StatusBadRequest},
	{matchmaking.ErrAlreadyQueued, http.StatusConflict},
	{matchmaking.ErrEscrowFailed, http.StatusConflict},
	{matchmaking.ErrNotInQueue, http.StatusNotFound},

	{settlement.ErrInvalidRequest, http.StatusBadRequest},
	{settlement.ErrResultMismatch, http.StatusBadRequest},
	{settlement.ErrMatchNotFound, http.StatusNotFound},
	{settlement.ErrAlreadySettled, http.StatusConflict},

	{public.ErrInvalidRequest, http.StatusBadRequest},
	{public.ErrMatchNotFound, http.StatusNotFound},

	{session.ErrInvalidRequest, http.StatusBadRequest},
	{session.ErrUnknownStrategy, http.StatusBadRequest},
	{session.ErrSessionNotFound, http.StatusNotFound},
	{session.ErrSessionExists, http.StatusConflict},
	{session.ErrSessionBusy, http.StatusConflict},
}

// MapError returns the status and error code for err.
func MapError(err error) (int, string) {
	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			return m.status, m.err.Error()
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := MapError(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request_failed")
	}
	WriteHTTPError(w, status, code)
}
