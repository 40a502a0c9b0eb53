package mcpserver

import (
	"errors"
	"fmt"

	"agent-arena/internal/app/matchmaking"
	"agent-arena/internal/app/public"
	"agent-arena/internal/app/session"
	"agent-arena/internal/app/settlement"

	"github.com/mark3labs/mcp-go/mcp"
)

func toolResult(data any) *mcp.CallToolResult {
	return mcp.NewToolResultStructuredOnly(data)
}

func toolError(code, message string) *mcp.CallToolResult {
	result := mcp.NewToolResultStructured(
		map[string]any{
			"error": map[string]any{
				"code":    code,
				"message": message,
			},
		},
		fmt.Sprintf("%s: %s", code, message),
	)
	result.IsError = true
	return result
}

var toolErrorCodes = []error{
	matchmaking.ErrInvalidRequest,
	matchmaking.ErrAlreadyQueued,
	matchmaking.ErrSessionInactive,
	matchmaking.ErrSessionMismatch,
	matchmaking.ErrInsufficientBalance,
	matchmaking.ErrEscrowFailed,
	matchmaking.ErrNotInQueue,
	settlement.ErrInvalidRequest,
	settlement.ErrMatchNotFound,
	settlement.ErrResultMismatch,
	settlement.ErrAlreadySettled,
	public.ErrInvalidRequest,
	public.ErrMatchNotFound,
	session.ErrInvalidRequest,
	session.ErrSessionNotFound,
}

// mapDomainError turns a service error into a tool error whose code is the
// matching sentinel's text.
func mapDomainError(err error) *mcp.CallToolResult {
	if err == nil {
		return toolError("internal_error", "unknown error")
	}
	for _, sentinel := range toolErrorCodes {
		if errors.Is(err, sentinel) {
			return toolError(sentinel.Error(), err.Error())
		}
	}
	return toolError("internal_error", err.Error())
}
