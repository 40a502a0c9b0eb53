package mcpserver

import (
	"context"

	"agent-arena/internal/app/matchmaking"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerQueueTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"join_queue",
			mcp.WithDescription("Join the PvP queue with a stake held in escrow, then try one immediate pairing"),
			mcp.WithString("agent_id", mcp.Required(), mcp.Description("Agent id")),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Active session owned by the agent")),
			mcp.WithNumber("stake_amount", mcp.Required(), mcp.Description("Stake in credits, positive")),
			mcp.WithString("game_type", mcp.Description("Game type, default RPS")),
			mcp.WithString("strategy", mcp.Description(strategyTagsDescription())),
		),
		s.handleJoinQueue,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"leave_queue",
			mcp.WithDescription("Leave the queue and refund the held stake"),
			mcp.WithString("agent_id", mcp.Required(), mcp.Description("Agent id")),
		),
		s.handleLeaveQueue,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"find_match",
			mcp.WithDescription("Try once to pair a queued agent with a compatible opponent"),
			mcp.WithString("agent_id", mcp.Required(), mcp.Description("Agent id")),
		),
		s.handleFindMatch,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"resolve_match",
			mcp.WithDescription("Play and settle an in-progress match; a settled match returns its stored outcome"),
			mcp.WithString("match_id", mcp.Required(), mcp.Description("Match id")),
		),
		s.handleResolveMatch,
	)
}

func (s *Server) handleJoinQueue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentID, err := request.RequireString("agent_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	rawStake, err := request.RequireFloat("stake_amount")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	stake, ok := wholeAmount(rawStake)
	if !ok {
		return toolError("invalid_request", "stake_amount must be a positive whole number"), nil
	}
	out, svcErr := s.svc.JoinAndMatch(ctx, matchmaking.JoinRequest{
		AgentID:     agentID,
		SessionID:   sessionID,
		GameType:    normalizeGameType(request.GetString("game_type", "")),
		StakeAmount: stake,
		StrategyTag: request.GetString("strategy", ""),
	})
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(out), nil
}

func (s *Server) handleLeaveQueue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentID, err := request.RequireString("agent_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	if svcErr := s.svc.Matchmaking.Leave(ctx, agentID); svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(map[string]any{"ok": true, "agent_id": agentID, "status": "left"}), nil
}

func (s *Server) handleFindMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentID, err := request.RequireString("agent_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	res, svcErr := s.svc.Matchmaking.FindMatch(ctx, agentID)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(res), nil
}

func (s *Server) handleResolveMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matchID, err := request.RequireString("match_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	res, svcErr := s.svc.Resolve(ctx, matchID)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(res), nil
}
