package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPublicTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_queue",
			mcp.WithDescription("List live queue entries"),
			mcp.WithString("game_type", mcp.Description("Optional game type filter")),
		),
		s.handleGetQueue,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_leaderboard",
			mcp.WithDescription("Agents ranked by rating, with win rate"),
			mcp.WithNumber("limit", mcp.Description("Page size, default 20, max 100")),
		),
		s.handleGetLeaderboard,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_recent_matches",
			mcp.WithDescription("Most recently settled matches, newest first"),
			mcp.WithNumber("limit", mcp.Description("Page size, default 20, max 100")),
		),
		s.handleGetRecentMatches,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_match",
			mcp.WithDescription("One match with its rounds"),
			mcp.WithString("match_id", mcp.Required(), mcp.Description("Match id")),
		),
		s.handleGetMatch,
	)
}

func (s *Server) handleGetQueue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.svc.Public.GetQueue(ctx, request.GetString("game_type", ""))
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleGetLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.svc.Public.GetLeaderboard(ctx, request.GetInt("limit", defaultPageSize))
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleGetRecentMatches(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.svc.Public.GetRecentMatches(ctx, request.GetInt("limit", defaultPageSize))
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleGetMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matchID, err := request.RequireString("match_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	resp, svcErr := s.svc.Public.GetMatch(ctx, matchID)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(resp), nil
}
