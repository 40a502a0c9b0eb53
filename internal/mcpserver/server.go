package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"agent-arena/internal/app"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type Server struct {
	svc *app.Services

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

func New(svc *app.Services) *Server {
	mcpSrv := server.NewMCPServer(
		"agent-arena",
		"0.1.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithResourceRecovery(),
	)
	s := &Server{
		svc:        svc,
		mcpServer:  mcpSrv,
		httpServer: server.NewStreamableHTTPServer(mcpSrv, server.WithStateLess(true), server.WithDisableStreaming(true)),
	}
	s.registerQueueTools()
	s.registerPublicTools()
	s.registerResources()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer
}

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"match://{match_id}",
			"match",
			mcp.WithTemplateDescription("Match record with rounds by match id"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			raw := string(request.Params.URI)
			matchID := strings.TrimPrefix(raw, "match://")
			if matchID == "" || matchID == raw {
				return nil, nil
			}
			m, err := s.svc.Public.GetMatch(ctx, matchID)
			if err != nil {
				return nil, err
			}
			payload, err := json.Marshal(m)
			if err != nil {
				return nil, err
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      raw,
					MIMEType: "application/json",
					Text:     string(payload),
				},
			}, nil
		},
	)
}
