package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	statsURI         = "arco://stats"
	feedbackStatsURI = "arco://feedback/stats"
)

// registerResources adds read-only resources that clients can load into
// their context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			statsURI,
			"Dashboard Counters",
			mcp.WithResourceDescription(
				"Account and feedback counters as shown on the admin dashboard.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleStatsResource,
	)

	srv.AddResource(
		mcp.NewResource(
			feedbackStatsURI,
			"Feedback Counters",
			mcp.WithResourceDescription("Total, unread and archived feedback counts."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleFeedbackStatsResource,
	)
}

func (s *MCPServer) handleStatsResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	stats, err := s.feedback.AdminStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return jsonResource(request.Params.URI, stats)
}

func (s *MCPServer) handleFeedbackStatsResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	stats, err := s.feedback.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback stats: %w", err)
	}
	return jsonResource(request.Params.URI, stats)
}

func jsonResource(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
