package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/arcoapp/arco-admin/internal/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// registerTools adds all MCP tool definitions to the server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	// ----- Accounts -----

	srv.AddTool(
		mcp.NewTool("arco_list_users",
			mcp.WithDescription(
				"List user accounts, newest first. Filter by a search term matched against "+
					"username, email and names, or by role. Archived accounts are hidden "+
					"unless include_archived is set. Password and security-answer hashes "+
					"are never returned.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("search",
				mcp.Description("Substring to match against username, email, first and last name"),
			),
			mcp.WithString("role",
				mcp.Description("Only return accounts with this role"),
				mcp.Enum(model.RoleAdmin, model.RoleUser),
			),
			mcp.WithBoolean("include_archived",
				mcp.Description("Include archived accounts (default false)"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of accounts to return (server default when omitted, max 500)"),
			),
			mcp.WithNumber("offset",
				mcp.Description("Number of accounts to skip for pagination"),
			),
		),
		s.handleListUsers,
	)

	srv.AddTool(
		mcp.NewTool("arco_get_user",
			mcp.WithDescription("Get a single user account by id."),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("Numeric id of the account"),
			),
		),
		s.handleGetUser,
	)

	// ----- Feedback and dashboard -----

	srv.AddTool(
		mcp.NewTool("arco_list_feedback",
			mcp.WithDescription(
				"List feedback messages, newest first, with the submitting username when "+
					"the sender was signed in. Set archived to list the archive instead of "+
					"the inbox.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithBoolean("archived",
				mcp.Description("List archived feedback instead of the inbox"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of messages to return (server default when omitted, max 500)"),
			),
			mcp.WithNumber("offset",
				mcp.Description("Number of messages to skip for pagination"),
			),
		),
		s.handleListFeedback,
	)

	srv.AddTool(
		mcp.NewTool("arco_admin_stats",
			mcp.WithDescription(
				"Dashboard counters: total, active (signed in during the last 24 hours), "+
					"recent and archived accounts, accounts by role, and feedback totals.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleAdminStats,
	)

	if !s.allowWrites {
		return
	}

	// ----- Account lifecycle (opt-in) -----

	srv.AddTool(
		mcp.NewTool("arco_archive_user",
			mcp.WithDescription(
				"Archive a user account. Archived accounts cannot sign in and are excluded "+
					"from the active user counts. Archiving is reversible with arco_restore_user.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("Numeric id of the account to archive"),
			),
		),
		s.handleArchiveUser,
	)

	srv.AddTool(
		mcp.NewTool("arco_restore_user",
			mcp.WithDescription("Restore a previously archived user account."),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("Numeric id of the account to restore"),
			),
		),
		s.handleRestoreUser,
	)
}

func (s *MCPServer) handleListUsers(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	role := request.GetString("role", "")
	if role != "" && role != model.RoleAdmin && role != model.RoleUser {
		return toolError("Unknown role %q: use %q or %q", role, model.RoleAdmin, model.RoleUser)
	}

	users, err := s.users.ListUsers(ctx, model.UserFilter{
		Search:          request.GetString("search", ""),
		Role:            role,
		IncludeArchived: request.GetBool("include_archived", false),
		Limit:           clamp(request.GetInt("limit", s.limit), 1, maxListLimit),
		Offset:          clamp(request.GetInt("offset", 0), 0, 1<<30),
	})
	if err != nil {
		return serviceError("Failed to list users", err)
	}
	if users == nil {
		users = []model.User{}
	}
	return successJSON(users)
}

func (s *MCPServer) handleGetUser(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireID(request, "id")
	if err != nil {
		return toolError("%v", err)
	}
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		return serviceError("Failed to get user", err)
	}
	return successJSON(u)
}

func (s *MCPServer) handleListFeedback(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	limit := clamp(request.GetInt("limit", s.limit), 1, maxListLimit)
	offset := clamp(request.GetInt("offset", 0), 0, 1<<30)

	var (
		items []model.Feedback
		err   error
	)
	if request.GetBool("archived", false) {
		items, err = s.feedback.Archived(ctx, limit, offset)
	} else {
		items, err = s.feedback.List(ctx, limit, offset)
	}
	if err != nil {
		return serviceError("Failed to list feedback", err)
	}
	if items == nil {
		items = []model.Feedback{}
	}
	return successJSON(items)
}

func (s *MCPServer) handleAdminStats(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	stats, err := s.feedback.AdminStats(ctx)
	if err != nil {
		return serviceError("Failed to load stats", err)
	}
	return successJSON(stats)
}

func (s *MCPServer) handleArchiveUser(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireID(request, "id")
	if err != nil {
		return toolError("%v", err)
	}
	if err := s.users.ArchiveUser(ctx, id); err != nil {
		return serviceError("Failed to archive user", err)
	}
	s.logger.Info("user archived via MCP", "user_id", id)
	return successJSON(map[string]interface{}{"id": id, "status": model.StatusArchived})
}

func (s *MCPServer) handleRestoreUser(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireID(request, "id")
	if err != nil {
		return toolError("%v", err)
	}
	if err := s.users.RestoreUser(ctx, id); err != nil {
		return serviceError("Failed to restore user", err)
	}
	s.logger.Info("user restored via MCP", "user_id", id)
	return successJSON(map[string]interface{}{"id": id, "status": model.StatusActive})
}
