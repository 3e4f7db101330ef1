package mcp

import (
	"context"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/foliodev/folio/internal/model"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 500
)

// registerTools registers all folio MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {
	srv.AddTool(
		mcp.NewTool("folio_list_messages",
			mcp.WithDescription(
				"List contact-form messages, newest first. Each message has an id, "+
					"sender name and email, the message body and an RFC 3339 timestamp.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of messages to return (default 50, max 500)"),
			),
			mcp.WithString("search",
				mcp.Description("Case-insensitive substring matched against name, email and message"),
			),
		),
		s.handleListMessages,
	)

	srv.AddTool(
		mcp.NewTool("folio_message_count",
			mcp.WithDescription("Return the total number of stored contact messages."),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleMessageCount,
	)

	srv.AddTool(
		mcp.NewTool("folio_list_admins",
			mcp.WithDescription(
				"List principals bound to the admin role and when each was bound.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListAdmins,
	)
}

type messageInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	Submitted string `json:"submitted"`
}

func toMessageInfo(m model.ContactMessage) messageInfo {
	return messageInfo{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Message:   m.Message,
		Submitted: m.Time().Format(time.RFC3339),
	}
}

func (s *MCPServer) handleListMessages(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	limit := clamp(optionalInt(request, "limit", defaultMessageLimit), 1, maxMessageLimit)
	search := strings.ToLower(strings.TrimSpace(optionalString(request, "search")))

	msgs, err := s.store.ListMessages(ctx)
	if err != nil {
		return toolError("Failed to list messages: %v", err)
	}

	items := make([]messageInfo, 0, limit)
	for i := len(msgs) - 1; i >= 0 && len(items) < limit; i-- {
		m := msgs[i]
		if search != "" && !matches(m, search) {
			continue
		}
		items = append(items, toMessageInfo(m))
	}
	return successJSON(items)
}

func matches(m model.ContactMessage, needle string) bool {
	return strings.Contains(strings.ToLower(m.Name), needle) ||
		strings.Contains(strings.ToLower(m.Email), needle) ||
		strings.Contains(strings.ToLower(m.Message), needle)
}

func (s *MCPServer) handleMessageCount(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	n, err := s.store.CountMessages(ctx)
	if err != nil {
		return toolError("Failed to count messages: %v", err)
	}
	return successJSON(map[string]int{"count": n})
}

type adminInfo struct {
	Principal string `json:"principal"`
	BoundAt   string `json:"bound_at"`
}

func (s *MCPServer) listAdmins(ctx context.Context) ([]adminInfo, error) {
	bindings, err := s.store.ListAdminBindings(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]adminInfo, len(bindings))
	for i, b := range bindings {
		items[i] = adminInfo{Principal: b.Principal, BoundAt: b.BoundAt.Format(time.RFC3339)}
	}
	return items, nil
}

func (s *MCPServer) handleListAdmins(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	items, err := s.listAdmins(ctx)
	if err != nil {
		return toolError("Failed to list admins: %v", err)
	}
	return successJSON(items)
}
