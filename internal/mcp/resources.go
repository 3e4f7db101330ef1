package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/foliodev/folio/internal/config"
)

// registerResources adds MCP resource definitions to the server.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			"folio://admins",
			"Admin Bindings",
			mcp.WithResourceDescription("Principals bound to the admin role."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleAdminsResource,
	)

	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"folio://messages/{id}",
			"Contact Message",
			mcp.WithTemplateDescription("A single contact message by id."),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleMessageResource,
	)
}

func (s *MCPServer) handleAdminsResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {
	items, err := s.listAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return jsonContents("folio://admins", items)
}

func (s *MCPServer) handleMessageResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	id := strings.TrimPrefix(uri, "folio://messages/")
	if id == "" || id == uri {
		return nil, fmt.Errorf("invalid message URI %q", uri)
	}

	msg, err := s.store.GetMessage(ctx, id)
	if errors.Is(err, config.ErrNotFound) {
		return nil, fmt.Errorf("message %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	return jsonContents(uri, toMessageInfo(*msg))
}

func jsonContents(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
