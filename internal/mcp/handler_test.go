package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/foliodev/folio/internal/config"
	"github.com/foliodev/folio/internal/model"
)

func newTestServer(t *testing.T) (*MCPServer, *config.Store) {
	t.Helper()
	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMCPServer(store, "test", logger), store
}

func seedMessages(t *testing.T, store *config.Store) {
	t.Helper()
	for i, m := range []model.ContactMessage{
		{Name: "Ada", Email: "ada@example.com", Message: "Hello"},
		{Name: "Grace", Email: "grace@example.com", Message: "Compilers!"},
		{Name: "Linus", Email: "linus@example.com", Message: "hello again"},
	} {
		m.TimestampNanos = int64(1000 + i)
		if err := store.CreateMessage(context.Background(), &m); err != nil {
			t.Fatalf("CreateMessage: %v", err)
		}
	}
}

func callTool(t *testing.T, fn func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) string {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := fn(context.Background(), req)
	if err != nil {
		t.Fatalf("tool call: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool returned error result: %+v", res.Content)
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return text.Text
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		val      int
		min      int
		max      int
		expected int
	}{
		{"value in range", 5, 1, 10, 5},
		{"value below min", -3, 1, 10, 1},
		{"value above max", 15, 1, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clamp(tt.val, tt.min, tt.max); got != tt.expected {
				t.Errorf("clamp(%d, %d, %d) = %d, want %d", tt.val, tt.min, tt.max, got, tt.expected)
			}
		})
	}
}

func TestReadOnlyAnnotation(t *testing.T) {
	a := readOnlyAnnotation()
	if a.ReadOnlyHint == nil || !*a.ReadOnlyHint {
		t.Error("expected ReadOnlyHint=true")
	}
}

func TestListMessagesNewestFirst(t *testing.T) {
	s, store := newTestServer(t)
	seedMessages(t, store)

	out := callTool(t, s.handleListMessages, map[string]interface{}{"limit": 2})
	var items []messageInfo
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Name != "Linus" || items[1].Name != "Grace" {
		t.Errorf("unexpected order: %+v", items)
	}
}

func TestListMessagesSearch(t *testing.T) {
	s, store := newTestServer(t)
	seedMessages(t, store)

	out := callTool(t, s.handleListMessages, map[string]interface{}{"search": "HELLO"})
	var items []messageInfo
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2: %+v", len(items), items)
	}
}

func TestMessageCount(t *testing.T) {
	s, store := newTestServer(t)
	seedMessages(t, store)

	out := callTool(t, s.handleMessageCount, nil)
	var resp map[string]int
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["count"] != 3 {
		t.Errorf("count = %d, want 3", resp["count"])
	}
}

func TestListAdmins(t *testing.T) {
	s, store := newTestServer(t)
	if _, err := store.BindAdmin(context.Background(), "owner"); err != nil {
		t.Fatalf("BindAdmin: %v", err)
	}

	out := callTool(t, s.handleListAdmins, nil)
	var items []adminInfo
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(items) != 1 || items[0].Principal != "owner" {
		t.Errorf("unexpected admins: %+v", items)
	}
}

func TestMessageResource(t *testing.T) {
	s, store := newTestServer(t)
	msg := &model.ContactMessage{Name: "Ada", Email: "ada@example.com", Message: "Hi"}
	if err := store.CreateMessage(context.Background(), msg); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "folio://messages/" + msg.ID
	contents, err := s.handleMessageResource(context.Background(), req)
	if err != nil {
		t.Fatalf("handleMessageResource: %v", err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	var info messageInfo
	if err := json.Unmarshal([]byte(text), &info); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if info.ID != msg.ID {
		t.Errorf("id = %q, want %q", info.ID, msg.ID)
	}

	req.Params.URI = "folio://messages/missing"
	if _, err := s.handleMessageResource(context.Background(), req); err == nil {
		t.Error("expected error for missing message")
	}
}
