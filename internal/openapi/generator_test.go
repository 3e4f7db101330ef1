package openapi

import (
	"encoding/json"
	"testing"
)

func TestGenerate_Info(t *testing.T) {
	doc := Generate("http://localhost:8080", "1.2.3")

	if doc.OpenAPI != "3.1.0" {
		t.Errorf("OpenAPI = %q, want 3.1.0", doc.OpenAPI)
	}
	if doc.Info.Version != "1.2.3" {
		t.Errorf("Info.Version = %q, want 1.2.3", doc.Info.Version)
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "http://localhost:8080" {
		t.Errorf("unexpected servers: %+v", doc.Servers)
	}
	if Generate("", "").Info.Version != "dev" {
		t.Error("expected empty version to default to dev")
	}
}

func TestGenerate_Paths(t *testing.T) {
	doc := Generate("", "1.0.0")

	tests := []struct {
		path        string
		method      string
		operationID string
	}{
		{"/api/v1/identity/session", "POST", "createIdentitySession"},
		{"/api/v1/messages", "GET", "getAllMessages"},
		{"/api/v1/messages", "POST", "submitMessage"},
		{"/api/v1/admin/authorize", "POST", "authorizeAdmin"},
		{"/api/v1/admin/status", "GET", "checkAdminStatus"},
	}
	for _, tt := range tests {
		item := doc.Paths.Value(tt.path)
		if item == nil {
			t.Errorf("missing path %s", tt.path)
			continue
		}
		op := item.GetOperation(tt.method)
		if op == nil {
			t.Errorf("%s %s: missing operation", tt.method, tt.path)
			continue
		}
		if op.OperationID != tt.operationID {
			t.Errorf("%s %s: operationId = %q, want %q", tt.method, tt.path, op.OperationID, tt.operationID)
		}
		if op.Responses.Value("500") == nil {
			t.Errorf("%s %s: missing 500 response", tt.method, tt.path)
		}
	}
}

func TestGenerate_Components(t *testing.T) {
	doc := Generate("", "")

	for _, name := range []string{"ErrorResponse", "ContactMessage", "NewMessage"} {
		if doc.Components.Schemas[name] == nil {
			t.Errorf("missing schema %s", name)
		}
	}
	if doc.Components.SecuritySchemes["bearerAuth"] == nil {
		t.Error("missing bearerAuth security scheme")
	}

	msg := doc.Components.Schemas["ContactMessage"].Value
	if len(msg.Required) != 5 {
		t.Errorf("ContactMessage required = %v, want 5 fields", msg.Required)
	}
}

func TestGenerate_MarshalsToJSON(t *testing.T) {
	doc := Generate("http://example.com", "1.0.0")
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := out["paths"]; !ok {
		t.Error("expected paths in marshaled document")
	}
}
