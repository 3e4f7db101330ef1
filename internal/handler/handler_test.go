package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/foliodev/folio/internal/config"
	"github.com/foliodev/folio/internal/model"
	"github.com/foliodev/folio/internal/server/middleware"
	"github.com/foliodev/folio/internal/service"
)

const (
	testJWTSecret  = "test-secret-for-handler-tests"
	testAdminToken = "handler-test-admin-token"
)

// testEnv holds shared state for handler tests.
type testEnv struct {
	store   *config.Store
	authSvc *service.AuthService
	router  chi.Router
}

// newTestEnv mounts the handlers on a Chi router without auth middleware.
// Tests attach a principal with asPrincipal.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("config.NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminToken), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}
	authSvc := service.NewAuthService(store, testJWTSecret, hash)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	identity := NewIdentityHandler(authSvc, time.Hour, logger)
	messages := NewMessageHandler(store, logger)
	admin := NewAdminHandler(authSvc, logger)

	r := chi.NewRouter()
	r.Post("/identity/session", identity.CreateSession)
	r.Post("/messages", messages.Submit)
	r.Get("/messages", messages.List)
	r.Post("/admin/authorize", admin.Authorize)
	r.Get("/admin/status", admin.Status)
	r.Get("/openapi.json", NewOpenAPIHandler("test").ServeSpec)

	return &testEnv{store: store, authSvc: authSvc, router: r}
}

func (e *testEnv) do(t *testing.T, method, path, principal string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if principal != "" {
		ctx := context.WithValue(req.Context(), middleware.AuthPrincipalKey, &middleware.Principal{Subject: principal})
		req = req.WithContext(ctx)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body=%s)", err, rr.Body.String())
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, http.StatusBadRequest, "bad input", map[string]interface{}{"field": "name"})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var resp model.ErrorResponse
	decodeJSON(t, rr, &resp)
	if resp.Error.Code != 400 || resp.Error.Message != "bad input" || resp.Error.Context["field"] != "name" {
		t.Errorf("unexpected error body: %+v", resp)
	}
}

func TestCreateIdentitySession(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/identity/session", "", model.IdentitySessionRequest{Principal: " alice "})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp model.IdentitySessionResponse
	decodeJSON(t, rr, &resp)
	if resp.Principal != "alice" || resp.TokenType != "bearer" || resp.ExpiresIn != 3600 {
		t.Errorf("unexpected response: %+v", resp)
	}
	p, err := env.authSvc.ValidateJWT(context.Background(), resp.Token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if p.Subject != "alice" {
		t.Errorf("subject = %q, want alice", p.Subject)
	}
}

func TestCreateIdentitySession_MissingPrincipal(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "POST", "/identity/session", "", model.IdentitySessionRequest{})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestSubmitMessage(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/messages", "", model.NewMessageRequest{
		Name: "Ada", Email: "ada@example.com", Message: "Hello",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var msg model.ContactMessage
	decodeJSON(t, rr, &msg)
	if msg.ID == "" || msg.TimestampNanos == 0 {
		t.Errorf("expected ID and timestamp, got %+v", msg)
	}

	n, err := env.store.CountMessages(context.Background())
	if err != nil {
		t.Fatalf("CountMessages: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestSubmitMessage_Validation(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/messages", "", model.NewMessageRequest{Name: "Ada", Email: "nope"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	var resp model.ErrorResponse
	decodeJSON(t, rr, &resp)
	if resp.Error.Context["email"] != "Please enter a valid email" {
		t.Errorf("email error = %v", resp.Error.Context["email"])
	}
	if resp.Error.Context["message"] != "Message is required" {
		t.Errorf("message error = %v", resp.Error.Context["message"])
	}
}

func TestSubmitMessage_BadJSON(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest("POST", "/messages", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestListMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, name := range []string{"first", "second"} {
		if err := env.store.CreateMessage(ctx, &model.ContactMessage{Name: name, Email: "x@example.com", Message: "m"}); err != nil {
			t.Fatalf("CreateMessage: %v", err)
		}
	}

	rr := env.do(t, "GET", "/messages", "alice", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp model.MessageListResponse
	decodeJSON(t, rr, &resp)
	if resp.Meta == nil || resp.Meta.Count != 2 {
		t.Fatalf("unexpected meta: %+v", resp.Meta)
	}
	if resp.Resource[0].Name != "first" {
		t.Errorf("expected oldest first, got %q", resp.Resource[0].Name)
	}
}

func TestAuthorizeAdmin(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/admin/authorize", "alice", model.AuthorizeRequest{Token: "wrong"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp model.AuthorizeResponse
	decodeJSON(t, rr, &resp)
	if resp.Authorized {
		t.Fatal("expected wrong token to be refused")
	}

	rr = env.do(t, "POST", "/admin/authorize", "alice", model.AuthorizeRequest{Token: testAdminToken})
	decodeJSON(t, rr, &resp)
	if !resp.Authorized {
		t.Fatal("expected correct token to authorize")
	}

	rr = env.do(t, "GET", "/admin/status", "alice", nil)
	var status model.AdminStatusResponse
	decodeJSON(t, rr, &status)
	if !status.IsAdmin {
		t.Error("expected alice to be admin after authorization")
	}
}

func TestAuthorizeAdmin_Anonymous(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "POST", "/admin/authorize", "", model.AuthorizeRequest{Token: testAdminToken})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestAdminStatus_Anonymous(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "GET", "/admin/status", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var status model.AdminStatusResponse
	decodeJSON(t, rr, &status)
	if status.IsAdmin {
		t.Error("anonymous caller must not be admin")
	}
}

func TestServeOpenAPISpec(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "GET", "/openapi.json", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var doc map[string]interface{}
	decodeJSON(t, rr, &doc)
	info, _ := doc["info"].(map[string]interface{})
	if info["version"] != "test" {
		t.Errorf("info.version = %v, want test", info["version"])
	}
}
