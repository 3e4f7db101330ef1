package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/foliodev/folio/internal/config"
	"github.com/foliodev/folio/internal/service"
)

func newTestAuth(t *testing.T) (*service.AuthService, *config.Store) {
	t.Helper()
	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return service.NewAuthService(store, "middleware-test-secret", nil), store
}

func issue(t *testing.T, auth *service.AuthService, principal string) string {
	t.Helper()
	tok, err := auth.IssueJWT(context.Background(), principal, time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}
	return tok
}

// ---------------------------------------------------------------------------
// RequestID middleware tests
// ---------------------------------------------------------------------------

func TestRequestIDGeneratesUUID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Error("expected non-empty request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	respID := rr.Header().Get("X-Request-ID")
	if len(respID) != 36 {
		t.Errorf("expected UUID-length request ID, got %q (len=%d)", respID, len(respID))
	}
}

func TestRequestIDPreservesClientID(t *testing.T) {
	clientID := "my-custom-trace-id-123"

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := GetRequestID(r.Context()); id != clientID {
			t.Errorf("expected context ID %q, got %q", clientID, id)
		}
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", clientID)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); got != clientID {
		t.Errorf("expected response X-Request-ID %q, got %q", clientID, got)
	}
}

func TestRequestIDReplacesInvalidClientID(t *testing.T) {
	for _, bad := range []string{"has space", strings.Repeat("x", maxRequestIDLen+1)} {
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-Request-ID", bad)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if got := rr.Header().Get("X-Request-ID"); got == bad || len(got) != 36 {
			t.Errorf("client ID %q: got response ID %q, want a fresh UUID", bad, got)
		}
	}
}

func TestGetRequestIDEmptyContext(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("expected empty string from bare context, got %q", id)
	}
}

// ---------------------------------------------------------------------------
// Authentication middleware tests
// ---------------------------------------------------------------------------

func TestOptionalAuthenticateAnonymous(t *testing.T) {
	auth, _ := newTestAuth(t)
	called := false
	handler := OptionalAuthenticate(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if p := GetPrincipal(r.Context()); p != nil {
			t.Errorf("expected no principal, got %+v", p)
		}
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if !called {
		t.Fatal("expected anonymous request to pass through")
	}
}

func TestOptionalAuthenticateValidToken(t *testing.T) {
	auth, _ := newTestAuth(t)
	handler := OptionalAuthenticate(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := GetPrincipal(r.Context())
		if p == nil || p.Subject != "alice" {
			t.Errorf("expected principal alice, got %+v", p)
		}
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, auth, "alice"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}

func TestOptionalAuthenticateRejectsBadToken(t *testing.T) {
	auth, _ := newTestAuth(t)
	handler := OptionalAuthenticate(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}

	var body authError
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error.Code != http.StatusUnauthorized {
		t.Errorf("expected code 401 in body, got %d", body.Error.Code)
	}
}

func TestAuthenticateRequiresToken(t *testing.T) {
	auth, _ := newTestAuth(t)
	handler := Authenticate(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// RequireAdmin middleware tests
// ---------------------------------------------------------------------------

func TestRequireAdminAllowsBoundPrincipal(t *testing.T) {
	auth, store := newTestAuth(t)
	if _, err := store.BindAdmin(context.Background(), "alice"); err != nil {
		t.Fatalf("BindAdmin: %v", err)
	}

	handler := RequireAdmin(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/admin", nil)
	req = req.WithContext(context.WithValue(req.Context(), AuthPrincipalKey, &Principal{Subject: "alice"}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}

func TestRequireAdminBlocksUnboundPrincipal(t *testing.T) {
	auth, _ := newTestAuth(t)
	handler := RequireAdmin(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/admin", nil)
	req = req.WithContext(context.WithValue(req.Context(), AuthPrincipalKey, &Principal{Subject: "bob"}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rr.Code)
	}
}

func TestRequireAdminBlocksUnauthenticated(t *testing.T) {
	auth, _ := newTestAuth(t)
	handler := RequireAdmin(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/admin", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// RateLimit and Logger tests
// ---------------------------------------------------------------------------

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	handler := RateLimit(2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest("POST", "/api/v1/messages", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes[i] = rr.Code
	}
	if codes[0] != http.StatusCreated || codes[1] != http.StatusCreated {
		t.Errorf("expected first two requests to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected third request to be limited, got %d", codes[2])
	}
}

func TestRateLimitDisabled(t *testing.T) {
	handler := RateLimit(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("POST", "/", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
	}
}

func TestLoggerOmitsQueryString(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	handler := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/messages?secret=abc", nil))

	out := buf.String()
	if strings.Contains(out, "secret=abc") {
		t.Errorf("log line leaked query string: %s", out)
	}
	if !strings.Contains(out, "status=418") || !strings.Contains(out, "level=WARN") {
		t.Errorf("unexpected log line: %s", out)
	}
}

func TestLoggerProbesAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	handler := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))
	if buf.Len() != 0 {
		t.Errorf("expected probe to be suppressed at info level, got %s", buf.String())
	}
}
