package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/foliodev/folio/internal/config"
)

const testAdminToken = "8a442e85f53e8e31bbe8c4e92525bba9794a6ce56e6ac84cff49e009c5f8b2ac"

func newTestAuth(t *testing.T) (*AuthService, *config.Store) {
	t.Helper()
	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminToken), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}
	auth := NewAuthService(store, "test-secret-key-for-jwt", hash)
	return auth, store
}

func TestJWTRoundTrip(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	token, err := auth.IssueJWT(ctx, "alice", 1*time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	principal, err := auth.ValidateJWT(ctx, token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if principal.Subject != "alice" {
		t.Errorf("Subject: got %q, want %q", principal.Subject, "alice")
	}
}

func TestJWTExpired(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	token, err := auth.IssueJWT(ctx, "alice", -1*time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}

	_, err = auth.ValidateJWT(ctx, token)
	if err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestJWTInvalidToken(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := auth.ValidateJWT(ctx, "garbage.token.here")
	if err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestJWTWrongSecret(t *testing.T) {
	auth, store := newTestAuth(t)
	ctx := context.Background()

	other := NewAuthService(store, "a-different-secret", nil)
	token, err := other.IssueJWT(ctx, "mallory", time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}
	if _, err := auth.ValidateJWT(ctx, token); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestIssueJWTRequiresPrincipal(t *testing.T) {
	auth, _ := newTestAuth(t)
	if _, err := auth.IssueJWT(context.Background(), "", time.Hour); err == nil {
		t.Fatal("expected error for empty principal")
	}
}

func TestAuthorizeAdmin(t *testing.T) {
	auth, store := newTestAuth(t)
	ctx := context.Background()

	ok, err := auth.AuthorizeAdmin(ctx, "alice", "wrong-token")
	if err != nil {
		t.Fatalf("AuthorizeAdmin wrong token: %v", err)
	}
	if ok {
		t.Fatal("expected wrong token to be refused")
	}
	if isAdmin, _ := auth.IsAdmin(ctx, "alice"); isAdmin {
		t.Fatal("expected no binding after refused token")
	}

	// Surrounding whitespace is ignored.
	ok, err = auth.AuthorizeAdmin(ctx, "alice", "  "+testAdminToken+"\n")
	if err != nil {
		t.Fatalf("AuthorizeAdmin: %v", err)
	}
	if !ok {
		t.Fatal("expected correct token to authorize")
	}

	isAdmin, err := store.IsAdmin(ctx, "alice")
	if err != nil {
		t.Fatalf("IsAdmin: %v", err)
	}
	if !isAdmin {
		t.Fatal("expected alice to be bound as admin")
	}

	// A second authorization is idempotent.
	ok, err = auth.AuthorizeAdmin(ctx, "alice", testAdminToken)
	if err != nil || !ok {
		t.Fatalf("second AuthorizeAdmin: ok=%v err=%v", ok, err)
	}
	bindings, err := store.ListAdminBindings(ctx)
	if err != nil {
		t.Fatalf("ListAdminBindings: %v", err)
	}
	if len(bindings) != 1 {
		t.Errorf("got %d bindings, want 1", len(bindings))
	}
}

func TestAuthorizeAdminAnonymous(t *testing.T) {
	auth, _ := newTestAuth(t)
	_, err := auth.AuthorizeAdmin(context.Background(), "", testAdminToken)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthorizeAdminDisabled(t *testing.T) {
	_, store := newTestAuth(t)
	auth := NewAuthService(store, "secret", nil)
	_, err := auth.AuthorizeAdmin(context.Background(), "alice", testAdminToken)
	if !errors.Is(err, ErrAdminDisabled) {
		t.Fatalf("expected ErrAdminDisabled, got %v", err)
	}
}

func TestAuthorizeAdminEmptyToken(t *testing.T) {
	auth, _ := newTestAuth(t)
	ok, err := auth.AuthorizeAdmin(context.Background(), "alice", "   ")
	if err != nil {
		t.Fatalf("AuthorizeAdmin: %v", err)
	}
	if ok {
		t.Fatal("expected blank token to be refused")
	}
}

func TestRequireAdmin(t *testing.T) {
	auth, store := newTestAuth(t)
	ctx := context.Background()

	if err := auth.RequireAdmin(ctx, ""); !errors.Is(err, ErrNotAdmin) {
		t.Errorf("anonymous: expected ErrNotAdmin, got %v", err)
	}
	if err := auth.RequireAdmin(ctx, "bob"); !errors.Is(err, ErrNotAdmin) {
		t.Errorf("unbound: expected ErrNotAdmin, got %v", err)
	}
	if _, err := store.BindAdmin(ctx, "bob"); err != nil {
		t.Fatalf("BindAdmin: %v", err)
	}
	if err := auth.RequireAdmin(ctx, "bob"); err != nil {
		t.Errorf("bound: expected nil, got %v", err)
	}
}

func TestHashAdminToken(t *testing.T) {
	hash, err := HashAdminToken(" secret-token ")
	if err != nil {
		t.Fatalf("HashAdminToken: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte("secret-token")); err != nil {
		t.Errorf("hash does not match trimmed token: %v", err)
	}
	if _, err := HashAdminToken("  "); err == nil {
		t.Error("expected error for blank token")
	}
}
