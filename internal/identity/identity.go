// Package identity holds the client side of the identity provider: parsed
// identity tokens and the providers that obtain them.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/foliodev/folio/internal/actor"
	"github.com/foliodev/folio/internal/model"
)

// ErrNoIdentity is returned by Login when the provider cannot produce one.
var ErrNoIdentity = errors.New("no identity available")

// Token is an identity token whose principal has been read from its claims.
// The signature is verified by the backend, not here.
type Token struct {
	principal string
	raw       string
	expires   time.Time
}

// Principal implements actor.Identity.
func (t *Token) Principal() string { return t.principal }

// Token implements actor.Identity.
func (t *Token) Token() string { return t.raw }

// Expires returns the token's expiry, or the zero time when it has none.
func (t *Token) Expires() time.Time { return t.expires }

// Parse reads the subject and expiry of a JWT identity token without
// verifying its signature.
func Parse(raw string) (*Token, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrNoIdentity
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil, fmt.Errorf("parse identity token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("identity token has no subject")
	}
	t := &Token{principal: claims.Subject, raw: raw}
	if claims.ExpiresAt != nil {
		t.expires = claims.ExpiresAt.Time
	}
	return t, nil
}

// Provider supplies the current identity and runs the login flow.
type Provider interface {
	// Identity returns the current identity, or nil when logged out.
	Identity() actor.Identity
	// Login establishes an identity.
	Login(ctx context.Context) (actor.Identity, error)
}

// Static is a Provider around an identity obtained elsewhere. Login succeeds
// only when a token was supplied.
type Static struct {
	mu sync.Mutex
	id actor.Identity
	// pending is the token Login will adopt when no identity is active.
	pending actor.Identity
}

// NewStatic returns a Static provider. When loggedIn is false, id is held
// back until Login is called.
func NewStatic(id actor.Identity, loggedIn bool) *Static {
	s := &Static{pending: id}
	if loggedIn {
		s.id = id
	}
	return s
}

func (s *Static) Identity() actor.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *Static) Login(ctx context.Context) (actor.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id != nil {
		return s.id, nil
	}
	if s.pending == nil {
		return nil, ErrNoIdentity
	}
	s.id = s.pending
	return s.id, nil
}

// Logout drops the current identity.
func (s *Static) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = nil
}

// DevLogin is a Provider that obtains identity tokens from the backend's
// development login endpoint.
type DevLogin struct {
	BaseURL   string
	Principal string
	Client    *http.Client

	mu sync.Mutex
	id actor.Identity
}

func (d *DevLogin) Identity() actor.Identity {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.id
}

func (d *DevLogin) Login(ctx context.Context) (actor.Identity, error) {
	if d.Principal == "" {
		return nil, ErrNoIdentity
	}
	body, err := json.Marshal(model.IdentitySessionRequest{Principal: d.Principal})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(d.BaseURL, "/")+"/api/v1/identity/session", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: dev login: %v", actor.ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dev login: backend returned %s", resp.Status)
	}

	var out model.IdentitySessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("dev login: decode response: %w", err)
	}
	tok, err := Parse(out.Token)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.id = tok
	d.mu.Unlock()
	return tok, nil
}
