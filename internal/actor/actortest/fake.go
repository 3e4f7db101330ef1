// Package actortest provides an in-memory backend and actor factory for
// exercising the client core without a server.
package actortest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foliodev/folio/internal/actor"
	"github.com/foliodev/folio/internal/model"
)

// Identity is a fixed actor.Identity.
type Identity struct {
	Name   string
	Bearer string
}

func (i Identity) Principal() string { return i.Name }
func (i Identity) Token() string     { return i.Bearer }

// Backend is an in-memory stand-in for the folio backend. The zero value is
// not usable; call NewBackend.
type Backend struct {
	mu         sync.Mutex
	adminToken string
	admins     map[string]bool
	messages   []model.ContactMessage

	failures       map[Op]error
	authorizeDelay time.Duration
	buildDelay     time.Duration

	authorizeCalls atomic.Int64
	statusCalls    atomic.Int64
	messagesCalls  atomic.Int64
	builds         atomic.Int64
	lastToken      atomic.Value
}

// NewBackend returns a backend that grants admin to callers presenting
// adminToken. An empty adminToken never grants admin.
func NewBackend(adminToken string) *Backend {
	return &Backend{
		adminToken: adminToken,
		admins:     map[string]bool{},
		failures:   map[Op]error{},
	}
}

// Op names a backend operation for failure injection.
type Op string

const (
	OpBuild     Op = "build"
	OpAuthorize Op = "authorize"
	OpStatus    Op = "status"
	OpMessages  Op = "messages"
	OpSubmit    Op = "submit"
)

// Fail makes every subsequent call of op return err. A nil err clears it.
func (b *Backend) Fail(op Op, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, op)
		return
	}
	b.failures[op] = err
}

func (b *Backend) failure(op Op) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures[op]
}

// SetAuthorizeDelay makes AuthorizeAdmin wait d before answering.
func (b *Backend) SetAuthorizeDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.authorizeDelay = d
}

// SetBuildDelay makes authenticated builds wait d before returning. A build
// failure injected with Fail is decided when the build starts.
func (b *Backend) SetBuildDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buildDelay = d
}

// Factory returns an actor.Factory backed by b.
func (b *Backend) Factory() actor.Factory {
	return factory{b: b}
}

// SetAdmin binds or unbinds principal directly.
func (b *Backend) SetAdmin(principal string, admin bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.admins[principal] = admin
}

// IsAdmin reports whether principal is currently bound.
func (b *Backend) IsAdmin(principal string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.admins[principal]
}

// SetAdminToken replaces the token that grants admin.
func (b *Backend) SetAdminToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.adminToken = token
}

// AddMessage appends a stored message.
func (b *Backend) AddMessage(m model.ContactMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, m)
}

// Messages returns a copy of the stored messages.
func (b *Backend) Messages() []model.ContactMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.ContactMessage(nil), b.messages...)
}

// AuthorizeCalls is the number of AuthorizeAdmin calls observed.
func (b *Backend) AuthorizeCalls() int { return int(b.authorizeCalls.Load()) }

// StatusCalls is the number of CheckAdminStatus calls observed.
func (b *Backend) StatusCalls() int { return int(b.statusCalls.Load()) }

// MessagesCalls is the number of GetAllMessages calls observed.
func (b *Backend) MessagesCalls() int { return int(b.messagesCalls.Load()) }

// Builds is the number of actors constructed by the factory.
func (b *Backend) Builds() int { return int(b.builds.Load()) }

// LastAuthorizeToken is the token most recently passed to AuthorizeAdmin.
func (b *Backend) LastAuthorizeToken() string {
	s, _ := b.lastToken.Load().(string)
	return s
}

type factory struct {
	b *Backend
}

func (f factory) Anonymous(ctx context.Context) (actor.Actor, error) {
	if err := f.b.failure(OpBuild); err != nil {
		return nil, err
	}
	f.b.builds.Add(1)
	return &fakeActor{b: f.b}, nil
}

func (f factory) Authenticated(ctx context.Context, id actor.Identity) (actor.Actor, error) {
	failed := f.b.failure(OpBuild)
	f.b.mu.Lock()
	d := f.b.buildDelay
	f.b.mu.Unlock()
	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failed != nil {
		return nil, failed
	}
	f.b.builds.Add(1)
	return &fakeActor{b: f.b, principal: actor.PrincipalOf(id)}, nil
}

type fakeActor struct {
	b         *Backend
	principal string
}

// Principal exposes the bound principal for assertions.
func (a *fakeActor) Principal() string { return a.principal }

func (a *fakeActor) AuthorizeAdmin(ctx context.Context, token string) (bool, error) {
	a.b.authorizeCalls.Add(1)
	a.b.lastToken.Store(token)
	a.b.mu.Lock()
	d := a.b.authorizeDelay
	a.b.mu.Unlock()
	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	if err := a.b.failure(OpAuthorize); err != nil {
		return false, err
	}
	if a.principal == "" {
		return false, fmt.Errorf("%w: anonymous caller", actor.ErrUnauthorized)
	}
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	if a.b.adminToken == "" || token != a.b.adminToken {
		return false, nil
	}
	a.b.admins[a.principal] = true
	return true, nil
}

func (a *fakeActor) CheckAdminStatus(ctx context.Context) (bool, error) {
	a.b.statusCalls.Add(1)
	if err := a.b.failure(OpStatus); err != nil {
		return false, err
	}
	return a.b.IsAdmin(a.principal), nil
}

func (a *fakeActor) GetAllMessages(ctx context.Context) ([]model.ContactMessage, error) {
	a.b.messagesCalls.Add(1)
	if err := a.b.failure(OpMessages); err != nil {
		return nil, err
	}
	if !a.b.IsAdmin(a.principal) {
		return nil, fmt.Errorf("%w: admin role required", actor.ErrUnauthorized)
	}
	return a.b.Messages(), nil
}

func (a *fakeActor) SubmitMessage(ctx context.Context, name, email, message string) error {
	if err := a.b.failure(OpSubmit); err != nil {
		return err
	}
	if name == "" || email == "" || message == "" {
		return errors.New("all fields are required")
	}
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	a.b.messages = append(a.b.messages, model.ContactMessage{
		ID:             fmt.Sprintf("msg-%d", len(a.b.messages)+1),
		Name:           name,
		Email:          email,
		Message:        message,
		TimestampNanos: time.Now().UnixNano(),
	})
	return nil
}
