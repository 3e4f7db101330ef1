// Package provision owns the client's backend actor. It builds one actor per
// identity and token generation, presents the stored admin token to the
// backend at build time, and rebuilds whenever the identity changes or the
// token store announces a new token.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/foliodev/folio/internal/actor"
	"github.com/foliodev/folio/internal/querycache"
	"github.com/foliodev/folio/internal/secretparam"
	"github.com/foliodev/folio/internal/session"
)

// ActorKey is the query cache key of the actor. Every query that depends on
// the actor is registered as a dependent of this key.
const ActorKey = "actor-with-admin"

// ErrClosed is returned by Actor after Close.
var ErrClosed = errors.New("provision: controller closed")

var errSuperseded = errors.New("provision: build superseded")

// State is the controller's provisioning state.
type State int

const (
	StateIdle State = iota
	StateBuilding
	StateReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilding:
		return "building"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTokenKey sets the session key the admin token is read from. The
// default is the URL fragment parameter name.
func WithTokenKey(key string) Option {
	return func(c *Controller) {
		if key != "" {
			c.tokenKey = key
		}
	}
}

type build struct {
	gen       uint64
	principal string
	done      chan struct{}
	actor     actor.Actor
	err       error
}

type cached struct {
	gen   uint64
	actor actor.Actor
}

// Controller provisions actors. It is safe for concurrent use.
type Controller struct {
	factory  actor.Factory
	tokens   *session.Store
	queries  *querycache.Cache
	logger   *slog.Logger
	tokenKey string

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup

	mu       sync.Mutex
	identity actor.Identity
	gen      uint64
	state    State
	current  actor.Actor
	pending  map[string]*build
	actors   map[string]cached
	closed   bool
}

// New returns a Controller that reads the admin token from tokens and
// invalidates the dependents of ActorKey in queries whenever a new actor is
// installed. The first actor is built lazily by Actor.
func New(factory actor.Factory, tokens *session.Store, queries *querycache.Cache, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		factory:  factory,
		tokens:   tokens,
		queries:  queries,
		logger:   slog.Default(),
		tokenKey: secretparam.AdminTokenParam,
		ctx:      ctx,
		cancel:   cancel,
		pending:  make(map[string]*build),
		actors:   make(map[string]cached),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.unsubscribe = tokens.OnChange(func(ch session.Change) {
		if ch.Name == c.tokenKey && ch.Op == session.OpNotify {
			c.logger.Debug("admin token changed, reprovisioning")
			c.Invalidate()
		}
	})
	return c
}

// TokenKey returns the session key the admin token is read from.
func (c *Controller) TokenKey() string {
	return c.tokenKey
}

// State returns the current provisioning state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Generation returns the number of invalidations so far.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Identity returns the identity actors are currently built for.
func (c *Controller) Identity() actor.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// SetIdentity switches the controller to id. A nil id means anonymous.
// Switching to a principal whose actor was already built in this generation
// reuses it. Otherwise a build starts in the background.
func (c *Controller) SetIdentity(id actor.Identity) {
	c.mu.Lock()
	if c.closed || actor.PrincipalOf(id) == actor.PrincipalOf(c.identity) {
		c.identity = id
		c.mu.Unlock()
		return
	}
	c.identity = id
	principal := actor.PrincipalOf(id)
	if hit, ok := c.actors[principal]; ok && hit.gen == c.gen {
		c.current = hit.actor
		c.state = StateReady
		c.mu.Unlock()
		c.logger.Debug("reusing cached actor", "principal", principal)
		c.actorChanged()
		return
	}
	c.current = nil
	c.state = StateIdle
	c.startLocked()
	c.mu.Unlock()
}

// Invalidate drops every cached actor and starts a rebuild for the current
// identity in the background. Builds already in flight are discarded when
// they finish.
func (c *Controller) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.gen++
	c.current = nil
	c.state = StateIdle
	clear(c.actors)
	c.startLocked()
}

// Current returns the ready actor without blocking.
func (c *Controller) Current() (actor.Actor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return nil, false
	}
	return c.current, true
}

// Actor returns the ready actor, waiting for the build of the current
// generation and identity when there is none. Builds that are superseded
// while waiting are followed to their replacement.
func (c *Controller) Actor(ctx context.Context) (actor.Actor, error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClosed
		}
		if c.state == StateReady {
			a := c.current
			c.mu.Unlock()
			return a, nil
		}
		b := c.startLocked()
		c.mu.Unlock()

		select {
		case <-b.done:
			if errors.Is(b.err, errSuperseded) {
				continue
			}
			if b.err != nil {
				return nil, b.err
			}
			return b.actor, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Reprovision invalidates and waits for the replacement actor.
func (c *Controller) Reprovision(ctx context.Context) (actor.Actor, error) {
	c.Invalidate()
	return c.Actor(ctx)
}

// Close stops listening for token changes, cancels in-flight builds and
// waits for them to return.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.unsubscribe()
	c.cancel()
	c.wg.Wait()
}

func buildKey(gen uint64, principal string) string {
	return fmt.Sprintf("%d/%s", gen, principal)
}

// startLocked returns the build for the current generation and identity,
// starting it if needed. c.mu must be held.
func (c *Controller) startLocked() *build {
	principal := actor.PrincipalOf(c.identity)
	key := buildKey(c.gen, principal)
	if b, ok := c.pending[key]; ok {
		return b
	}
	b := &build{gen: c.gen, principal: principal, done: make(chan struct{})}
	if c.closed {
		b.err = ErrClosed
		close(b.done)
		return b
	}
	c.pending[key] = b
	c.state = StateBuilding
	c.wg.Add(1)
	go c.run(b, c.identity)
	return b
}

func (c *Controller) run(b *build, id actor.Identity) {
	defer c.wg.Done()

	a, err := c.build(c.ctx, id)

	c.mu.Lock()
	delete(c.pending, buildKey(b.gen, b.principal))
	installed := false
	switch {
	case b.gen != c.gen:
		c.logger.Debug("discarding superseded actor", "principal", b.principal, "generation", b.gen)
		a, err = nil, errSuperseded
	case err != nil:
		if b.principal == actor.PrincipalOf(c.identity) {
			c.state = StateIdle
		} else {
			a, err = nil, errSuperseded
		}
	default:
		c.actors[b.principal] = cached{gen: b.gen, actor: a}
		if b.principal == actor.PrincipalOf(c.identity) {
			c.current = a
			c.state = StateReady
			installed = true
		} else {
			a, err = nil, errSuperseded
		}
	}
	b.actor, b.err = a, err
	c.mu.Unlock()

	if installed {
		c.actorChanged()
	}
	close(b.done)
}

func (c *Controller) actorChanged() {
	if c.queries == nil {
		return
	}
	if keys := c.queries.InvalidateDependents(ActorKey); len(keys) > 0 {
		c.logger.Debug("invalidated actor dependents", "queries", keys)
	}
}

// build constructs an actor for id and, for an authenticated identity,
// presents the stored admin token once. Authorization failures are logged
// and the actor is returned regardless.
func (c *Controller) build(ctx context.Context, id actor.Identity) (actor.Actor, error) {
	if id == nil {
		a, err := c.factory.Anonymous(ctx)
		if err != nil {
			return nil, fmt.Errorf("build anonymous actor: %w", err)
		}
		return a, nil
	}

	principal := id.Principal()
	a, err := c.factory.Authenticated(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("build actor for %s: %w", principal, err)
	}

	token, _ := c.tokens.Retrieve(c.tokenKey)
	token = strings.TrimSpace(token)
	if token == "" {
		return a, nil
	}

	ok, err := a.AuthorizeAdmin(ctx, token)
	switch {
	case err != nil:
		c.logger.Warn("admin authorization failed", "principal", principal, "error", err)
	case ok:
		c.logger.Info("admin authorization succeeded, principal bound to admin role", "principal", principal)
	default:
		c.logger.Debug("admin token not accepted", "principal", principal)
	}
	return a, nil
}
