package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foliodev/folio/internal/actor"
	"github.com/foliodev/folio/internal/identity"
	"github.com/foliodev/folio/internal/model"
	"github.com/foliodev/folio/internal/provision"
	"github.com/foliodev/folio/internal/querycache"
	"github.com/foliodev/folio/internal/session"
)

// Query cache keys of the view's queries. Both depend on provision.ActorKey.
const (
	AdminStatusKey = "adminStatus"
	MessagesKey    = "messages"
)

// DefaultStatusStaleTime is how long a fetched admin status is reused.
const DefaultStatusStaleTime = 30 * time.Second

var (
	// ErrBusy is returned when a provisioning action is already running.
	ErrBusy = errors.New("gate: provisioning already in progress")
	// ErrNoConfiguredToken is returned by EnableAdminAccess when no fallback
	// token is configured.
	ErrNoConfiguredToken = errors.New("gate: no admin token configured")
)

// MessagesState is the sub-state of an Authorized view.
type MessagesState int

const (
	MessagesLoading MessagesState = iota
	MessagesError
	MessagesEmpty
	MessagesPopulated
)

func (s MessagesState) String() string {
	switch s {
	case MessagesLoading:
		return "loading"
	case MessagesError:
		return "error"
	case MessagesEmpty:
		return "empty"
	case MessagesPopulated:
		return "populated"
	default:
		return fmt.Sprintf("MessagesState(%d)", int(s))
	}
}

// Action is a control the view offers.
type Action string

const (
	ActionLogin             Action = "login"
	ActionRemediate         Action = "remediate"
	ActionEnableAdminAccess Action = "enable_admin_access"
	ActionRetry             Action = "retry"
)

// View is a rendered snapshot of the Messages page.
type View struct {
	State       State
	Inputs      Inputs
	Messages    MessagesState
	Items       []model.ContactMessage
	MessagesErr error
	Actions     []Action
	Busy        bool
}

// Offers reports whether a is among the view's actions.
func (v View) Offers(a Action) bool {
	for _, x := range v.Actions {
		if x == a {
			return true
		}
	}
	return false
}

// Config wires a Page.
type Config struct {
	Identity        identity.Provider
	Tokens          *session.Store
	Controller      *provision.Controller
	Queries         *querycache.Cache
	ConfiguredToken string
	StatusStaleTime time.Duration
	Logger          *slog.Logger
}

// Page is the Messages admin view. Its methods are safe for concurrent use,
// but provisioning actions do not overlap.
type Page struct {
	ids        identity.Provider
	tokens     *session.Store
	ctrl       *provision.Controller
	configured string
	logger     *slog.Logger

	status   *querycache.Query[bool]
	messages *querycache.Query[[]model.ContactMessage]

	busy    atomic.Bool
	clearMu sync.Mutex

	mu        sync.Mutex
	statusFor string
}

// NewPage registers the view's queries with cfg.Queries as dependents of
// the actor.
func NewPage(cfg Config) *Page {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	stale := cfg.StatusStaleTime
	if stale <= 0 {
		stale = DefaultStatusStaleTime
	}
	p := &Page{
		ids:        cfg.Identity,
		tokens:     cfg.Tokens,
		ctrl:       cfg.Controller,
		configured: cfg.ConfiguredToken,
		logger:     logger,
	}
	p.status = querycache.NewQuery(cfg.Queries, AdminStatusKey, p.fetchAdminStatus,
		querycache.WithStaleTime(stale))
	p.messages = querycache.NewQuery(cfg.Queries, MessagesKey, p.fetchMessages,
		querycache.WithEnabled(p.isAdmin))
	if cfg.Queries != nil {
		cfg.Queries.DependOn(provision.ActorKey, AdminStatusKey, MessagesKey)
	}
	return p
}

// fetchAdminStatus fails closed: any error other than cancellation reads as
// "not admin".
func (p *Page) fetchAdminStatus(ctx context.Context) (bool, error) {
	principal := actor.PrincipalOf(p.ctrl.Identity())
	ok, err := p.checkAdminStatus(ctx)
	if err != nil {
		return false, err
	}
	p.mu.Lock()
	p.statusFor = principal
	p.mu.Unlock()
	return ok, nil
}

func (p *Page) checkAdminStatus(ctx context.Context) (bool, error) {
	a, err := p.ctrl.Actor(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		p.logger.Warn("failed to check admin status", "error", err)
		return false, nil
	}
	ok, err := a.CheckAdminStatus(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		p.logger.Warn("failed to check admin status", "error", err)
		return false, nil
	}
	return ok, nil
}

func (p *Page) fetchMessages(ctx context.Context) ([]model.ContactMessage, error) {
	a, err := p.ctrl.Actor(ctx)
	if err != nil {
		return nil, fmt.Errorf("actor not available: %w", err)
	}
	return a.GetAllMessages(ctx)
}

func (p *Page) isAdmin() bool {
	return p.adminTri() == True
}

// adminTri is Unknown until the status has been fetched for the principal
// the identity provider currently reports.
func (p *Page) adminTri() Tri {
	s := p.status.Snapshot()
	if !s.Fetched || s.Status == querycache.StatusError {
		return Unknown
	}
	p.mu.Lock()
	fetchedFor := p.statusFor
	p.mu.Unlock()
	if fetchedFor != actor.PrincipalOf(p.ids.Identity()) {
		return Unknown
	}
	return TriOf(s.Data)
}

func (p *Page) syncIdentity() actor.Identity {
	id := p.ids.Identity()
	p.ctrl.SetIdentity(id)
	return id
}

// Load brings the view up to date: admin status first, then the message
// list when the caller is an admin.
func (p *Page) Load(ctx context.Context) (View, error) {
	id := p.syncIdentity()
	p.mu.Lock()
	sameCaller := p.statusFor == actor.PrincipalOf(id)
	p.mu.Unlock()
	var err error
	if sameCaller {
		_, err = p.status.Get(ctx)
	} else {
		_, err = p.status.Refetch(ctx)
	}
	if err != nil {
		return p.View(), err
	}
	if err := p.loadMessages(ctx, false); err != nil {
		return p.View(), err
	}
	return p.View(), nil
}

// loadMessages fetches the message list if enabled. Fetch failures are
// left in the query state for View; only cancellation is returned.
func (p *Page) loadMessages(ctx context.Context, force bool) error {
	var err error
	if force {
		_, err = p.messages.Refetch(ctx)
	} else {
		_, err = p.messages.Get(ctx)
	}
	switch {
	case err == nil, errors.Is(err, querycache.ErrDisabled):
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		p.logger.Warn("failed to load messages", "error", err)
		return nil
	}
}

// View resolves the current render state. When the caller is confirmed as
// an admin while a bootstrap token is still stored, the token is cleared.
func (p *Page) View() View {
	in := Inputs{
		IsAuthenticated:    p.ids.Identity() != nil,
		IsAdmin:            p.adminTri(),
		AdminStatusFetched: p.status.Snapshot().Fetched,
		HasStoredToken:     p.tokens.Has(p.ctrl.TokenKey()),
		HasConfiguredToken: p.configured != "",
	}
	if in.IsAdmin == True && in.HasStoredToken {
		p.clearBootstrapToken()
		in.HasStoredToken = p.tokens.Has(p.ctrl.TokenKey())
	}

	v := View{State: Resolve(in), Inputs: in, Busy: p.busy.Load()}
	switch v.State {
	case Authorized:
		p.fillMessages(&v)
	case StaleProvisioning:
		v.Actions = []Action{ActionRemediate}
	case Unauthorized:
		if in.HasConfiguredToken {
			v.Actions = []Action{ActionEnableAdminAccess}
		}
	case LoginRequired:
		v.Actions = []Action{ActionLogin}
	}
	return v
}

func (p *Page) fillMessages(v *View) {
	s := p.messages.Snapshot()
	switch {
	case s.Status == querycache.StatusLoading || !s.Fetched:
		v.Messages = MessagesLoading
	case s.Status == querycache.StatusError:
		v.Messages = MessagesError
		v.MessagesErr = s.Err
		v.Actions = []Action{ActionRetry}
	case len(s.Data) == 0:
		v.Messages = MessagesEmpty
	default:
		v.Messages = MessagesPopulated
		v.Items = s.Data
	}
}

func (p *Page) clearBootstrapToken() {
	p.clearMu.Lock()
	defer p.clearMu.Unlock()
	key := p.ctrl.TokenKey()
	if !p.tokens.Has(key) {
		return
	}
	if err := p.tokens.Clear(context.Background(), key); err != nil {
		p.logger.Warn("failed to clear admin token", "error", err)
		return
	}
	p.logger.Info("admin status confirmed, bootstrap token cleared")
}

// Login runs the identity provider's login flow and loads the view for the
// new identity.
func (p *Page) Login(ctx context.Context) (View, error) {
	if _, err := p.ids.Login(ctx); err != nil {
		return p.View(), fmt.Errorf("login: %w", err)
	}
	p.syncIdentity()
	if _, err := p.ctrl.Actor(ctx); err != nil && ctx.Err() != nil {
		return p.View(), ctx.Err()
	}
	if _, err := p.status.Refetch(ctx); err != nil {
		return p.View(), err
	}
	if err := p.loadMessages(ctx, true); err != nil {
		return p.View(), err
	}
	return p.View(), nil
}

// EnableAdminAccess stores the configured token, announces it, waits for the
// actor to be rebuilt with it and refetches the view's queries.
func (p *Page) EnableAdminAccess(ctx context.Context) (View, error) {
	if p.configured == "" {
		return p.View(), ErrNoConfiguredToken
	}
	if !p.busy.CompareAndSwap(false, true) {
		return p.View(), ErrBusy
	}
	defer p.busy.Store(false)

	p.applyConfiguredToken(ctx)
	return p.refetchAfterProvisioning(ctx)
}

// Remediate clears any stale token, re-applies the configured token when
// there is one, waits for the actor and refetches the view's queries.
func (p *Page) Remediate(ctx context.Context) (View, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return p.View(), ErrBusy
	}
	defer p.busy.Store(false)

	if err := p.tokens.Clear(ctx, p.ctrl.TokenKey()); err != nil {
		p.logger.Warn("failed to clear admin token", "error", err)
	}
	if p.configured != "" {
		p.applyConfiguredToken(ctx)
	}
	p.logger.Info("admin provisioning remediated", "reapplied", p.configured != "")
	return p.refetchAfterProvisioning(ctx)
}

// Retry refetches the message list.
func (p *Page) Retry(ctx context.Context) (View, error) {
	if err := p.loadMessages(ctx, true); err != nil {
		return p.View(), err
	}
	return p.View(), nil
}

// AcceptToken stores a bootstrap admin token, typically one extracted from
// the page URL, and announces it so the next actor build presents it. An
// actor built before the call is replaced. Blank tokens are ignored.
func (p *Page) AcceptToken(ctx context.Context, token string) {
	if strings.TrimSpace(token) == "" {
		return
	}
	p.storeToken(ctx, token)
}

func (p *Page) applyConfiguredToken(ctx context.Context) {
	p.storeToken(ctx, p.configured)
}

// storeToken stores token and announces it. A persist failure still leaves
// the token in memory, so provisioning goes on.
func (p *Page) storeToken(ctx context.Context, token string) {
	key := p.ctrl.TokenKey()
	if err := p.tokens.Store(ctx, key, token); err != nil {
		p.logger.Warn("failed to persist admin token", "error", err)
	}
	p.tokens.Notify(key)
}

func (p *Page) refetchAfterProvisioning(ctx context.Context) (View, error) {
	p.syncIdentity()
	if _, err := p.ctrl.Actor(ctx); err != nil {
		if ctx.Err() != nil {
			return p.View(), ctx.Err()
		}
		p.logger.Warn("actor rebuild failed", "error", err)
	}
	if _, err := p.status.Refetch(ctx); err != nil {
		return p.View(), err
	}
	if err := p.loadMessages(ctx, true); err != nil {
		return p.View(), err
	}
	return p.View(), nil
}
