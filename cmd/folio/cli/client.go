package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/foliodev/folio/internal/actor"
	"github.com/foliodev/folio/internal/identity"
	"github.com/foliodev/folio/internal/provision"
	"github.com/foliodev/folio/internal/querycache"
	"github.com/foliodev/folio/internal/session"
)

// clientFlags are the flags shared by commands that act as a client of the
// backend.
type clientFlags struct {
	backendURL string
	identity   string
	login      string
	sessionID  string
	debug      bool
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.backendURL, "backend", "", "Backend URL (default: client.backend_url)")
	cmd.Flags().StringVar(&f.identity, "identity", "", "Identity token (default: $FOLIO_IDENTITY)")
	cmd.Flags().StringVar(&f.login, "login", "", "Log in through the backend's dev login as this principal")
	cmd.Flags().StringVar(&f.sessionID, "session", "", "Session id for the redis session backend (default: client.session.id)")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "Debug logging")
}

// clientRuntime is the client core wired for one CLI invocation.
type clientRuntime struct {
	logger  *slog.Logger
	ids     identity.Provider
	tokens  *session.Store
	queries *querycache.Cache
	ctrl    *provision.Controller
	redis   *redis.Client
}

func newClientRuntime(ctx context.Context, f clientFlags) (*clientRuntime, error) {
	logger, err := newLogger(f.debug)
	if err != nil {
		return nil, err
	}
	rt := &clientRuntime{logger: logger, queries: querycache.New()}

	backendURL := f.backendURL
	if backendURL == "" {
		backendURL = viper.GetString("client.backend_url")
	}

	rt.ids, err = identityProvider(f, backendURL)
	if err != nil {
		return nil, err
	}

	rt.tokens, err = rt.sessionStore(ctx, f)
	if err != nil {
		rt.close()
		return nil, err
	}

	rt.ctrl = provision.New(actor.NewHTTPFactory(backendURL), rt.tokens, rt.queries,
		provision.WithLogger(logger))
	rt.ctrl.SetIdentity(rt.ids.Identity())
	return rt, nil
}

func identityProvider(f clientFlags, backendURL string) (identity.Provider, error) {
	if f.login != "" {
		return &identity.DevLogin{BaseURL: backendURL, Principal: f.login}, nil
	}
	raw := f.identity
	if raw == "" {
		raw = os.Getenv("FOLIO_IDENTITY")
	}
	if strings.TrimSpace(raw) == "" {
		return identity.NewStatic(nil, false), nil
	}
	tok, err := identity.Parse(raw)
	if err != nil {
		return nil, err
	}
	return identity.NewStatic(tok, true), nil
}

// sessionStore opens the token store on the configured backend. The memory
// backend lives as long as the process, like a browser tab.
func (rt *clientRuntime) sessionStore(ctx context.Context, f clientFlags) (*session.Store, error) {
	switch backend := viper.GetString("client.session.backend"); backend {
	case "", "memory":
		return session.New(nil, rt.logger), nil
	case "redis":
		ttl, err := durationSetting("client.session.ttl", session.DefaultTTL)
		if err != nil {
			return nil, err
		}
		id := f.sessionID
		if id == "" {
			id = viper.GetString("client.session.id")
		}
		rt.redis = redis.NewClient(&redis.Options{Addr: viper.GetString("client.session.redis_addr")})
		if err := rt.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect session redis: %w", err)
		}
		p := session.NewRedisPersister(rt.redis, id, ttl)
		if id == "" {
			dimColor.Fprintf(os.Stderr, "session: %s (pass --session to resume it)\n", p.ID())
		}
		store := session.New(p, rt.logger)
		if err := store.Load(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported session backend %q; use 'memory' or 'redis'", backend)
	}
}

// login runs the provider's login flow and switches the controller to the
// new identity.
func (rt *clientRuntime) login(ctx context.Context) error {
	id, err := rt.ids.Login(ctx)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	rt.ctrl.SetIdentity(id)
	return nil
}

func (rt *clientRuntime) close() {
	if rt.ctrl != nil {
		rt.ctrl.Close()
	}
	if rt.redis != nil {
		rt.redis.Close()
	}
}
