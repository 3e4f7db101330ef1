package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	fmcp "github.com/foliodev/folio/internal/mcp"
	"github.com/foliodev/folio/internal/server"
	"github.com/foliodev/folio/internal/service"
)

const banner = `
  __       _ _
 / _| ___ | (_) ___
| |_ / _ \| | |/ _ \
|  _| (_) | | | (_) |
|_|  \___/|_|_|\___/
`

func newServeCmd() *cobra.Command {
	var (
		port    int
		host    string
		dev     bool
		mcpAddr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the folio backend server",
		Long: `Start the HTTP server that accepts contact messages, checks admin tokens and
serves the message list to bound admins.

With --mcp-addr the operator MCP server runs alongside it over Streamable HTTP.`,
		Example: `  folio serve
  folio serve --port 9090 --dev
  FOLIO_AUTH_ADMIN_TOKEN=$(folio token generate --quiet) folio serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev, mcpAddr)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (debug logging, dev login)")
	cmd.Flags().StringVar(&mcpAddr, "mcp-addr", "", "Also serve MCP over HTTP on this address (e.g. :3001)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

// adminTokenHash returns the bcrypt hash the backend checks admin tokens
// against. A plain auth.admin_token is hashed at startup.
func adminTokenHash() ([]byte, error) {
	if h := strings.TrimSpace(viper.GetString("auth.admin_token_hash")); h != "" {
		return []byte(h), nil
	}
	if tok := strings.TrimSpace(viper.GetString("auth.admin_token")); tok != "" {
		return service.HashAdminToken(tok)
	}
	return nil, nil
}

func runServe(host string, port int, dev bool, mcpAddr string) error {
	fmt.Print(banner)
	fmt.Println()

	logger, err := newLogger(dev)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()
	logger.Info("store initialized", "driver", store.Driver())

	if viper.GetString("auth.jwt_secret") == "" {
		logger.Warn("auth.jwt_secret not set, using the development secret")
	}
	hash, err := adminTokenHash()
	if err != nil {
		return fmt.Errorf("admin token: %w", err)
	}
	if len(hash) == 0 {
		logger.Warn("no admin token configured - admin authorization is disabled; run: folio token generate --hash")
	}
	authSvc := service.NewAuthService(store, jwtSecret(), hash)

	identityTTL, err := durationSetting("auth.jwt_expiry", 24*time.Hour)
	if err != nil {
		return err
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Host = host
	srvCfg.Port = port
	srvCfg.CORSOrigins = viper.GetStringSlice("server.cors.origins")
	srvCfg.RateLimit = viper.GetInt("server.rate_limit")
	srvCfg.AllowDevLogin = dev || viper.GetBool("auth.allow_dev_login")
	srvCfg.IdentityTTL = identityTTL
	srvCfg.Version = appVersion

	srv := server.New(srvCfg, store, authSvc, logger)

	fmt.Printf("→ Folio %s\n", appVersion)
	fmt.Printf("→ Listening on http://%s:%d\n", host, port)
	fmt.Printf("→ OpenAPI:    http://%s:%d/openapi.json\n", host, port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", host, port)
	if srvCfg.AllowDevLogin {
		warnColor.Println("→ Dev login enabled: POST /api/v1/identity/session issues identities without checks")
	}
	if mcpAddr != "" {
		fmt.Printf("→ MCP:        http://%s/mcp\n", mcpAddr)
	}
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if mcpAddr != "" {
		mcpSrv := fmcp.NewMCPServer(store, appVersion, logger)
		g.Go(func() error {
			return mcpSrv.RunHTTP(gctx, mcpAddr)
		})
	}
	return g.Wait()
}
