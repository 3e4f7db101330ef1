package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/foliodev/folio/internal/config"
)

var (
	cfgFile    string
	appVersion string
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	appVersion = version
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folio",
		Short: "Portfolio backend and admin provisioning toolkit",
		Long: `Folio runs the portfolio backend (contact messages and admin bindings) and
the client side of its admin provisioning flow.

An admin token delivered in a URL fragment is stored in the session, presented
to the backend when the actor is built, and cleared once the backend confirms
the admin role. The messages command walks that whole flow from a terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./folio.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for the SQLite store (default: ~/.folio)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newIdentityCmd())
	cmd.AddCommand(newMessagesCmd())
	cmd.AddCommand(newContactCmd())
	cmd.AddCommand(newAdminCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("folio")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.folio")
	}

	setDefaults(config.DefaultYAMLConfig())

	viper.SetEnvPrefix("FOLIO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.ReadInConfig() // Ignore error - config file is optional
}

func setDefaults(d *config.YAMLConfig) {
	viper.SetDefault("server.host", d.Server.Host)
	viper.SetDefault("server.port", d.Server.Port)
	viper.SetDefault("server.rate_limit", d.Server.RateLimit)
	viper.SetDefault("server.cors.origins", d.Server.CORS.Origins)
	viper.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	viper.SetDefault("auth.jwt_expiry", d.Auth.JWTExpiry)
	viper.SetDefault("auth.admin_token_hash", d.Auth.AdminTokenHash)
	viper.SetDefault("auth.admin_token", d.Auth.AdminToken)
	viper.SetDefault("auth.allow_dev_login", d.Auth.AllowDevLogin)
	viper.SetDefault("store.driver", d.Store.Driver)
	viper.SetDefault("store.dsn", d.Store.DSN)
	viper.SetDefault("client.backend_url", d.Client.BackendURL)
	viper.SetDefault("client.admin_token", d.Client.AdminToken)
	viper.SetDefault("client.session.backend", d.Client.Session.Backend)
	viper.SetDefault("client.session.redis_addr", d.Client.Session.RedisAddr)
	viper.SetDefault("client.session.ttl", d.Client.Session.TTL)
	viper.SetDefault("client.session.id", d.Client.Session.ID)
	viper.SetDefault("mcp.transport", d.MCP.Transport)
	viper.SetDefault("logging.level", d.Logging.Level)
	viper.SetDefault("logging.format", d.Logging.Format)
}
