package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/foliodev/folio/internal/config"
)

// secretKeys are masked by config show.
var secretKeys = map[string]bool{
	"auth.jwt_secret":    true,
	"auth.admin_token":   true,
	"client.admin_token": true,
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage folio configuration",
		Long:  "Initialize a default configuration file or display the current effective configuration.",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

// ---------- config init ----------

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		path  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default folio.yaml configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}
			if err := config.WriteDefaultConfig(path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			fmt.Fprintln(cmd.OutOrStdout(), "Set auth.jwt_secret and an admin token (folio token generate --hash), then run 'folio serve'.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")
	cmd.Flags().StringVar(&path, "path", "folio.yaml", "Where to write the file")

	return cmd
}

// ---------- config show ----------

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if f := viper.ConfigFileUsed(); f != "" {
				fmt.Fprintf(out, "Config file: %s\n", f)
			} else {
				fmt.Fprintln(out, "Config file: (none found, using defaults)")
			}
			fmt.Fprintln(out)

			keys := viper.AllKeys()
			sort.Strings(keys)
			for _, key := range keys {
				fmt.Fprintf(out, "  %s: %s\n", key, displayValue(key, viper.Get(key)))
			}
			return nil
		},
	}

	return cmd
}

func displayValue(key string, v interface{}) string {
	s := fmt.Sprint(v)
	if secretKeys[key] && strings.TrimSpace(s) != "" {
		return "********"
	}
	return s
}
