package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin access",
		Long:  "Present an admin token to the backend, and list or revoke the principals bound to the admin role.",
	}

	cmd.AddCommand(newAdminAuthorizeCmd())
	cmd.AddCommand(newAdminBindingsCmd())
	cmd.AddCommand(newAdminRevokeCmd())

	return cmd
}

// ---------- admin authorize ----------

func newAdminAuthorizeCmd() *cobra.Command {
	var (
		flags   clientFlags
		token   string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "authorize",
		Short: "Bind the current identity to the admin role",
		Example: `  folio admin authorize --identity $JWT --token 8a44...
  folio admin authorize --login alice   # prompts for the token`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				if !term.IsTerminal(int(os.Stdin.Fd())) {
					return fmt.Errorf("--token is required when stdin is not a terminal")
				}
				fmt.Fprint(cmd.ErrOrStderr(), "Admin token: ")
				raw, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(cmd.ErrOrStderr())
				if err != nil {
					return fmt.Errorf("failed to read token: %w", err)
				}
				token = string(raw)
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return fmt.Errorf("admin token must not be empty")
			}
			return runAdminAuthorize(cmd, flags, token, timeout)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&token, "token", "", "Admin token (prompted if omitted)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall timeout")

	return cmd
}

func runAdminAuthorize(cmd *cobra.Command, flags clientFlags, token string, timeout time.Duration) error {
	ctx, cancel := cmdContext(timeout)
	defer cancel()

	rt, err := newClientRuntime(ctx, flags)
	if err != nil {
		return err
	}
	defer rt.close()
	if flags.login != "" {
		if err := rt.login(ctx); err != nil {
			return err
		}
	}
	if rt.ids.Identity() == nil {
		return fmt.Errorf("an identity is required: pass --identity or --login")
	}

	a, err := rt.ctrl.Actor(ctx)
	if err != nil {
		return err
	}
	ok, err := a.AuthorizeAdmin(ctx, token)
	if err != nil {
		return fmt.Errorf("authorize admin: %w", err)
	}
	principal := rt.ids.Identity().Principal()
	if !ok {
		errColor.Fprintf(cmd.OutOrStdout(), "Token rejected for %s\n", principal)
		return fmt.Errorf("admin token not accepted")
	}
	okColor.Fprintf(cmd.OutOrStdout(), "%s is bound to the admin role\n", principal)
	return nil
}

// ---------- admin bindings ----------

func newAdminBindingsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "bindings",
		Aliases: []string{"ls"},
		Short:   "List principals bound to the admin role",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminBindings(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAdminBindings(cmd *cobra.Command, jsonOutput bool) error {
	store, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	bindings, err := store.ListAdminBindings(context.Background())
	if err != nil {
		return fmt.Errorf("list admin bindings: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(bindings)
	}

	if len(bindings) == 0 {
		fmt.Fprintln(out, "No admin bindings. Run 'folio token generate' to bootstrap one.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRINCIPAL\tBOUND AT")
	for _, b := range bindings {
		fmt.Fprintf(w, "%s\t%s\n", b.Principal, b.BoundAt.Local().Format(time.RFC3339))
	}
	return w.Flush()
}

// ---------- admin revoke ----------

func newAdminRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <principal>",
		Short: "Remove a principal's admin binding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			if err := store.RevokeAdmin(context.Background(), args[0]); err != nil {
				return fmt.Errorf("revoke %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revoked admin binding for %s\n", args[0])
			return nil
		},
	}
	return cmd
}
