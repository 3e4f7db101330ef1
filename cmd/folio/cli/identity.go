package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/foliodev/folio/internal/service"
)

func newIdentityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Issue identity tokens",
	}
	cmd.AddCommand(newIdentityIssueCmd())
	return cmd
}

// ---------- identity issue ----------

func newIdentityIssueCmd() *cobra.Command {
	var (
		principal string
		ttl       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign an identity token offline with auth.jwt_secret",
		Example: `  folio identity issue --principal alice
  export FOLIO_IDENTITY=$(folio identity issue --principal alice --ttl 1h)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			principal = strings.TrimSpace(principal)
			if principal == "" {
				return fmt.Errorf("--principal must not be empty")
			}
			// Issuing needs no store.
			authSvc := service.NewAuthService(nil, jwtSecret(), nil)
			tok, err := authSvc.IssueJWT(context.Background(), principal, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&principal, "principal", "", "Principal to issue the identity for (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	cmd.MarkFlagRequired("principal")

	return cmd
}
