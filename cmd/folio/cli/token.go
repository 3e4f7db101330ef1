package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foliodev/folio/internal/tokengen"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Generate admin bootstrap tokens",
	}
	cmd.AddCommand(newTokenGenerateCmd())
	return cmd
}

// ---------- token generate ----------

func newTokenGenerateCmd() *cobra.Command {
	var (
		baseURL    string
		withHash   bool
		quiet      bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a random admin token and its bootstrap URL",
		Long: `Generate a random 32-byte hex admin token. Nothing is stored: configure the
backend with the token (auth.admin_token) or its hash (auth.admin_token_hash),
then deliver the token to the admin view through the bootstrap URL fragment.`,
		Example: `  folio token generate
  folio token generate --base-url https://folio.dev --hash
  folio token generate --quiet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenGenerate(cmd, baseURL, withHash, quiet, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "https://your-app.com", "Public URL of the portfolio site")
	cmd.Flags().BoolVar(&withHash, "hash", false, "Also print the bcrypt hash for auth.admin_token_hash")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print only the token")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runTokenGenerate(cmd *cobra.Command, baseURL string, withHash, quiet, jsonOutput bool) error {
	res, err := tokengen.New(baseURL, withHash)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if quiet {
		fmt.Fprintln(out, res.Token)
		return nil
	}
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintln(out)
	okColor.Fprintln(out, "Admin token generated")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Token: %s\n", keyColor.Sprint(res.Token))
	if res.Hash != "" {
		fmt.Fprintf(out, "  Hash:  %s\n", res.Hash)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "To provision admin access:")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  Option 1 - Enable Admin Access:")
	fmt.Fprintln(out, "    1. Set client.admin_token to the token")
	fmt.Fprintln(out, "    2. Log in and open the Messages page")
	fmt.Fprintln(out, "    3. Choose \"Enable Admin Access\"")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  Option 2 - Bootstrap URL:")
	fmt.Fprintln(out, "    1. Log in")
	fmt.Fprintf(out, "    2. Open %s\n", res.BootstrapURL)
	fmt.Fprintln(out, "    3. The token is moved into your session and removed from the address bar")
	fmt.Fprintln(out)
	dimColor.Fprintln(out, "  The token travels in the URL fragment, which browsers never send to servers.")
	return nil
}
