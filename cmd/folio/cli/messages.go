package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/foliodev/folio/internal/gate"
	"github.com/foliodev/folio/internal/secretparam"
)

func newMessagesCmd() *cobra.Command {
	var (
		flags       clientFlags
		pageURL     string
		remediate   bool
		enableAdmin bool
		jsonOutput  bool
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Open the Messages admin view",
		Long: `Open the Messages admin view from a terminal.

When --url carries a #caffeineAdminToken fragment, the token is moved into the
session store and stripped from the URL. The actor is then provisioned, the
admin status checked, and either the message list or the offered actions are
printed. --remediate and --enable-admin run those actions.`,
		Example: `  folio messages --identity $JWT --url 'http://localhost:8080/messages#caffeineAdminToken=...'
  folio messages --login alice --enable-admin
  folio messages --identity $JWT --remediate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if remediate && enableAdmin {
				return fmt.Errorf("--remediate and --enable-admin are mutually exclusive")
			}
			return runMessages(cmd, flags, pageURL, remediate, enableAdmin, jsonOutput, timeout)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&pageURL, "url", "", "Page URL, possibly carrying the admin token fragment")
	cmd.Flags().BoolVar(&remediate, "remediate", false, "Clear stale admin provisioning and retry")
	cmd.Flags().BoolVar(&enableAdmin, "enable-admin", false, "Provision admin access with client.admin_token")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall timeout")

	return cmd
}

func runMessages(cmd *cobra.Command, flags clientFlags, pageURL string, remediate, enableAdmin, jsonOutput bool, timeout time.Duration) error {
	ctx, cancel := cmdContext(timeout)
	defer cancel()

	rt, err := newClientRuntime(ctx, flags)
	if err != nil {
		return err
	}
	defer rt.close()

	out := cmd.OutOrStdout()

	page := gate.NewPage(gate.Config{
		Identity:        rt.ids,
		Tokens:          rt.tokens,
		Controller:      rt.ctrl,
		Queries:         rt.queries,
		ConfiguredToken: viper.GetString("client.admin_token"),
		Logger:          rt.logger,
	})

	if pageURL != "" {
		u, err := url.Parse(pageURL)
		if err != nil {
			return fmt.Errorf("parse --url: %w", err)
		}
		ex := secretparam.NewExtractor(rt.ctrl.TokenKey())
		history := secretparam.HistoryFunc(func(cleaned *url.URL) {
			dimColor.Fprintf(cmd.ErrOrStderr(), "address bar: %s\n", cleaned.String())
		})
		if tok, ok := ex.Init(u, history); ok {
			page.AcceptToken(ctx, tok)
		}
	}

	var view gate.View
	if flags.login != "" {
		view, err = page.Login(ctx)
	} else {
		view, err = page.Load(ctx)
	}
	if err != nil {
		return err
	}

	switch {
	case remediate:
		view, err = page.Remediate(ctx)
	case enableAdmin:
		view, err = page.EnableAdminAccess(ctx)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeViewJSON(out, view)
	}
	renderView(out, view)
	return nil
}

type viewJSON struct {
	State       string      `json:"state"`
	Messages    string      `json:"messages,omitempty"`
	Items       interface{} `json:"items,omitempty"`
	Error       string      `json:"error,omitempty"`
	Actions     []string    `json:"actions"`
	IsAdmin     string      `json:"is_admin"`
	TokenStored bool        `json:"token_stored"`
}

func writeViewJSON(w io.Writer, v gate.View) error {
	out := viewJSON{
		State:       v.State.String(),
		IsAdmin:     v.Inputs.IsAdmin.String(),
		TokenStored: v.Inputs.HasStoredToken,
		Actions:     []string{},
	}
	if v.State == gate.Authorized {
		out.Messages = v.Messages.String()
		out.Items = v.Items
	}
	if v.MessagesErr != nil {
		out.Error = v.MessagesErr.Error()
	}
	for _, a := range v.Actions {
		out.Actions = append(out.Actions, string(a))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func renderView(w io.Writer, v gate.View) {
	fmt.Fprintln(w, "Messages")
	dimColor.Fprintln(w, "View all contact form submissions")
	fmt.Fprintln(w)

	switch v.State {
	case gate.Authorized:
		renderMessages(w, v)
	case gate.StaleProvisioning:
		errColor.Fprintln(w, "Admin Access Issue")
		fmt.Fprintln(w, "You are logged in and have an admin token configured, but the backend is not recognizing you as an admin.")
		fmt.Fprintln(w, "Run with --remediate to clear stale provisioning artifacts and retry.")
	case gate.Unauthorized:
		errColor.Fprintln(w, "Unauthorized Access")
		fmt.Fprintln(w, "Viewing messages requires admin access. You are logged in, but your account does not have admin privileges.")
		if v.Offers(gate.ActionEnableAdminAccess) {
			fmt.Fprintln(w, "Run with --enable-admin to configure the admin token and gain access.")
		}
	case gate.LoginRequired:
		errColor.Fprintln(w, "Authentication Required")
		fmt.Fprintln(w, "Pass --identity (or set FOLIO_IDENTITY) or --login to access this page.")
	default:
		dimColor.Fprintln(w, "Checking admin status...")
	}
}

func renderMessages(w io.Writer, v gate.View) {
	switch v.Messages {
	case gate.MessagesLoading:
		dimColor.Fprintln(w, "Loading messages...")
	case gate.MessagesError:
		errColor.Fprintln(w, "Error Loading Messages")
		fmt.Fprintln(w, "Failed to load messages. Please try again later.")
	case gate.MessagesEmpty:
		fmt.Fprintln(w, "No messages yet")
		dimColor.Fprintln(w, "When someone submits the contact form, their messages will appear here.")
	default:
		for _, m := range v.Items {
			keyColor.Fprintf(w, "%s", m.Name)
			fmt.Fprintf(w, " <%s>  ", m.Email)
			dimColor.Fprintln(w, m.Time().Local().Format("January 2, 2006 03:04 PM"))
			fmt.Fprintf(w, "  %s\n\n", m.Message)
		}
	}
}
