package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/foliodev/folio/internal/contact"
	"github.com/foliodev/folio/internal/model"
)

func newContactCmd() *cobra.Command {
	var (
		flags   clientFlags
		req     model.NewMessageRequest
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:     "contact",
		Short:   "Send a contact-form message",
		Example: `  folio contact --name Ada --email ada@example.com --message "Let's talk"`,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			err = contact.NewSubmitter(rt.ctrl, rt.logger).Submit(ctx, req)
			var verr *contact.ValidationError
			switch {
			case err == nil:
				okColor.Fprintln(cmd.OutOrStdout(), contact.SuccessTitle)
				fmt.Fprintln(cmd.OutOrStdout(), contact.SuccessDetail)
				return nil
			case errors.As(err, &verr):
				for _, field := range []string{"name", "email", "message"} {
					if msg, ok := verr.Fields[field]; ok {
						errColor.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", field, msg)
					}
				}
				return fmt.Errorf("invalid message")
			default:
				errColor.Fprintln(cmd.ErrOrStderr(), "Failed to send message")
				fmt.Fprintln(cmd.ErrOrStderr(), contact.CodeOf(err).Message())
				return err
			}
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&req.Name, "name", "", "Your name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Your email address")
	cmd.Flags().StringVar(&req.Message, "message", "", "Message body")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall timeout")

	return cmd
}
