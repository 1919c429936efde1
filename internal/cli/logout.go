package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmcdole/libraryhub/internal/library"
)

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "logout",
		Short:        "Forget the stored session token",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			defer e.close()

			email := e.tokens.Email()
			sess := library.NewSessionService(e.client, e.tokens, nil, e.logger)
			if !sess.LoggedIn() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			if err := sess.Logout(); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Logged out %s\n", email)
			return nil
		},
	}
}
