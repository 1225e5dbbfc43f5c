package commands

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/powerups/internal/inspect"
)

func newTokenCommand(a *app) *cobra.Command {
	var (
		hash     bool
		password string
	)

	cmd := &cobra.Command{
		Use:   "token [subject]",
		Short: "Issue a token for the serve command",
		Long: `Print a token signed with serve.secret. Pass it to the inspector as
"Authorization: Bearer <token>" or as the token query parameter.

With --hash-password, print a bcrypt hash for serve.password_hash instead.
Clients can then exchange the password for a token with POST /token.`,
		Example: `  POWERUPS_SERVE_SECRET=s3cret powerups token ci
  powerups token --hash-password`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if hash {
				if password == "" {
					if err := survey.AskOne(&survey.Password{
						Message: "Password:",
					}, &password, survey.WithValidator(survey.Required)); err != nil {
						return err
					}
				}
				hashed, err := inspect.HashPassword(password)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), hashed)
				return nil
			}

			if a.cfg.Serve.Secret == "" {
				return fmt.Errorf("serve.secret is not configured")
			}
			subject := "powerups"
			if len(args) > 0 {
				subject = args[0]
			}

			auth, err := inspect.NewAuth(a.cfg.Serve.Secret, a.cfg.Serve.TokenTTL)
			if err != nil {
				return err
			}
			token, err := auth.Issue(subject)
			if err != nil {
				return fmt.Errorf("failed to issue token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().BoolVar(&hash, "hash-password", false, "Print a bcrypt hash for serve.password_hash")
	cmd.Flags().StringVar(&password, "password", "", "Password to hash (prompted when empty)")

	return cmd
}
