package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vormiaphp/vormiaquery/internal/common"
	"github.com/vormiaphp/vormiaquery/internal/guard"
	"github.com/vormiaphp/vormiaquery/internal/models"
	"github.com/vormiaphp/vormiaquery/internal/services"
)

func (a *App) loginCmd() *cobra.Command {
	var (
		email    string
		password string
		remember bool
		endpoint string
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the token locally",
		Long: `Log in against the auth endpoint and keep the returned token, user and
session in the local store. Missing credentials are prompted for; the
password is read without echo on a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.init(ctx, cmd); err != nil {
				return err
			}

			var err error
			if email == "" {
				if email, err = GetSimpleText(a.reader, "Email", a.streams.Err); err != nil {
					return err
				}
			}
			pw := []byte(password)
			if len(pw) == 0 {
				if pw, err = GetPassword(a.streams.In, a.reader, a.streams.Err); err != nil {
					return err
				}
			}
			defer common.WipeByteArray(pw)

			creds := models.Credentials{Email: email, Password: string(pw), Remember: remember}
			user, err := a.auth.Login(ctx, creds, services.LoginOptions{Endpoint: endpoint})
			if err != nil {
				return err
			}

			name := user.DisplayName()
			if name == "" {
				name = email
			}
			_, err = fmt.Fprintf(a.streams.Out, "Logged in as %s\n", name)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&email, "email", "e", "", "Account email")
	f.StringVar(&password, "password", "", "Account password (prompted when empty)")
	f.BoolVar(&remember, "remember", false, "Ask the server for a long-lived session")
	f.StringVar(&endpoint, "endpoint", "", "Login endpoint (default from config)")
	return cmd
}

func (a *App) logoutCmd() *cobra.Command {
	var opts services.LogoutOptions
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.init(ctx, cmd); err != nil {
				return err
			}
			if err := a.auth.Logout(ctx, opts); err != nil {
				return err
			}
			_, err := fmt.Fprintln(a.streams.Out, "Logged out")
			return err
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.Remote, "remote", false, "Also call the logout endpoint")
	f.StringVar(&opts.Endpoint, "endpoint", "", "Logout endpoint (default from config)")
	f.BoolVar(&opts.ClearStorage, "clear", false, "Wipe everything vq stored locally")
	return cmd
}

func (a *App) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.init(ctx, cmd); err != nil {
				return err
			}
			info, err := a.auth.SessionInfo(ctx)
			if err != nil {
				return err
			}
			return a.print(info)
		},
	}
}

func (a *App) authorizeCmd() *cobra.Command {
	var rules guard.Rules
	cmd := &cobra.Command{
		Use:   "authorize",
		Short: "Check the stored user against role and permission rules",
		Long: `Check the stored user against role and permission rules. Exits non-zero
when access would be denied, so it can gate scripts:

  vq authorize --role admin --role editor
  vq authorize --permission posts.edit --permission posts.delete --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.init(ctx, cmd); err != nil {
				return err
			}
			var user *models.User
			if a.auth.IsAuthenticated(ctx) {
				u, err := a.auth.User(ctx)
				if err != nil {
					return err
				}
				user = u
			}

			res := guard.Evaluate(user, rules)
			if !res.Authorized {
				return fmt.Errorf("not authorized: %s", res.Reason)
			}
			_, err := fmt.Fprintln(a.streams.Out, "authorized")
			return err
		},
	}
	f := cmd.Flags()
	f.StringArrayVar(&rules.Roles, "role", nil, "Required role, can be repeated")
	f.StringArrayVar(&rules.Permissions, "permission", nil, "Required permission, can be repeated")
	f.BoolVar(&rules.RequireAll, "all", false, "Require every listed role and permission")
	f.BoolVar(&rules.Strict, "strict", true, "Deny when nobody is logged in")
	return cmd
}
