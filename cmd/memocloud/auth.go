package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/michaekong/memocloud/pkg/memoire"
)

// readLines reads n trimmed lines from stdin. Missing trailing lines come
// back empty.
func readLines(cmd *cobra.Command, n int) []string {
	r := bufio.NewReader(cmd.InOrStdin())
	lines := make([]string, n)
	for i := range lines {
		line, err := r.ReadString('\n')
		lines[i] = strings.TrimRight(line, "\r\n")
		if err != nil {
			break
		}
	}
	return lines
}

func newLoginCmd(c *cli) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login [token]",
		Short: "Log in with a password or a bearer token",
		Long: `With --email, reads the password from standard input and exchanges the
credentials for a token. Otherwise stores the bearer token given as argument,
or read from standard input. Either way the matching profile is loaded.`,
		Example: `  echo "$PASSWORD" | memocloud login --email kong@example.org
  memocloud login eyJhbGciOi...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if email != "" {
				if len(args) == 1 {
					return errors.New("give either --email or a token, not both")
				}
				password := readLines(cmd, 1)[0]
				if err := c.app.LoginWithPassword(cmd.Context(), email, password); err != nil {
					return fmt.Errorf("login failed: %w", err)
				}
				fmt.Fprintf(c.out(cmd), "Logged in as %s.\n", c.app.Session().DisplayName())
				return nil
			}

			token := ""
			if len(args) == 1 {
				token = args[0]
			} else {
				token = readLines(cmd, 1)[0]
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return errors.New("no token given")
			}

			if err := c.app.Login(cmd.Context(), token); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Fprintf(c.out(cmd), "Logged in as %s.\n", c.app.Session().DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "log in with this address, password on stdin")
	return cmd
}

func newRegisterCmd(c *cli) *cobra.Command {
	var reg memoire.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long:  `Creates an account with the password read from standard input. Log in afterwards.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg.Password = readLines(cmd, 1)[0]
			if err := c.app.API().Register(cmd.Context(), reg); err != nil {
				return err
			}
			fmt.Fprintf(c.out(cmd), "Account created for %s. Run 'memocloud login --email %s'.\n", reg.Email, reg.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&reg.Email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&reg.Username, "username", "", "user name")
	cmd.Flags().StringVar(&reg.LastName, "nom", "", "last name")
	cmd.Flags().StringVar(&reg.FirstName, "prenom", "", "first name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newPasswdCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change the account password",
		Long:  `Reads the current password, then the new one, one per line from standard input.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lines := readLines(cmd, 2)
			if err := c.app.API().ChangePassword(cmd.Context(), lines[0], lines[1]); err != nil {
				return explain(err)
			}
			fmt.Fprintln(c.out(cmd), "Password changed.")
			return nil
		},
	}
}

func newResetPasswordCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <email>",
		Short: "Ask for a password reset email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.API().ResetPassword(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(c.out(cmd), "If %s has an account, a reset link is on its way.\n", args[0])
			return nil
		},
	}
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(c.out(cmd), "Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(c *cli) *cobra.Command {
	var details bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := c.app.Session()
			w := c.out(cmd)
			if !s.Authenticated() {
				fmt.Fprintln(w, "Not logged in.")
				return nil
			}
			fmt.Fprintln(w, s.DisplayName())
			if !details {
				return nil
			}

			ctx := cmd.Context()
			svc := c.app.API()

			stats, err := svc.MyStats(ctx)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(w, "Published theses: %d\n", stats.TotalMemoires)

			downloads, err := svc.MyDownloads(ctx)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(w, "Downloads (%d):\n", len(downloads))
			for _, d := range downloads {
				fmt.Fprintf(w, "  - %s\n", d.MemoireTitle)
			}

			likes, err := svc.MyLikes(ctx)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(w, "Likes (%d):\n", len(likes))
			for _, l := range likes {
				fmt.Fprintf(w, "  - %s\n", l.MemoireTitle)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&details, "details", false, "also list publications, downloads and likes")
	return cmd
}
