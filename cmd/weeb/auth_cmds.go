package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jrsteele09/weeb-client/apimodel"
	"github.com/jrsteele09/weeb-client/internal/errors"
)

func loginCmd(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "log in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email == "" {
				if email, err = a.prompt(cmd, "Email: "); err != nil {
					return err
				}
			}
			password, err := a.promptPassword(cmd, "Password: ")
			if err != nil {
				return err
			}

			p, err := a.session.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", p.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "log out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func registerCmd(a *app) *cobra.Command {
	var req apimodel.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "create an account",
		Long:  "create an account. New accounts must be activated by an administrator before they can publish.",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := a.promptPassword(cmd, "Password: ")
			if err != nil {
				return err
			}
			req.Password = password

			p, err := a.session.Register(cmd.Context(), req)
			var fe *apimodel.FieldErrors
			if errors.As(err, &fe) {
				printFieldErrors(cmd.ErrOrStderr(), fe)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s. An administrator must activate the account before it can publish.\n", p.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "last name")
	cmd.Flags().StringVarP(&req.Email, "email", "e", "", "account email")
	return cmd
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "show the signed in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.session.State().Authenticated {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			if _, err := a.session.Me(cmd.Context()); err != nil {
				return err
			}

			state := a.session.State()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", state.User.DisplayName(), state.User.Email)
			fmt.Fprintf(out, "active: %t  staff: %t  moderator: %t\n", state.Active, state.Privileged, state.Moderator)
			if !state.AccessExpiry.IsZero() {
				fmt.Fprintf(out, "access token expires: %s\n", state.AccessExpiry.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func (a *app) prompt(cmd *cobra.Command, label string) (string, error) {
	if a.stdin == nil {
		a.stdin = bufio.NewReader(cmd.InOrStdin())
	}
	fmt.Fprint(cmd.ErrOrStderr(), label)
	line, err := a.stdin.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("error reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads without echo when stdin is a terminal.
func (a *app) promptPassword(cmd *cobra.Command, label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if cmd.InOrStdin() != os.Stdin || !term.IsTerminal(fd) {
		return a.prompt(cmd, label)
	}
	fmt.Fprint(cmd.ErrOrStderr(), label)
	passwordBytes, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("error reading password: %w", err)
	}
	return string(passwordBytes), nil
}

func printFieldErrors(w io.Writer, fe *apimodel.FieldErrors) {
	fields := make([]string, 0, len(fe.Fields))
	for f := range fe.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		for _, msg := range fe.Fields[f] {
			fmt.Fprintf(w, "  %s: %s\n", f, msg)
		}
	}
}
