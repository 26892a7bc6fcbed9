package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/weeb-client/internal/errors"
)

func usersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "list and inspect accounts (staff only)",
	}
	cmd.AddCommand(usersListCmd(a), usersGetCmd(a))
	return cmd
}

func usersListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list every account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.session.State().Authenticated {
				return errors.ErrNotAuthenticated
			}
			profiles, err := a.session.Admin().ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			if len(profiles) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No users found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tNAME\tACTIVE\tSTAFF")
			for _, p := range profiles {
				fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%t\n", p.ID, p.Email, p.DisplayName(), p.IsActive, p.IsStaff)
			}
			return w.Flush()
		},
	}
}

func usersGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "show one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			if !a.session.State().Authenticated {
				return errors.ErrNotAuthenticated
			}
			p, err := a.session.Admin().GetUser(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\nactive: %t\nstaff: %t\ngroups: %v\n", p.DisplayName(), p.Email, p.IsActive, p.IsStaff, p.Groups)
			return nil
		},
	}
}
