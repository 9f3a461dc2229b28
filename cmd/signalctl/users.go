package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"signal_kz/internal/model"
	"signal_kz/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var setRoleCmd = &cobra.Command{
	Use:   "set-role <user-id> <role>",
	Short: "Assign a role to a registered user",
	Long: `Assign a role to a user who has already contacted the bot.

Unlike the bot's /set_role command this needs no admin, so it is the way to
appoint the first administrator.

Roles: citizen, moderator, official, admin`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetRole(cmd.Context(), repository.NewUserRepository(pool), cmd.OutOrStdout(), args[0], args[1])
	},
}

var listRole string

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect registered users",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered users",
	Long: `List registered users in registration order.

Examples:
  signalctl users list                  # Everyone
  signalctl users list --role moderator # Only moderators
  signalctl users list --json           # Output as JSON`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runListUsers(cmd.Context(), repository.NewUserRepository(pool), cmd.OutOrStdout(), listRole, jsonOutput)
	},
}

func init() {
	usersListCmd.Flags().StringVarP(&listRole, "role", "r", "", "Filter by role (citizen, moderator, official, admin)")
	usersCmd.AddCommand(usersListCmd)
}

func runSetRole(ctx context.Context, users repository.UserRepository, out io.Writer, rawID, rawRole string) error {
	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || userID <= 0 {
		return fmt.Errorf("invalid user id %q", rawID)
	}
	role, ok := model.ParseRole(rawRole)
	if !ok {
		return fmt.Errorf("unknown role %q (expected citizen, moderator, official or admin)", rawRole)
	}

	updated, err := users.UpdateRole(ctx, userID, role)
	if err != nil {
		return err
	}
	if !updated {
		return fmt.Errorf("user %d not found: they must message the bot first", userID)
	}

	log.WithFields(logrus.Fields{"user_id": userID, "role": role}).Info("Role assigned from CLI")
	fmt.Fprintf(out, "User %d is now %s\n", userID, role)
	return nil
}

func runListUsers(ctx context.Context, users repository.UserRepository, out io.Writer, rawRole string, asJSON bool) error {
	var filter *model.Role
	if rawRole != "" {
		role, ok := model.ParseRole(rawRole)
		if !ok {
			return fmt.Errorf("unknown role %q", rawRole)
		}
		filter = &role
	}

	list, err := users.List(ctx, filter)
	if err != nil {
		return err
	}

	if asJSON {
		if list == nil {
			list = []model.User{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tROLE\tNAME\tUSERNAME\tREGISTERED")
	for i := range list {
		u := &list[i]
		username := ""
		if u.Username != "" {
			username = "@" + u.Username
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", u.ID, u.Role, u.DisplayName(), username, u.RegisteredAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
