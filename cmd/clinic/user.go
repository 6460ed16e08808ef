package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clinicware/clinic/internal/clinic/auth"
	"github.com/clinicware/clinic/internal/clinic/model"
	"github.com/clinicware/clinic/internal/clinic/ui"
)

// NewPasswordEnv supplies the password for user add and user passwd when
// no terminal is available.
const NewPasswordEnv = "CLINIC_NEW_PASSWORD"

func newPassword() (string, string, error) {
	if pw, ok := os.LookupEnv(NewPasswordEnv); ok {
		return pw, pw, nil
	}
	var pw, confirm string
	if err := ui.NewPasswordForm(&pw, &confirm); err != nil {
		if errors.Is(err, ui.ErrNotInteractive) {
			return "", "", fmt.Errorf("no terminal: set %s", NewPasswordEnv)
		}
		return "", "", err
	}
	return pw, confirm, nil
}

var userCmd = &cobra.Command{
	Use:     "user",
	GroupID: "admin",
	Short:   "Manage user accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add USERNAME",
	Short: "Create a user account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireActor(cmd, auth.ActionManageUsers); err != nil {
			return err
		}
		accessFlag, _ := cmd.Flags().GetString("access")
		access := model.AccessLevel(accessFlag)
		if err := model.ValidateUsername(args[0]); err != nil {
			return err
		}
		if err := model.ValidateAccess(access); err != nil {
			return err
		}
		pw, confirm, err := newPassword()
		if err != nil {
			return err
		}
		if err := model.ValidatePassword(pw, confirm); err != nil {
			return err
		}
		id, err := app.store.CreateUserContext(cmd.Context(), args[0], pw, access)
		if err != nil {
			return err
		}
		fmt.Fprintf(app.out, "%s Created user %s (%s), id %d\n", ui.RenderPass("✓"), args[0], access, id)
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List user accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireActor(cmd, auth.ActionManageUsers); err != nil {
			return err
		}
		users, err := app.store.ListUsersContext(cmd.Context())
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(users))
		for _, u := range users {
			rows = append(rows, []string{formatID(u.ID), u.Username, string(u.Access)})
		}
		return ui.Print(app.out, app.format, users, []string{"ID", "Username", "Access"}, rows, "No users")
	},
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd [USERNAME]",
	Short: "Change your password, or another user's as an admin",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := requireActor(cmd, auth.ActionClinical)
		if err != nil {
			return err
		}
		target := actor.Username
		if len(args) == 1 {
			target = args[0]
		}
		if target != actor.Username {
			if err := actor.Authorize(auth.ActionManageUsers); err != nil {
				return err
			}
		}
		info, err := app.store.GetUserByUsernameContext(ctx, target)
		if err != nil {
			return err
		}
		pw, confirm, err := newPassword()
		if err != nil {
			return err
		}
		if err := app.store.ChangePasswordContext(ctx, info.ID, pw, confirm); err != nil {
			return err
		}
		fmt.Fprintf(app.out, "%s Password changed for %s\n", ui.RenderPass("✓"), info.Username)
		return nil
	},
}

var userRoleCmd = &cobra.Command{
	Use:       "role USERNAME admin|therapist",
	Short:     "Change a user's access level",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{string(model.AccessAdmin), string(model.AccessTherapist)},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := requireActor(cmd, auth.ActionManageUsers); err != nil {
			return err
		}
		info, err := app.store.GetUserByUsernameContext(ctx, args[0])
		if err != nil {
			return err
		}
		access := model.AccessLevel(args[1])
		if err := app.store.SetUserAccessContext(ctx, info.ID, access); err != nil {
			return err
		}
		fmt.Fprintf(app.out, "%s %s is now %s\n", ui.RenderPass("✓"), info.Username, access)
		return nil
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete USERNAME",
	Short: "Delete a user account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := requireActor(cmd, auth.ActionManageUsers)
		if err != nil {
			return err
		}
		if args[0] == actor.Username {
			return fmt.Errorf("cannot delete the account you are logged in with")
		}
		info, err := app.store.GetUserByUsernameContext(ctx, args[0])
		if err != nil {
			return err
		}
		ok, err := confirmDelete(cmd, fmt.Sprintf("user %q", info.Username))
		if err != nil || !ok {
			return err
		}
		if err := app.store.DeleteUserContext(ctx, info.ID); err != nil {
			return err
		}
		fmt.Fprintf(app.out, "%s Deleted user %s\n", ui.RenderPass("✓"), info.Username)
		return nil
	},
}

func init() {
	userAddCmd.Flags().String("access", string(model.AccessTherapist), "access level: admin or therapist")
	userDeleteCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")

	userCmd.AddCommand(userAddCmd, userListCmd, userPasswdCmd, userRoleCmd, userDeleteCmd)
	rootCmd.AddCommand(userCmd)
}
