package user

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/sftpbox/cmd/sftpbox/cmdutil"
	"github.com/marmos91/sftpbox/pkg/controlplane/models"
)

var (
	addPasswordStdin bool
	addDisabled      bool
)

var addCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create a user",
	Long: `Create a user in the credential database.

The password is prompted for twice unless --password-stdin is given, in
which case the first line of stdin is used.

Examples:
  # Create a user interactively
  sftpbox user add alice

  # Create a user from a script
  echo "$PASSWORD" | sftpbox user add alice --password-stdin

  # Create a user that cannot log in yet
  sftpbox user add bob --disabled`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().BoolVar(&addPasswordStdin, "password-stdin", false, "Read the password from stdin")
	addCmd.Flags().BoolVar(&addDisabled, "disabled", false, "Create the user disabled")
}

func runAdd(cmd *cobra.Command, args []string) error {
	username := args[0]

	password, err := cmdutil.NewPassword(cmd, addPasswordStdin)
	if err != nil {
		return cmdutil.HandleAbort(cmd, err)
	}
	if err := models.ValidatePassword(password); err != nil {
		return err
	}

	hash, err := models.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	s, _, err := cmdutil.OpenStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	ctx := cmd.Context()
	u := &models.User{Username: username, PasswordHash: hash, Enabled: true}
	if _, err := s.CreateUser(ctx, u); err != nil {
		if errors.Is(err, models.ErrDuplicateUser) {
			return fmt.Errorf("user %q already exists", username)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	// The enabled column defaults to true, so a disabled user is
	// created enabled and then switched off.
	if addDisabled {
		if err := s.SetUserEnabled(ctx, username, false); err != nil {
			return fmt.Errorf("failed to disable user: %w", err)
		}
	}

	cmdutil.PrintSuccess(cmd, "User %q created", username)
	return nil
}
