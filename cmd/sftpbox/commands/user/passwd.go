package user

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/sftpbox/cmd/sftpbox/cmdutil"
	"github.com/marmos91/sftpbox/pkg/controlplane/models"
)

var passwdPasswordStdin bool

var passwdCmd = &cobra.Command{
	Use:   "passwd <username>",
	Short: "Change a user's password",
	Long: `Change the password of a user in the credential database.

Examples:
  # Prompt for the new password
  sftpbox user passwd alice

  # Read it from stdin
  echo "$PASSWORD" | sftpbox user passwd alice --password-stdin`,
	Args: cobra.ExactArgs(1),
	RunE: runPasswd,
}

func init() {
	passwdCmd.Flags().BoolVar(&passwdPasswordStdin, "password-stdin", false, "Read the password from stdin")
}

func runPasswd(cmd *cobra.Command, args []string) error {
	username := args[0]

	password, err := cmdutil.NewPassword(cmd, passwdPasswordStdin)
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

	if err := s.UpdatePassword(cmd.Context(), username, hash); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return fmt.Errorf("user %q not found", username)
		}
		return fmt.Errorf("failed to update password: %w", err)
	}

	cmdutil.PrintSuccess(cmd, "Password for %q updated", username)
	return nil
}
